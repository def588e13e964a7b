package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lgns/provisioner/internal/logger"
)

type (
	Outcome string

	Options struct {
		Tags []string
		// Rerun executes steps even when the manifest records them as completed.
		Rerun bool
	}

	StepReport struct {
		Name     string
		Outcome  Outcome
		Reason   string
		Duration time.Duration
	}

	Report struct {
		Steps []StepReport
	}

	// Runner executes a planned set of steps strictly in order.
	Runner struct {
		graph  *Graph
		logger *slog.Logger
		now    func() time.Time
	}
)

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

func NewRunner(graph *Graph) *Runner {
	return &Runner{
		graph:  graph,
		logger: logger.Named("provision_runner"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run validates every selected step's parameters, then executes the steps one by one.
// The first failure aborts the run.
func (r *Runner) Run(ctx context.Context, pc *Context, opts Options) (Report, error) {
	var report Report

	plan, err := r.graph.Plan(opts.Tags)
	if err != nil {
		return report, err
	}
	if pc.now == nil {
		pc.now = r.now
	}

	r.logger.
		With("network", pc.Target.Name).
		With("steps", len(plan)).
		With("rerun", opts.Rerun).
		Info("starting provisioning run")

	for _, step := range plan {
		if step.Validate == nil {
			continue
		}
		if err := step.Validate(pc.Target.Params); err != nil {
			r.logger.With("step", step.Name).With("err", err.Error()).Error("configuration validation failed")
			report.Steps = append(report.Steps, StepReport{Name: step.Name, Outcome: OutcomeFailed, Reason: err.Error()})
			return report, fmt.Errorf("step %s: %w", step.Name, err)
		}
	}

	for _, step := range plan {
		log := r.logger.With("step", step.Name)

		if pc.Manifest.Completed(step.Name) && !step.Repeatable && !opts.Rerun {
			log.Info("step already completed, skipping")
			report.Steps = append(report.Steps, StepReport{Name: step.Name, Outcome: OutcomeSkipped, Reason: "already completed"})
			continue
		}

		pc.enter(step.Name, log)

		started := r.now()
		err := r.runStep(ctx, pc, step)
		duration := r.now().Sub(started)
		if err != nil {
			log.With("err", err.Error()).Error("step failed")
			report.Steps = append(report.Steps, StepReport{Name: step.Name, Outcome: OutcomeFailed, Reason: err.Error(), Duration: duration})
			return report, err
		}

		pc.Manifest.MarkCompleted(step.Name, r.now())
		if err := pc.save(); err != nil {
			return report, err
		}

		log.With("duration", duration.String()).Info("step completed")
		report.Steps = append(report.Steps, StepReport{Name: step.Name, Outcome: OutcomeExecuted, Duration: duration})
	}

	r.logger.Info("provisioning run completed")

	return report, nil
}

func (r *Runner) runStep(ctx context.Context, pc *Context, step Step) error {
	for _, name := range step.Requires {
		if _, err := pc.Require(name); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("step %s: %w", step.Name, err)
	}

	return step.Run(ctx, pc)
}

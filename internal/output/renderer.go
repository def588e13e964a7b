package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/provision"
)

// Renderer prints manifests, plans and run reports for humans.
type Renderer struct {
	out   io.Writer
	color bool
}

func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{out: out, color: color}
}

func (r *Renderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// RenderManifest prints the active record of every name.
func (r *Renderer) RenderManifest(m *manifest.Manifest) error {
	records := m.ActiveRecords()
	if len(records) == 0 {
		_, err := fmt.Fprintf(r.out, "No contracts recorded for %s\n", m.Network)
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft},
		{Number: 5, Align: text.AlignLeft},
	})
	t.AppendHeader(table.Row{"NAME", "CONTRACT", "ADDRESS", "STEP", "DEPLOYED"})

	name := r.paint(color.FgGreen, color.Bold)
	external := r.paint(color.FgYellow)
	for _, rec := range records {
		label := name.Sprint(rec.Name)
		if rec.External {
			label = external.Sprint(rec.Name + " (external)")
		}
		deployed := ""
		if !rec.DeployedAt.IsZero() {
			deployed = rec.DeployedAt.UTC().Format(time.DateTime)
		}
		t.AppendRow(table.Row{label, rec.Contract, rec.Address.Hex(), rec.Step, deployed})
	}

	_, err := fmt.Fprintf(r.out, "%s (chain %d)\n\n%s\n", r.paint(color.FgCyan, color.Bold).Sprint(m.Network), m.ChainID, t.Render())
	return err
}

// RenderPlan prints the ordered steps of a run and whether each will execute.
func (r *Renderer) RenderPlan(plan []provision.Step, m *manifest.Manifest, rerun bool) error {
	done := r.paint(color.FgHiBlack)
	pending := r.paint(color.FgGreen)
	always := r.paint(color.FgBlue)

	if _, err := fmt.Fprintf(r.out, "Provisioning plan for %s:\n\n", m.Network); err != nil {
		return err
	}

	for i, step := range plan {
		var status string
		switch {
		case step.Repeatable:
			status = always.Sprint("runs every time")
		case m.Completed(step.Name) && !rerun:
			status = done.Sprint("completed, skipped")
		case m.Completed(step.Name):
			status = pending.Sprint("completed, rerun")
		default:
			status = pending.Sprint("pending")
		}
		if _, err := fmt.Fprintf(r.out, "  %2d. %-26s %s\n", i+1, step.Name, status); err != nil {
			return err
		}
	}

	return nil
}

// RenderReport prints the outcome of every step of a run.
func (r *Renderer) RenderReport(report provision.Report) error {
	ok := r.paint(color.FgGreen)
	skip := r.paint(color.FgYellow)
	failed := r.paint(color.FgRed)

	for _, s := range report.Steps {
		var line string
		switch s.Outcome {
		case provision.OutcomeExecuted:
			line = ok.Sprintf("✅ %s (%s)", s.Name, s.Duration.Round(time.Millisecond))
		case provision.OutcomeSkipped:
			line = skip.Sprintf("⏭  %s: %s", s.Name, s.Reason)
		default:
			line = failed.Sprintf("❌ %s: %s", s.Name, s.Reason)
		}
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}

	return nil
}

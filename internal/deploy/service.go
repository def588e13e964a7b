package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/logger"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/provision"
)

type (
	manifestStore interface {
		Load(network string, chainID uint64) (*manifest.Manifest, error)
		Save(m *manifest.Manifest) error
	}

	// Backends are the live dependencies of a run.
	Backends struct {
		Chain     provision.Chain
		Artifacts provision.Artifacts
		Verifier  provision.Verifier
	}

	// Service drives provisioning runs against a network's manifest.
	Service struct {
		graph  *provision.Graph
		store  manifestStore
		logger *slog.Logger
	}
)

func NewService(graph *provision.Graph, store manifestStore) *Service {
	return &Service{
		graph:  graph,
		store:  store,
		logger: logger.Named("deploy_service"),
	}
}

// Provision loads the manifest of the target network and runs the selected steps.
// The report is returned even when the run fails.
func (s *Service) Provision(ctx context.Context, target configs.Target, backends Backends, opts provision.Options) (provision.Report, error) {
	m, err := s.store.Load(string(target.Name), target.Network.ChainID)
	if err != nil {
		return provision.Report{}, err
	}

	s.logger.
		With("network", target.Name).
		With("chain_id", target.Network.ChainID).
		With("environment", target.Network.Environment).
		With("records", len(m.Records)).
		Info("manifest ready, starting run")

	pc := &provision.Context{
		Target:    target,
		Manifest:  m,
		Chain:     backends.Chain,
		Artifacts: backends.Artifacts,
		Store:     s.store,
		Verifier:  backends.Verifier,
	}

	return provision.NewRunner(s.graph).Run(ctx, pc, opts)
}

// Plan returns the steps selected by tags and the stored manifest, after validating the
// parameters of every selected step. It never touches the chain.
func (s *Service) Plan(target configs.Target, tags []string) ([]provision.Step, *manifest.Manifest, error) {
	plan, err := s.graph.Plan(tags)
	if err != nil {
		return nil, nil, err
	}

	for _, step := range plan {
		if step.Validate == nil {
			continue
		}
		if err := step.Validate(target.Params); err != nil {
			return nil, nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
	}

	m, err := s.store.Load(string(target.Name), target.Network.ChainID)
	if err != nil {
		return nil, nil, err
	}

	return plan, m, nil
}

// Manifest returns the stored manifest of the target network.
func (s *Service) Manifest(target configs.Target) (*manifest.Manifest, error) {
	return s.store.Load(string(target.Name), target.Network.ChainID)
}

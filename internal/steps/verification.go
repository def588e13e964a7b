package steps

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/provision"
	"github.com/lgns/provisioner/internal/verify"
)

func verifyContracts() provision.Step {
	return provision.Step{
		Name:       StepVerifyContracts,
		Tags:       []string{StepVerifyContracts, TagDeploy1},
		RunLast:    true,
		Repeatable: true,
		Run: func(ctx context.Context, pc *provision.Context) error {
			var items []verify.Item
			for _, record := range pc.Manifest.ActiveRecords() {
				if record.External {
					continue
				}
				items = append(items, verify.Item{Name: record.Name, Contract: record.Contract, Address: record.Address})
			}
			return submit(ctx, pc, items)
		},
	}
}

func reverifyContracts() provision.Step {
	return provision.Step{
		Name:       StepReverifyContracts,
		Tags:       []string{StepReverifyContracts},
		RunLast:    true,
		Repeatable: true,
		Run: func(ctx context.Context, pc *provision.Context) error {
			names := pc.Target.Network.Verification.Contracts
			items := make([]verify.Item, 0, len(names))
			for _, name := range names {
				item := verify.Item{Name: name, Contract: name}
				if record, ok := pc.Manifest.Active(name); ok {
					item.Contract = record.Contract
					item.Address = record.Address
				}
				items = append(items, item)
			}
			return submit(ctx, pc, items)
		},
	}
}

// submit verifies items on networks with verification enabled. Per-item failures are
// logged by the verifier and never fail the step.
func submit(ctx context.Context, pc *provision.Context, items []verify.Item) error {
	log := pc.Log()
	if !pc.Target.Network.Verification.Enabled {
		log.With("network", pc.Target.Name).Info("verification disabled for network, skipping")
		return nil
	}
	if len(items) == 0 {
		log.Info("nothing to verify")
		return nil
	}

	log.With("contracts", len(items)).Info("starting contract verification")

	results, err := pc.Verify(ctx, items)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Item.Address == (common.Address{}) {
			log.With("name", r.Item.Name).Warn("contract not deployed on this network")
		}
	}

	log.
		With("contracts", len(results)).
		With("failed", verify.Failed(results)).
		Info("contract verification finished")

	return nil
}

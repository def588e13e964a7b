package steps

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/provision"
)

func manager() provision.Step {
	return provision.Step{
		Name:         StepManager,
		Tags:         []string{StepManager, TagDeploy1},
		Dependencies: []string{StepVerifyContracts},
		Validate: func(p configs.Params) error {
			return p.Manager.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().Manager

			gm, err := pc.Deploy(ctx, GovernanceManager, provision.DeployOptions{
				Args: []any{common.HexToAddress(p.Owner), common.HexToAddress(p.FeeSetter)},
			})
			if err != nil {
				return err
			}

			pc.Log().With("address", gm.Address.Hex()).Info("governance manager ready")
			return nil
		},
	}
}

func setManagerConfig() provision.Step {
	return provision.Step{
		Name:         StepSetManagerConfig,
		Tags:         []string{StepSetManagerConfig, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Validate: func(p configs.Params) error {
			return p.Manager.ValidateWiring()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().Manager

			invocations := []provision.Invocation{
				setAddress(GovernanceManager, "setPauseManager", "pauseManager", common.HexToAddress(p.PauseManager)),
				setAddress(GovernanceManager, "setRNG", "rng", common.HexToAddress(p.SupraRouter)),
				setAddress(GovernanceManager, "setSupraClientAddress", "supraClientAddress", common.HexToAddress(p.SupraClient)),
			}
			for _, inv := range invocations {
				if _, err := pc.Execute(ctx, inv); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

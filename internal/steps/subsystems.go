package steps

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/provision"
)

// registryBound deploys contract(gm) and optionally registers it with a registry setter.
func registryBound(ctx context.Context, pc *provision.Context, name, setter, getter string) (common.Address, error) {
	gm, err := pc.Require(GovernanceManager)
	if err != nil {
		return common.Address{}, err
	}

	record, err := pc.Deploy(ctx, name, provision.DeployOptions{Args: []any{gm.Address}})
	if err != nil {
		return common.Address{}, err
	}
	pc.Log().With("address", record.Address.Hex()).Info("contract ready")

	if setter != "" {
		if _, err := pc.Execute(ctx, setAddress(GovernanceManager, setter, getter, record.Address)); err != nil {
			return common.Address{}, err
		}
	}

	return record.Address, nil
}

func history() provision.Step {
	return provision.Step{
		Name:         StepHistory,
		Tags:         []string{StepHistory, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Run: func(ctx context.Context, pc *provision.Context) error {
			_, err := registryBound(ctx, pc, HistoryManager, "", "")
			return err
		},
	}
}

func house() provision.Step {
	return provision.Step{
		Name:         StepHouse,
		Tags:         []string{StepHouse, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Run: func(ctx context.Context, pc *provision.Context) error {
			_, err := registryBound(ctx, pc, House, "setHouse", "house")
			return err
		},
	}
}

func claimManager() provision.Step {
	return provision.Step{
		Name:         StepClaimManager,
		Tags:         []string{StepClaimManager, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Run: func(ctx context.Context, pc *provision.Context) error {
			_, err := registryBound(ctx, pc, ClaimManager, "setClaimManager", "claimManager")
			return err
		},
	}
}

func feeReceiver() provision.Step {
	return provision.Step{
		Name:         StepFeeReceiver,
		Tags:         []string{StepFeeReceiver, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Validate: func(p configs.Params) error {
			return p.FeeReceiver.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().FeeReceiver

			gm, err := pc.Require(GovernanceManager)
			if err != nil {
				return err
			}

			fr, err := pc.Deploy(ctx, FeeReceiver, provision.DeployOptions{
				Args: []any{addressOrZero(p.Weth), gm.Address},
			})
			if err != nil {
				return err
			}

			if _, err := pc.Execute(ctx, setAddress(GovernanceManager, "setFeeReceiver", "feeReceiver", fr.Address)); err != nil {
				return err
			}

			recipient := common.HexToAddress(p.DefaultReceiver)
			current, err := pc.CallSingle(ctx, FeeReceiver, "allocation", recipient)
			if err != nil {
				return err
			}

			log := pc.Log().With("recipient", recipient.Hex())
			if !provision.IsZero(current) {
				log.With("allocation", fmt.Sprint(current)).Info("default recipient already exists with allocation")
				return nil
			}

			if _, err := pc.Execute(ctx, provision.Invocation{
				Target: FeeReceiver,
				Method: "addRecipient",
				Args:   []any{recipient, p.Allocation, true},
			}); err != nil {
				return err
			}
			log.With("allocation", p.Allocation).Info("default recipient added")

			return nil
		},
	}
}

func userInfo() provision.Step {
	return provision.Step{
		Name:         StepUserInfo,
		Tags:         []string{StepUserInfo, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Validate: func(p configs.Params) error {
			return p.UserInfo.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().UserInfo

			gm, err := pc.Require(GovernanceManager)
			if err != nil {
				return err
			}

			viewer, err := pc.Deploy(ctx, TokenWagerViewer, provision.DeployOptions{})
			if err != nil {
				return err
			}

			tracker, err := pc.Deploy(ctx, UserInfo, provision.DeployOptions{
				Args: []any{p.Name, p.Symbol, viewer.Address, addressOrZero(p.Weth), gm.Address},
			})
			if err != nil {
				return err
			}

			_, err = pc.Execute(ctx, setAddress(GovernanceManager, "setUserInfoTracker", "userInfoTracker", tracker.Address))
			return err
		},
	}
}

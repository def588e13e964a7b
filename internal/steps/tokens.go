package steps

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/provision"
)

func projectTokenManager() provision.Step {
	return provision.Step{
		Name:         StepProjectTokenManager,
		Tags:         []string{StepProjectTokenManager, TagDeploy1},
		Dependencies: []string{StepManager},
		Requires:     []string{GovernanceManager},
		Run: func(ctx context.Context, pc *provision.Context) error {
			gm, err := pc.Require(GovernanceManager)
			if err != nil {
				return err
			}

			wrappedAsset, err := pc.Deploy(ctx, WrappedAsset, provision.DeployOptions{})
			if err != nil {
				return err
			}
			tokenHouse, err := pc.Deploy(ctx, TokenHouse, provision.DeployOptions{Args: []any{gm.Address}})
			if err != nil {
				return err
			}
			wrappedAssetManager, err := pc.Deploy(ctx, WrappedAssetManager, provision.DeployOptions{
				Args: []any{wrappedAsset.Address, gm.Address},
			})
			if err != nil {
				return err
			}
			houseManager, err := pc.Deploy(ctx, HouseManager, provision.DeployOptions{
				Args: []any{tokenHouse.Address, gm.Address},
			})
			if err != nil {
				return err
			}
			projectTokens, err := pc.Deploy(ctx, ProjectTokensManager, provision.DeployOptions{
				Args: []any{wrappedAssetManager.Address, houseManager.Address, gm.Address},
			})
			if err != nil {
				return err
			}

			pc.Log().
				With("wrapped_asset", wrappedAsset.Address.Hex()).
				With("token_house", tokenHouse.Address.Hex()).
				With("wrapped_asset_manager", wrappedAssetManager.Address.Hex()).
				With("house_manager", houseManager.Address.Hex()).
				With("project_tokens_manager", projectTokens.Address.Hex()).
				Info("token subsystem ready")

			return nil
		},
	}
}

func setProjectManagerConfig() provision.Step {
	return provision.Step{
		Name:         StepSetProjectManagerConfig,
		Tags:         []string{StepSetProjectManagerConfig, TagDeploy1},
		Dependencies: []string{StepProjectTokenManager},
		Requires:     []string{GovernanceManager, WrappedAssetManager, HouseManager, TokenHouse, ProjectTokensManager},
		Run: func(ctx context.Context, pc *provision.Context) error {
			projectTokens, err := pc.Require(ProjectTokensManager)
			if err != nil {
				return err
			}
			houseManager, err := pc.Require(HouseManager)
			if err != nil {
				return err
			}

			invocations := []provision.Invocation{
				setAddress(GovernanceManager, "setProjectTokens", "projectTokens", projectTokens.Address),
				setAddress(WrappedAssetManager, "setHouseManager", "houseManager", houseManager.Address),
				{Target: TokenHouse, Method: "enableCloning", Getter: "isImplementation", Want: true},
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

func createTokenContracts() provision.Step {
	return provision.Step{
		Name:         StepCreateTokenContracts,
		Tags:         []string{StepCreateTokenContracts},
		Dependencies: []string{StepProjectTokenManager},
		Requires:     []string{ProjectTokensManager},
		Validate: func(p configs.Params) error {
			return p.TokenContracts.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			token := common.HexToAddress(pc.Params().TokenContracts.PartnerToken)
			log := pc.Log().With("partner_token", token.Hex())

			wrapper, err := tokenContract(ctx, pc, "getWrapper", token)
			if err != nil {
				return err
			}

			if wrapper == (common.Address{}) {
				if _, err := pc.Execute(ctx, provision.Invocation{
					Target: ProjectTokensManager,
					Method: "createTokenContracts",
					Args:   []any{token},
				}); err != nil {
					return err
				}
				if wrapper, err = tokenContract(ctx, pc, "getWrapper", token); err != nil {
					return err
				}
				log.Info("token contracts created")
			} else {
				log.Info("token contracts already exist")
			}

			tokenHouse, err := tokenContract(ctx, pc, "getHouse", token)
			if err != nil {
				return err
			}

			if err := pc.Register(WrapperName(token), WrappedAsset, wrapper); err != nil {
				return err
			}
			if err := pc.Register(TokenHouseName(token), TokenHouse, tokenHouse); err != nil {
				return err
			}

			log.
				With("wrapper", wrapper.Hex()).
				With("token_house", tokenHouse.Hex()).
				Info("token contracts mapped")

			return nil
		},
	}
}

func tokenContract(ctx context.Context, pc *provision.Context, getter string, token common.Address) (common.Address, error) {
	value, err := pc.CallSingle(ctx, ProjectTokensManager, getter, token)
	if err != nil {
		return common.Address{}, err
	}
	address, ok := value.(common.Address)
	if !ok {
		return common.Address{}, &provision.ExternalCallError{
			Step:   pc.Step(),
			Target: ProjectTokensManager,
			Method: getter,
			Err:    fmt.Errorf("expected address, got %T", value),
		}
	}
	return address, nil
}

package steps

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/provision"
)

// gameDependencies resolves the registry and history every game is bound to.
func gameDependencies(pc *provision.Context) (gm, history manifest.Record, err error) {
	if gm, err = pc.Require(GovernanceManager); err != nil {
		return gm, history, err
	}
	history, err = pc.Require(HistoryManager)
	return gm, history, err
}

func betAmountLimits(target string, limit configs.BetAmountLimit) provision.Invocation {
	token := addressOrZero(limit.Address)
	inv := provision.Invocation{
		Target:     target,
		Method:     "setBetAmountLimits",
		Args:       []any{token, limit.Amount},
		Getter:     "betAmountLimits",
		GetterArgs: []any{token},
	}
	if amount, err := configs.ParseUint(limit.Amount); err == nil {
		inv.Want = amount
	}
	return inv
}

func plinko() provision.Step {
	return provision.Step{
		Name:         StepPlinko,
		Tags:         []string{StepPlinko, TagDeploy1},
		Dependencies: []string{StepManager, StepHistory},
		Requires:     []string{GovernanceManager, HistoryManager},
		Validate: func(p configs.Params) error {
			return p.Plinko.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().Plinko

			gm, history, err := gameDependencies(pc)
			if err != nil {
				return err
			}

			game, err := pc.Deploy(ctx, Plinko, provision.DeployOptions{
				Args: []any{p.GameID, history.Address, p.MinBuyInGas, p.ExtraGasPerBall, gm.Address, common.HexToAddress(p.GasRecipient)},
			})
			if err != nil {
				return err
			}

			invocations := []provision.Invocation{
				{
					Target: Plinko,
					Method: "setGameMode",
					Args:   []any{p.GameMode, p.BucketWeights, p.Payouts, p.BoostOdds, p.PayoutReductions},
				},
				betAmountLimits(Plinko, p.BetAmountLimit),
				markGame(game.Address),
			}
			for _, inv := range invocations {
				if _, err := pc.Execute(ctx, inv); err != nil {
					return err
				}
			}

			pc.Log().With("address", game.Address.Hex()).Info("plinko ready")
			return nil
		},
	}
}

func roulette() provision.Step {
	return provision.Step{
		Name:         StepRoulette,
		Tags:         []string{StepRoulette, TagDeploy1},
		Dependencies: []string{StepManager, StepHistory},
		Requires:     []string{GovernanceManager, HistoryManager},
		Validate: func(p configs.Params) error {
			return p.Roulette.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().Roulette

			gm, history, err := gameDependencies(pc)
			if err != nil {
				return err
			}

			game, err := pc.Deploy(ctx, Roulette, provision.DeployOptions{
				Args: []any{p.GameID, history.Address, p.MinBuyInGas, p.BuyInGasPerGuess, gm.Address, common.HexToAddress(p.GasRecipient)},
			})
			if err != nil {
				return err
			}

			if _, err := pc.Execute(ctx, markGame(game.Address)); err != nil {
				return err
			}

			pc.Log().With("address", game.Address.Hex()).Info("roulette ready")
			return nil
		},
	}
}

func slots() provision.Step {
	return provision.Step{
		Name:         StepSlots,
		Tags:         []string{StepSlots, TagDeploy1},
		Dependencies: []string{StepManager, StepHistory},
		Requires:     []string{GovernanceManager, HistoryManager},
		Validate: func(p configs.Params) error {
			return p.Slots.Validate()
		},
		Run: func(ctx context.Context, pc *provision.Context) error {
			p := pc.Params().Slots

			gm, history, err := gameDependencies(pc)
			if err != nil {
				return err
			}

			game, err := pc.Deploy(ctx, Slots, provision.DeployOptions{
				Args: []any{
					p.GameID,
					history.Address,
					gm.Address,
					p.Reel1,
					p.Reel2,
					p.Reel3,
					p.MinBuyInGas,
					p.BuyInGasPerSpin,
					p.BoostOdds,
					p.PayoutReductions,
					common.HexToAddress(p.GasRecipient),
				},
			})
			if err != nil {
				return err
			}

			invocations := []provision.Invocation{
				{
					Target: Slots,
					Method: "batchSetPayouts",
					Args:   []any{p.PayoutTable.ID1s, p.PayoutTable.ID2s, p.PayoutTable.ID3s, p.PayoutTable.Payouts},
				},
				betAmountLimits(Slots, p.BetAmountLimit),
				markGame(game.Address),
			}
			for _, inv := range invocations {
				if _, err := pc.Execute(ctx, inv); err != nil {
					return err
				}
			}

			pc.Log().With("address", game.Address.Hex()).Info("slots ready")
			return nil
		},
	}
}

// Package steps declares the provisioning sequence of the gaming platform contracts.
package steps

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/provision"
)

const TagDeploy1 = "Deploy1"

// Step names.
const (
	StepVerifyContracts         = "VerifyContracts"
	StepManager                 = "Manager"
	StepSetManagerConfig        = "SetManagerConfig"
	StepHistory                 = "History"
	StepHouse                   = "House"
	StepClaimManager            = "ClaimManager"
	StepFeeReceiver             = "FeeReceiver"
	StepUserInfo                = "UserInfo"
	StepProjectTokenManager     = "ProjectTokenManager"
	StepSetProjectManagerConfig = "SetProjectManagerConfig"
	StepCreateTokenContracts    = "CreateTokenContracts"
	StepPlinko                  = "Plinko"
	StepRoulette                = "Roulette"
	StepSlots                   = "Slots"
	StepReverifyContracts       = "ReverifyContracts"
)

// Manifest names. Each matches the artifact it is deployed from.
const (
	GovernanceManager    = "GovernanceManager"
	HistoryManager       = "HistoryManager"
	House                = "House"
	ClaimManager         = "ClaimManager"
	FeeReceiver          = "FeeReceiver"
	TokenWagerViewer     = "TokenWagerViewer"
	UserInfo             = "UserInfo"
	WrappedAsset         = "WrappedAsset"
	TokenHouse           = "TokenHouse"
	WrappedAssetManager  = "WrappedAssetManager"
	HouseManager         = "HouseManager"
	ProjectTokensManager = "ProjectTokensManager"
	Plinko               = "Plinko"
	Roulette             = "Roulette"
	Slots                = "Slots"
)

// All returns every provisioning step.
func All() []provision.Step {
	return []provision.Step{
		verifyContracts(),
		manager(),
		setManagerConfig(),
		history(),
		house(),
		claimManager(),
		feeReceiver(),
		userInfo(),
		projectTokenManager(),
		setProjectManagerConfig(),
		createTokenContracts(),
		plinko(),
		roulette(),
		slots(),
		reverifyContracts(),
	}
}

// NewGraph validates the provisioning sequence.
func NewGraph() (*provision.Graph, error) {
	return provision.NewGraph(All()...)
}

// WrapperName is the manifest name of the wrapper created for a partner token.
func WrapperName(token common.Address) string {
	return "Wrapper:" + token.Hex()
}

// TokenHouseName is the manifest name of the house cloned for a partner token.
func TokenHouseName(token common.Address) string {
	return "TokenHouse:" + token.Hex()
}

// addressOrZero maps an empty setting to the zero address, which the contracts read as
// the native token.
func addressOrZero(value string) common.Address {
	if value == "" {
		return common.Address{}
	}
	return common.HexToAddress(value)
}

// setAddress binds address into a registry setter guarded by its getter.
func setAddress(target, method, getter string, address common.Address) provision.Invocation {
	return provision.Invocation{
		Target: target,
		Method: method,
		Args:   []any{address},
		Getter: getter,
		Want:   address,
	}
}

// markGame authorises a game contract in the registry.
func markGame(game common.Address) provision.Invocation {
	return provision.Invocation{
		Target:     GovernanceManager,
		Method:     "setIsGame",
		Args:       []any{game, true},
		Getter:     "isGame",
		GetterArgs: []any{game},
		Want:       true,
	}
}

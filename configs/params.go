package configs

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Params is the per-environment parameter record consumed by the provisioning steps.
	Params struct {
		Manager        ManagerParams        `mapstructure:"manager"`
		FeeReceiver    FeeReceiverParams    `mapstructure:"fee-receiver"`
		UserInfo       UserInfoParams       `mapstructure:"user-info"`
		TokenContracts TokenContractsParams `mapstructure:"token-contracts"`
		Plinko         PlinkoParams         `mapstructure:"plinko"`
		Roulette       RouletteParams       `mapstructure:"roulette"`
		Slots          SlotsParams          `mapstructure:"slots"`
	}

	ManagerParams struct {
		Owner        string `mapstructure:"owner"`
		FeeSetter    string `mapstructure:"fee-setter"`
		PauseManager string `mapstructure:"pause-manager"`
		SupraRouter  string `mapstructure:"supra-router"`
		SupraClient  string `mapstructure:"supra-client"`
	}

	FeeReceiverParams struct {
		DefaultReceiver string `mapstructure:"default-receiver"`
		Allocation      uint64 `mapstructure:"allocation"`
		// Weth is the wrapped native token; empty means the native token.
		Weth string `mapstructure:"weth"`
	}

	UserInfoParams struct {
		Name   string `mapstructure:"name"`
		Symbol string `mapstructure:"symbol"`
		Weth   string `mapstructure:"weth"`
	}

	TokenContractsParams struct {
		PartnerToken string `mapstructure:"partner-token"`
	}

	BetAmountLimit struct {
		Address string `mapstructure:"address"`
		Amount  string `mapstructure:"amount"`
	}

	// Numeric scalars are decimal or 0x-prefixed strings. Tables are kept as decoded YAML
	// and converted against the contract ABI at call time.
	PlinkoParams struct {
		GameID           string         `mapstructure:"game-id"`
		MinBuyInGas      string         `mapstructure:"min-buy-in-gas"`
		ExtraGasPerBall  string         `mapstructure:"extra-gas-per-ball"`
		GameMode         any            `mapstructure:"game-mode"`
		BucketWeights    any            `mapstructure:"bucket-weights"`
		Payouts          any            `mapstructure:"payouts"`
		BoostOdds        any            `mapstructure:"boost-odds"`
		PayoutReductions any            `mapstructure:"payout-reductions"`
		GasRecipient     string         `mapstructure:"gas-recipient"`
		BetAmountLimit   BetAmountLimit `mapstructure:"bet-amount-limit"`
	}

	RouletteParams struct {
		GameID           string `mapstructure:"game-id"`
		MinBuyInGas      string `mapstructure:"min-buy-in-gas"`
		BuyInGasPerGuess string `mapstructure:"buy-in-gas-per-guess"`
		GasRecipient     string `mapstructure:"gas-recipient"`
	}

	SlotsParams struct {
		GameID           string         `mapstructure:"game-id"`
		Reel1            any            `mapstructure:"reel1"`
		Reel2            any            `mapstructure:"reel2"`
		Reel3            any            `mapstructure:"reel3"`
		MinBuyInGas      string         `mapstructure:"min-buy-in-gas"`
		BuyInGasPerSpin  string         `mapstructure:"buy-in-gas-per-spin"`
		BoostOdds        any            `mapstructure:"boost-odds"`
		PayoutReductions any            `mapstructure:"payout-reductions"`
		PayoutTable      SlotsPayouts   `mapstructure:"payout-table"`
		GasRecipient     string         `mapstructure:"gas-recipient"`
		BetAmountLimit   BetAmountLimit `mapstructure:"bet-amount-limit"`
	}

	SlotsPayouts struct {
		ID1s    any `mapstructure:"id1s"`
		ID2s    any `mapstructure:"id2s"`
		ID3s    any `mapstructure:"id3s"`
		Payouts any `mapstructure:"payouts"`
	}
)

const (
	DefaultFeeAllocation  = 100
	DefaultUserInfoName   = "RON Wagered"
	DefaultUserInfoSymbol = "RONw"
)

// WithDefaults fills optional parameters the steps rely on.
func (p Params) WithDefaults() Params {
	if p.FeeReceiver.Allocation == 0 {
		p.FeeReceiver.Allocation = DefaultFeeAllocation
	}
	if p.UserInfo.Name == "" {
		p.UserInfo.Name = DefaultUserInfoName
	}
	if p.UserInfo.Symbol == "" {
		p.UserInfo.Symbol = DefaultUserInfoSymbol
	}
	return p
}

// Validate checks the registry owner and fee setter.
func (p ManagerParams) Validate() error {
	if isZeroAddress(p.Owner) || isZeroAddress(p.FeeSetter) {
		return newFieldError("owner or feeSetter", "not set")
	}
	if !common.IsHexAddress(p.Owner) {
		return newFieldError("manager.owner", "is not a valid address")
	}
	if !common.IsHexAddress(p.FeeSetter) {
		return newFieldError("manager.fee-setter", "is not a valid address")
	}
	return nil
}

// ValidateWiring checks the external addresses bound into the registry after deployment.
func (p ManagerParams) ValidateWiring() error {
	v := newValidator("manager")
	v.address("pause-manager", p.PauseManager)
	v.address("supra-router", p.SupraRouter)
	v.address("supra-client", p.SupraClient)
	return v.err()
}

func (p FeeReceiverParams) Validate() error {
	if isZeroAddress(p.DefaultReceiver) {
		return newFieldError("Default receiver", "not set")
	}
	v := newValidator("fee-receiver")
	v.address("default-receiver", p.DefaultReceiver)
	v.optionalAddress("weth", p.Weth)
	return v.err()
}

func (p UserInfoParams) Validate() error {
	v := newValidator("user-info")
	v.text("name", p.Name)
	v.text("symbol", p.Symbol)
	v.optionalAddress("weth", p.Weth)
	return v.err()
}

func (p TokenContractsParams) Validate() error {
	v := newValidator("token-contracts")
	v.address("partner-token", p.PartnerToken)
	return v.err()
}

func (p PlinkoParams) Validate() error {
	v := newValidator("plinko")
	v.address("gas-recipient", p.GasRecipient)
	v.integer("game-id", p.GameID)
	v.positive("min-buy-in-gas", p.MinBuyInGas)
	v.positive("extra-gas-per-ball", p.ExtraGasPerBall)
	v.present("game-mode", p.GameMode)
	v.present("bucket-weights", p.BucketWeights)
	v.present("payouts", p.Payouts)
	v.present("boost-odds", p.BoostOdds)
	v.present("payout-reductions", p.PayoutReductions)
	v.betAmountLimit(p.BetAmountLimit)
	return v.err()
}

func (p RouletteParams) Validate() error {
	v := newValidator("roulette")
	v.address("gas-recipient", p.GasRecipient)
	v.integer("game-id", p.GameID)
	v.positive("min-buy-in-gas", p.MinBuyInGas)
	v.positive("buy-in-gas-per-guess", p.BuyInGasPerGuess)
	return v.err()
}

func (p SlotsParams) Validate() error {
	v := newValidator("slots")
	v.address("gas-recipient", p.GasRecipient)
	v.integer("game-id", p.GameID)
	v.present("reel1", p.Reel1)
	v.present("reel2", p.Reel2)
	v.present("reel3", p.Reel3)
	v.positive("min-buy-in-gas", p.MinBuyInGas)
	v.positive("buy-in-gas-per-spin", p.BuyInGasPerSpin)
	v.present("boost-odds", p.BoostOdds)
	v.present("payout-reductions", p.PayoutReductions)
	v.present("payout-table.id1s", p.PayoutTable.ID1s)
	v.present("payout-table.id2s", p.PayoutTable.ID2s)
	v.present("payout-table.id3s", p.PayoutTable.ID3s)
	v.present("payout-table.payouts", p.PayoutTable.Payouts)
	v.betAmountLimit(p.BetAmountLimit)
	return v.err()
}

type validator struct {
	prefix string
	errs   []error
}

func newValidator(prefix string) *validator {
	return &validator{prefix: prefix}
}

func (v *validator) fail(field, reason string) {
	v.errs = append(v.errs, newFieldError(v.prefix+"."+field, reason))
}

func (v *validator) address(field, value string) {
	switch {
	case isZeroAddress(value):
		v.fail(field, "is required")
	case !common.IsHexAddress(value):
		v.fail(field, "is not a valid address")
	}
}

func (v *validator) optionalAddress(field, value string) {
	if value != "" && !common.IsHexAddress(value) {
		v.fail(field, "is not a valid address")
	}
}

func (v *validator) text(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, "is required")
	}
}

func (v *validator) integer(field, value string) {
	if value == "" {
		v.fail(field, "is required")
		return
	}
	if _, ok := parseUint(value); !ok {
		v.fail(field, "must be a non-negative integer")
	}
}

func (v *validator) positive(field, value string) {
	if value == "" {
		v.fail(field, "is required")
		return
	}
	n, ok := parseUint(value)
	if !ok {
		v.fail(field, "must be a non-negative integer")
		return
	}
	if n.Sign() == 0 {
		v.fail(field, "must be greater than zero")
	}
}

func (v *validator) present(field string, value any) {
	if value == nil {
		v.fail(field, "is required")
		return
	}
	if s, ok := value.([]any); ok && len(s) == 0 {
		v.fail(field, "must not be empty")
	}
}

// betAmountLimit accepts the zero address, which denotes the native token.
func (v *validator) betAmountLimit(limit BetAmountLimit) {
	if limit.Address != "" && !common.IsHexAddress(limit.Address) {
		v.fail("bet-amount-limit.address", "is not a valid address")
	}
	v.positive("bet-amount-limit.amount", limit.Amount)
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s parameters are invalid: %w", v.prefix, errors.Join(v.errs...))
}

func isZeroAddress(value string) bool {
	if value == "" {
		return true
	}
	return common.IsHexAddress(value) && common.HexToAddress(value) == (common.Address{})
}

// ParseUint parses a decimal or 0x-prefixed non-negative integer.
func ParseUint(value string) (*big.Int, error) {
	n, ok := parseUint(value)
	if !ok {
		return nil, fmt.Errorf("%q is not a non-negative integer", value)
	}
	return n, nil
}

// ParseInteger parses a decimal or 0x-prefixed integer. Leading zeros stay decimal.
func ParseInteger(value string) (*big.Int, bool) {
	value = strings.TrimSpace(value)
	sign := ""
	if rest, ok := strings.CutPrefix(value, "-"); ok {
		sign, value = "-", rest
	}
	if digits, ok := strings.CutPrefix(strings.ToLower(value), "0x"); ok {
		if digits == "" || strings.ContainsAny(digits, "+-") {
			return nil, false
		}
		return new(big.Int).SetString(sign+digits, 16)
	}
	if sign != "" && strings.HasPrefix(value, "+") {
		return nil, false
	}
	return new(big.Int).SetString(sign+value, 10)
}

func parseUint(value string) (*big.Int, bool) {
	n, ok := ParseInteger(value)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

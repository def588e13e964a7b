package configs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Deployer: Deployer{PrivateKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
		Networks: map[NetworkName]Network{
			"saigon": {RPCURL: "http://saigon", ChainID: 2021, Environment: EnvironmentTestnet},
			"ronin":  {RPCURL: "http://ronin", ChainID: 2020},
		},
		Params: map[Environment]Params{
			EnvironmentTestnet: {Manager: ManagerParams{Owner: "0x1111111111111111111111111111111111111111"}},
			EnvironmentMainnet: {Manager: ManagerParams{Owner: "0x2222222222222222222222222222222222222222"}},
		},
	}
}

func TestConfig_Resolve(t *testing.T) {
	t.Run("selects testnet params for a testnet network", func(t *testing.T) {
		cfg := validConfig()

		target, err := cfg.Resolve("saigon")
		require.NoError(t, err)
		assert.Equal(t, NetworkName("saigon"), target.Name)
		assert.Equal(t, "0x1111111111111111111111111111111111111111", target.Params.Manager.Owner)
	})

	t.Run("networks without an environment use mainnet params", func(t *testing.T) {
		cfg := validConfig()

		target, err := cfg.Resolve("ronin")
		require.NoError(t, err)
		assert.Equal(t, EnvironmentMainnet, target.Network.Environment)
		assert.Equal(t, "0x2222222222222222222222222222222222222222", target.Params.Manager.Owner)
	})

	t.Run("fills defaults", func(t *testing.T) {
		cfg := validConfig()

		target, err := cfg.Resolve("saigon")
		require.NoError(t, err)
		assert.Equal(t, uint64(DefaultConfirmations), target.Network.Confirmations)
		assert.Equal(t, DefaultTimeout, target.Network.Timeout)
		assert.Equal(t, DefaultReverifyContracts, target.Network.Verification.Contracts)
		assert.Equal(t, uint64(DefaultFeeAllocation), target.Params.FeeReceiver.Allocation)
		assert.Equal(t, DefaultUserInfoName, target.Params.UserInfo.Name)
		assert.Equal(t, DefaultUserInfoSymbol, target.Params.UserInfo.Symbol)
	})

	t.Run("read-only resolution does not need a deployer key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Deployer.PrivateKey = ""

		target, err := cfg.ResolveReadOnly("saigon")
		require.NoError(t, err)
		assert.Equal(t, uint64(2021), target.Network.ChainID)
	})

	tests := []struct {
		name     string
		mutate   func(*Config)
		network  NetworkName
		errorMsg string
	}{
		{
			name:     "empty network name",
			mutate:   func(*Config) {},
			network:  "",
			errorMsg: "network is required",
		},
		{
			name:     "unknown network",
			mutate:   func(*Config) {},
			network:  "goerli",
			errorMsg: `unknown network "goerli"`,
		},
		{
			name: "missing rpc url",
			mutate: func(c *Config) {
				n := c.Networks["saigon"]
				n.RPCURL = ""
				c.Networks["saigon"] = n
			},
			network:  "saigon",
			errorMsg: "networks.saigon.rpc-url is required",
		},
		{
			name: "missing chain id",
			mutate: func(c *Config) {
				n := c.Networks["saigon"]
				n.ChainID = 0
				c.Networks["saigon"] = n
			},
			network:  "saigon",
			errorMsg: "networks.saigon.chain-id is required",
		},
		{
			name:     "missing private key",
			mutate:   func(c *Config) { c.Deployer.PrivateKey = "" },
			network:  "saigon",
			errorMsg: "deployer.private-key is required",
		},
		{
			name:     "missing environment params",
			mutate:   func(c *Config) { delete(c.Params, EnvironmentTestnet) },
			network:  "saigon",
			errorMsg: "params.testnet is required",
		},
		{
			name: "verification without endpoint",
			mutate: func(c *Config) {
				n := c.Networks["saigon"]
				n.Verification.Enabled = true
				c.Networks["saigon"] = n
			},
			network:  "saigon",
			errorMsg: "networks.saigon.verification.endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			_, err := cfg.Resolve(tt.network)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestExampleConfig(t *testing.T) {
	cfg, err := ExampleConfig()
	require.NoError(t, err)

	require.Contains(t, cfg.Networks, NetworkName("ronin"))
	require.Contains(t, cfg.Networks, NetworkName("saigon"))
	assert.Equal(t, uint64(2020), cfg.Networks["ronin"].ChainID)
	assert.Equal(t, uint64(2021), cfg.Networks["saigon"].ChainID)
	assert.Equal(t, EnvironmentTestnet, cfg.Networks["saigon"].Environment)
	assert.Equal(t, "https://sourcify.roninchain.com/server/", cfg.Networks["saigon"].Verification.Endpoint)

	testnet := cfg.Params[EnvironmentTestnet]
	assert.NoError(t, testnet.Manager.Validate())
	assert.NoError(t, testnet.Manager.ValidateWiring())
	assert.NoError(t, testnet.FeeReceiver.Validate())
	assert.NoError(t, testnet.Plinko.Validate())
	assert.NoError(t, testnet.Roulette.Validate())
	assert.NoError(t, testnet.Slots.Validate())
	assert.NoError(t, testnet.TokenContracts.Validate())
}

func TestManagerParams_Validate(t *testing.T) {
	tests := []struct {
		name     string
		params   ManagerParams
		errorMsg string
	}{
		{
			name:   "valid",
			params: ManagerParams{Owner: "0x1111111111111111111111111111111111111111", FeeSetter: "0x2222222222222222222222222222222222222222"},
		},
		{
			name:     "missing fee setter",
			params:   ManagerParams{Owner: "0x1111111111111111111111111111111111111111"},
			errorMsg: "owner or feeSetter not set",
		},
		{
			name:     "zero owner",
			params:   ManagerParams{Owner: "0x0000000000000000000000000000000000000000", FeeSetter: "0x2222222222222222222222222222222222222222"},
			errorMsg: "owner or feeSetter not set",
		},
		{
			name:     "malformed owner",
			params:   ManagerParams{Owner: "not-an-address", FeeSetter: "0x2222222222222222222222222222222222222222"},
			errorMsg: "manager.owner is not a valid address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			assert.Equal(t, tt.errorMsg, err.Error())
		})
	}
}

func TestGameParams_Validate(t *testing.T) {
	t.Run("plinko requires gas recipient", func(t *testing.T) {
		err := PlinkoParams{}.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.Contains(t, err.Error(), "plinko.gas-recipient is required")
		assert.Contains(t, err.Error(), "plinko.min-buy-in-gas is required")
		assert.Contains(t, err.Error(), "plinko.bucket-weights is required")
	})

	t.Run("roulette rejects zero gas values", func(t *testing.T) {
		err := RouletteParams{
			GameID:           "2",
			MinBuyInGas:      "0",
			BuyInGasPerGuess: "20000",
			GasRecipient:     "0x4444444444444444444444444444444444444444",
		}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "roulette.min-buy-in-gas must be greater than zero")
	})

	t.Run("slots rejects empty payout table", func(t *testing.T) {
		err := SlotsParams{
			GameID:           "3",
			Reel1:            []any{1},
			Reel2:            []any{1},
			Reel3:            []any{1},
			MinBuyInGas:      "1",
			BuyInGasPerSpin:  "1",
			BoostOdds:        []any{0},
			PayoutReductions: []any{0},
			PayoutTable:      SlotsPayouts{ID1s: []any{}, ID2s: []any{1}, ID3s: []any{1}, Payouts: []any{1}},
			GasRecipient:     "0x4444444444444444444444444444444444444444",
			BetAmountLimit:   BetAmountLimit{Amount: "1"},
		}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slots.payout-table.id1s must not be empty")
	})

	t.Run("fee receiver requires default receiver", func(t *testing.T) {
		err := FeeReceiverParams{}.Validate()
		require.Error(t, err)
		assert.Equal(t, "Default receiver not set", err.Error())
	})
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"42", "42", true},
		{" 010 ", "10", true},
		{"0x10", "16", true},
		{"0XfF", "255", true},
		{"-7", "-7", true},
		{"-0x10", "-16", true},
		{"1_000", "", false},
		{"0x", "", false},
		{"0b101", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseInteger(tt.value)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestParseUint_RejectsNegative(t *testing.T) {
	_, err := ParseUint("-1")
	require.Error(t, err)

	n, err := ParseUint("0100")
	require.NoError(t, err)
	assert.Equal(t, "100", n.String())
}

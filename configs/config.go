package configs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

var Values Config

type (
	NetworkName string
	Environment string

	Config struct {
		Network  NetworkName             `mapstructure:"network"`
		LogLevel string                  `mapstructure:"log-level"`
		Deployer Deployer                `mapstructure:"deployer"`
		Paths    Paths                   `mapstructure:"paths"`
		Networks map[NetworkName]Network `mapstructure:"networks"`
		Params   map[Environment]Params  `mapstructure:"params"`
		DevNode  DevNode                 `mapstructure:"dev-node"`
	}

	Deployer struct {
		PrivateKey string `mapstructure:"private-key"`
	}

	Paths struct {
		Artifacts   string `mapstructure:"artifacts"`
		Deployments string `mapstructure:"deployments"`
	}

	Network struct {
		RPCURL        string        `mapstructure:"rpc-url"`
		ChainID       uint64        `mapstructure:"chain-id"`
		Environment   Environment   `mapstructure:"environment"`
		GasPriceWei   string        `mapstructure:"gas-price-wei"`
		GasLimit      uint64        `mapstructure:"gas-limit"`
		Confirmations uint64        `mapstructure:"confirmations"`
		Timeout       time.Duration `mapstructure:"timeout"`
		Verification  Verification  `mapstructure:"verification"`
	}

	Verification struct {
		Enabled   bool     `mapstructure:"enabled"`
		Endpoint  string   `mapstructure:"endpoint"`
		Contracts []string `mapstructure:"contracts"`
	}

	DevNode struct {
		Image         string `mapstructure:"image"`
		ContainerName string `mapstructure:"container-name"`
		Port          int    `mapstructure:"port"`
		ChainID       uint64 `mapstructure:"chain-id"`
	}

	// Target is the immutable record a provisioning run works against.
	Target struct {
		Name       NetworkName
		Network    Network
		Params     Params
		PrivateKey string
	}
)

const (
	EnvironmentMainnet Environment = "mainnet"
	EnvironmentTestnet Environment = "testnet"

	DefaultConfirmations = 5
	DefaultTimeout       = 2 * time.Minute
)

// DefaultReverifyContracts is the contract list submitted by the re-verification step
// when the network does not override it.
var DefaultReverifyContracts = []string{
	"GovernanceManager",
	"WrappedAssetManager",
	"HouseManager",
	"TokenHouse",
	"ProjectTokensManager",
	"FeeReceiver",
	"HistoryManager",
	"Slots",
	"UserInfo",
	"TokenWagerViewer",
}

// Resolve selects the network record and the parameter set of its environment.
// Network-level fields are validated here; step parameters are validated by the
// steps that consume them.
func (c *Config) Resolve(name NetworkName) (Target, error) {
	return c.resolve(name, true)
}

// ResolveReadOnly resolves like Resolve but does not require a deployer key. It serves
// commands that only read the manifest.
func (c *Config) ResolveReadOnly(name NetworkName) (Target, error) {
	return c.resolve(name, false)
}

func (c *Config) resolve(name NetworkName, signing bool) (Target, error) {
	if name == "" {
		return Target{}, newFieldError("network", "is required")
	}

	network, ok := c.Networks[name]
	if !ok {
		known := lo.Map(lo.Keys(c.Networks), func(n NetworkName, _ int) string { return string(n) })
		sort.Strings(known)
		return Target{}, newFieldError("network", fmt.Sprintf("unknown network %q (known: %v)", name, known))
	}

	network = network.withDefaults()
	field := func(f string) string { return fmt.Sprintf("networks.%s.%s", name, f) }

	var errs []error
	if network.RPCURL == "" {
		errs = append(errs, newFieldError(field("rpc-url"), "is required"))
	}
	if network.ChainID == 0 {
		errs = append(errs, newFieldError(field("chain-id"), "is required"))
	}
	if network.Environment != EnvironmentMainnet && network.Environment != EnvironmentTestnet {
		errs = append(errs, newFieldError(field("environment"), "must be either 'mainnet' or 'testnet'"))
	}
	if network.GasPriceWei != "" {
		if _, ok := parseUint(network.GasPriceWei); !ok {
			errs = append(errs, newFieldError(field("gas-price-wei"), "must be a non-negative integer"))
		}
	}
	if network.Verification.Enabled && network.Verification.Endpoint == "" {
		errs = append(errs, newFieldError(field("verification.endpoint"), "is required when verification is enabled"))
	}
	if signing && c.Deployer.PrivateKey == "" {
		errs = append(errs, newFieldError("deployer.private-key", "is required"))
	}

	params, ok := c.Params[network.Environment]
	if !ok {
		errs = append(errs, newFieldError(fmt.Sprintf("params.%s", network.Environment), "is required"))
	}

	if len(errs) > 0 {
		return Target{}, fmt.Errorf("network %s configuration validation failed: %w", name, errors.Join(errs...))
	}

	return Target{
		Name:       name,
		Network:    network,
		Params:     params.WithDefaults(),
		PrivateKey: c.Deployer.PrivateKey,
	}, nil
}

func (n Network) withDefaults() Network {
	if n.Environment == "" {
		n.Environment = EnvironmentMainnet
	}
	if n.Confirmations == 0 {
		n.Confirmations = DefaultConfirmations
	}
	if n.Timeout == 0 {
		n.Timeout = DefaultTimeout
	}
	if len(n.Verification.Contracts) == 0 {
		n.Verification.Contracts = DefaultReverifyContracts
	}
	return n
}

package configs

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const EnvPrefix = "PROVISIONER"

var (
	//go:embed config.example.yaml
	exampleConfigYAML string

	exampleConfigOnce sync.Once
	exampleConfig     Config
	exampleConfigErr  error
)

// RegisterDefaults sets the values used when neither the config file nor flags provide them.
func RegisterDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("paths.artifacts", "artifacts")
	v.SetDefault("paths.deployments", "deployments")
	v.SetDefault("dev-node.image", "ghcr.io/foundry-rs/foundry:stable")
	v.SetDefault("dev-node.container-name", "provisioner-devnode")
	v.SetDefault("dev-node.port", 8545)
	v.SetDefault("dev-node.chain-id", 31337)
}

// BindEnv maps PROVISIONER_* variables onto config keys, e.g. PROVISIONER_DEPLOYER_PRIVATE_KEY.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("deployer.private-key")
	_ = v.BindEnv("network")
}

// ExampleConfig returns the parsed embedded config.example.yaml.
func ExampleConfig() (Config, error) {
	exampleConfigOnce.Do(func() {
		v := viper.New()
		v.SetConfigType("yaml")
		RegisterDefaults(v)
		if err := v.ReadConfig(strings.NewReader(exampleConfigYAML)); err != nil {
			exampleConfigErr = fmt.Errorf("failed to read embedded config.example.yaml: %w", err)
			return
		}

		if err := v.Unmarshal(&exampleConfig); err != nil {
			exampleConfigErr = fmt.Errorf("failed to decode embedded config.example.yaml: %w", err)
			return
		}
	})

	if exampleConfigErr != nil {
		return Config{}, exampleConfigErr
	}

	return exampleConfig, nil
}

// ExampleYAML returns the raw embedded example, used by `config init`.
func ExampleYAML() []byte {
	return []byte(exampleConfigYAML)
}

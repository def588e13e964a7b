package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type (
	flagType interface {
		string | int
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	stringFlags = []flagDef[string]{
		{"network", "network", "", "Network to provision, as named under networks in the config file"},
		{"private-key", "deployer.private-key", "", "Deployer private key (prefer PROVISIONER_DEPLOYER_PRIVATE_KEY)"},
		{"artifacts", "paths.artifacts", "artifacts", "Directory holding compiled contract artifacts"},
		{"deployments", "paths.deployments", "deployments", "Directory holding per-network manifests"},
		{"log-level", "log-level", "info", "Log level (debug, info, warn, error)"},
	}

	intFlags = []flagDef[int]{
		{"devnode-port", "dev-node.port", 8545, "Host port of the local dev node"},
	}
)

// bindFlags registers the persistent flags and binds each one to its viper key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()

	for _, f := range stringFlags {
		flags.String(f.name, f.defaultValue, f.description)
		if err := v.BindPFlag(f.viperKey, flags.Lookup(f.name)); err != nil {
			return err
		}
	}
	for _, f := range intFlags {
		flags.Int(f.name, f.defaultValue, f.description)
		if err := v.BindPFlag(f.viperKey, flags.Lookup(f.name)); err != nil {
			return err
		}
	}

	return nil
}

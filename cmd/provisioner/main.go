package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/deploy"
	"github.com/lgns/provisioner/internal/devnode"
	"github.com/lgns/provisioner/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "provisioner"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Idempotent contract provisioning for the platform's networks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for _, envFile := range []string{".env", ".env.local"} {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return errors.Join(err, fmt.Errorf("error reading %s", envFile))
			}
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if execPath, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(execPath))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		configLoaded := true
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
			configLoaded = false
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		level, err := logger.ParseLevel(configs.Values.LogLevel)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		if configLoaded {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		} else {
			slog.Debug("no config file found, relying on flags, environment and defaults")
		}
		slog.With("network", configs.Values.Network).With("networks", len(configs.Values.Networks)).Debug("configuration loaded")

		return nil
	},
}

func main() {
	v := viper.GetViper()
	configs.RegisterDefaults(v)
	configs.BindEnv(v)

	if err := bindFlags(rootCmd, v); err != nil {
		slog.With("err", err.Error()).Error("failed to bind flags")
		os.Exit(1)
	}

	rootCmd.AddCommand(deploy.CMD)
	rootCmd.AddCommand(deploy.ManifestCMD)
	rootCmd.AddCommand(devnode.CMD)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.With("err", err.Error()).Error("command failed")
		os.Exit(1)
	}
}

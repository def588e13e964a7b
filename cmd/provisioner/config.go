package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/lgns/provisioner/configs"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the provisioner config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the example config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}

		if err := os.WriteFile(path, configs.ExampleYAML(), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ wrote %s, fill in the networks and params before deploying\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
}

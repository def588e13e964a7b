package devnode

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/lgns/provisioner/configs"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "devnode",
	Short: "Manage a local anvil node for rehearsing provisioning runs",
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dev node container",
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := New(configs.Values.DevNode)
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		defer node.Close()

		if err := node.Start(cmd.Context()); err != nil {
			return err
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ dev node running at %s (chain %d)\n", node.RPCURL(), configs.Values.DevNode.ChainID)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop and remove the dev node container",
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := New(configs.Values.DevNode)
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		defer node.Close()

		return node.Stop(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the dev node is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := New(configs.Values.DevNode)
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		defer node.Close()

		status, err := node.Status(cmd.Context())
		if err != nil {
			return err
		}

		slog.With("exists", status.Exists).With("running", status.Running).Debug("dev node status")

		out := cmd.OutOrStdout()
		if status.Running {
			color.New(color.FgGreen).Fprintf(out, "🟢 running at %s\n", status.RPCURL)
		} else {
			color.New(color.FgYellow).Fprintln(out, "🔴 not running")
		}
		return nil
	},
}

func init() {
	CMD.AddCommand(startCmd, stopCmd, statusCmd)
}

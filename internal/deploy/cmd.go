package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/artifacts"
	"github.com/lgns/provisioner/internal/chain"
	fsjson "github.com/lgns/provisioner/internal/infra/filesystem/json"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/output"
	"github.com/lgns/provisioner/internal/provision"
	"github.com/lgns/provisioner/internal/steps"
	"github.com/lgns/provisioner/internal/verify"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the configured network",
	Long: "Runs every selected provisioning step against the configured network. Steps already " +
		"recorded in the manifest are skipped, so an interrupted run can simply be repeated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}

		slog.With("network", configs.Values.Network).With("tags", opts.Tags).Info("starting deploy command")

		return provisionNetwork(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the steps a deploy would run, without touching the chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}

		target, err := configs.Values.ResolveReadOnly(configs.Values.Network)
		if err != nil {
			return err
		}

		service, err := newService()
		if err != nil {
			return err
		}

		plan, m, err := service.Plan(target, opts.Tags)
		if err != nil {
			return err
		}

		return newRenderer(cmd.OutOrStdout()).RenderPlan(plan, m, opts.Rerun)
	},
}

func init() {
	CMD.PersistentFlags().StringSlice("tags", nil, "Only run steps carrying one of these tags (and their dependencies)")
	CMD.PersistentFlags().Bool("rerun", false, "Run steps even when the manifest records them as completed")

	CMD.AddCommand(planCmd)
}

func runOptions(cmd *cobra.Command) (provision.Options, error) {
	tags, err := cmd.Flags().GetStringSlice("tags")
	if err != nil {
		return provision.Options{}, err
	}
	rerun, err := cmd.Flags().GetBool("rerun")
	if err != nil {
		return provision.Options{}, err
	}
	return provision.Options{Tags: tags, Rerun: rerun}, nil
}

func provisionNetwork(ctx context.Context, out io.Writer, opts provision.Options) error {
	target, err := configs.Values.Resolve(configs.Values.Network)
	if err != nil {
		return err
	}

	contracts, err := artifacts.Load(configs.Values.Paths.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	client, err := chain.Dial(ctx, target.Network, target.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target.Name, err)
	}
	defer client.Close()

	service, err := newService()
	if err != nil {
		return err
	}

	backends := Backends{Chain: client, Artifacts: contracts}
	if target.Network.Verification.Enabled {
		backends.Verifier = verify.NewSubmitter(
			verify.NewClient(target.Network.Verification.Endpoint, nil),
			contracts,
			target.Network.ChainID,
		)
	}

	report, runErr := service.Provision(ctx, target, backends, opts)
	if err := newRenderer(out).RenderReport(report); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}

	color.New(color.FgGreen).Fprintf(out, "✅ %s provisioned\n", target.Name)
	return nil
}

func newService() (*Service, error) {
	graph, err := steps.NewGraph()
	if err != nil {
		return nil, fmt.Errorf("invalid step graph: %w", err)
	}
	return NewService(graph, newManifestStore()), nil
}

func newManifestStore() *manifest.Store {
	return manifest.NewStore(configs.Values.Paths.Deployments, fsjson.NewReader(), fsjson.NewWriter())
}

func newRenderer(out io.Writer) *output.Renderer {
	return output.NewRenderer(out, !color.NoColor && out == os.Stdout)
}

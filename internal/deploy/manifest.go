package deploy

import (
	"fmt"

	"github.com/lgns/provisioner/configs"
	fsjson "github.com/lgns/provisioner/internal/infra/filesystem/json"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/output"
	"github.com/spf13/cobra"
)

var ManifestCMD = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect the deployment manifest of the configured network",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active contract records",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		return newRenderer(cmd.OutOrStdout()).RenderManifest(m)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contract addresses as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}

		data, err := output.Export(m)
		if err != nil {
			return err
		}

		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if out == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		if err := fsjson.NewWriter().WriteBytes(out, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d contracts to %s\n", len(m.ActiveRecords()), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "Write the export to this file instead of stdout")

	ManifestCMD.AddCommand(listCmd, exportCmd)
}

func loadManifest() (*manifest.Manifest, error) {
	target, err := configs.Values.ResolveReadOnly(configs.Values.Network)
	if err != nil {
		return nil, err
	}

	service, err := newService()
	if err != nil {
		return nil, err
	}

	return service.Manifest(target)
}

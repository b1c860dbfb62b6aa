package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Validate returns the command that checks a manifest without planning or
// dispatching. The exit code is non-zero when any error-severity finding is
// present; warnings alone pass.
func Validate() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a deployment manifest",
		Long: `Validate a deployment manifest.

Checks the manifest structure, target specifications and per-backend
resource naming rules. Errors fail the command; warnings are printed but
do not.

Examples:
  # Validate the manifest in the current directory
  cloudplane validate

  # Validate a specific manifest
  cloudplane validate -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to manifest file (default: cloudplane.yaml)")

	return cmd
}

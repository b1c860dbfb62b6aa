package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Plan returns the command that shows what a deployment would create.
//
// Planning resolves the manifest's target specifications, allocates
// non-overlapping address ranges, derives per-target resource names and
// validates per-backend constraints. Nothing is dispatched.
//
// Optional flags:
//
//	--config, -c: Path to manifest file (default: auto-detect cloudplane.yaml)
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a deployment would create",
		Long: `Show what a deployment would create, without creating anything.

The plan resolves targets, allocates address ranges and derives the exact
per-target resource names a later apply will use.

If no manifest is specified, cloudplane looks for cloudplane.yaml (or .yml,
.hcl) in the current directory and its parents.

Examples:
  # Plan using the manifest in the current directory
  cloudplane plan

  # Plan a specific manifest
  cloudplane plan -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to manifest file (default: cloudplane.yaml)")

	return cmd
}

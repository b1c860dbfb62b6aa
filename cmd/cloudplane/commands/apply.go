package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Apply returns the command that dispatches a deployment manifest.
//
// Apply resolves and validates the manifest exactly like plan, then fans
// creation calls out to the configured backends in dependency order:
// networks, clusters, DNS zones, secret stores, state backends.
//
// Optional flags:
//
//	--config, -c: Path to manifest file (default: auto-detect cloudplane.yaml)
//	--dry-run:    Dispatch against in-memory providers instead of real backends
//	--verbose:    Print every dispatch lifecycle event
//
// Environment variables:
//
//	HCLOUD_TOKEN:           Hetzner Cloud API token
//	HETZNER_DNS_TOKEN:      Hetzner DNS API token
//	HETZNER_S3_ACCESS_KEY:  Hetzner Object Storage access key
//	HETZNER_S3_SECRET_KEY:  Hetzner Object Storage secret key
func Apply() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create the deployment's resources",
		Long: `Create or update the resources a deployment manifest describes.

Resources are dispatched in dependency order; a cluster always attaches to
the network of the same backend. Multi-target resources are created on all
their backends concurrently.

With --dry-run the dispatch runs against recording in-memory providers for
every backend, so the full fan-out can be exercised without credentials.

Examples:
  # Apply the manifest in the current directory
  cloudplane apply

  # Exercise the full dispatch without touching any backend
  cloudplane apply --dry-run

  # Apply a specific manifest with verbose progress
  cloudplane apply -c production.yaml --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), handlers.ApplyOptions{
				ConfigPath: configPath,
				DryRun:     dryRun,
				Verbose:    verbose,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to manifest file (default: cloudplane.yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dispatch against in-memory providers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every dispatch lifecycle event")

	return cmd
}

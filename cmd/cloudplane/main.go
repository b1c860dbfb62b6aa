// Package main is the entry point for the cloudplane CLI.
//
// cloudplane plans and dispatches declarative multi-cloud deployments: one
// manifest describes networks, clusters, DNS zones, secret stores and state
// backends, and cloudplane resolves targets, plans non-overlapping address
// ranges, validates per-backend constraints and fans creation out to every
// configured backend.
//
// Commands: plan, validate, apply, version, completion.
//
// For detailed usage information, run:
//
//	cloudplane --help
package main

import (
	"fmt"
	"os"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/ui"
	"github.com/cloudplane/cloudplane/internal/validate"
)

// Validate checks the manifest without planning addresses or dispatching:
// structural manifest validation first, then per-resource target
// resolution and naming rules against every targeted backend. Warnings
// print but do not fail the run; any error-severity finding does.
func Validate(_ context.Context, configPath string) error {
	path := configPath
	if path == "" {
		found, err := findManifest()
		if err != nil {
			return fmt.Errorf("no manifest found: %w\nCreate cloudplane.yaml or pass --config", err)
		}
		path = found
	}

	m, err := loadRawManifestFile(path)
	if err != nil {
		return err
	}

	r := ui.NewRenderer(output)
	r.Infof("validating %s", path)

	failed := false
	if err := m.Validate(); err != nil {
		failed = true
		for _, line := range strings.Split(err.Error(), "\n") {
			r.Errorf("%s", line)
		}
	}

	check := func(kind, name string, override cloud.TargetSpec) {
		scope := kind + "/" + name
		targets, err := cloud.Resolve(m.TargetsFor(override))
		if err != nil {
			// unresolvable targets were already reported by m.Validate above
			return
		}
		res := validate.MultiTarget(targets, name)
		if len(res.Issues) == 0 {
			r.ValidationOK(scope)
			return
		}
		r.Issues(scope, res.Issues)
		if !res.Valid() {
			failed = true
		}
	}

	for _, s := range m.Resources.Networks {
		check("network", s.Name, s.Targets)
	}
	for _, s := range m.Resources.Clusters {
		check("cluster", s.Name, s.Targets)
	}
	for _, s := range m.Resources.DNSZones {
		check("dns-zone", s.Name, s.Targets)
	}
	for _, s := range m.Resources.SecretStores {
		check("secret-store", s.Name, s.Targets)
	}
	for _, s := range m.Resources.StateBackends {
		check("state-backend", s.Name, s.Targets)
	}

	if failed {
		return clouderr.New(clouderr.CodeCloudValidation, "manifest has validation errors")
	}
	r.ValidationOK("manifest is valid")
	return nil
}

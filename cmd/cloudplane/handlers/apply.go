// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/config"
	"github.com/cloudplane/cloudplane/internal/dispatch"
	"github.com/cloudplane/cloudplane/internal/platform/hetzner"
	"github.com/cloudplane/cloudplane/internal/platform/memory"
	"github.com/cloudplane/cloudplane/internal/ui"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findManifest locates the manifest when no --config path is given.
	findManifest = config.Find

	// loadManifestFile loads, defaults and validates a manifest.
	loadManifestFile = config.Load

	// loadRawManifestFile loads a manifest without validating it.
	loadRawManifestFile = config.LoadWithoutValidation

	// parseSettings sources provider settings from the environment.
	parseSettings = SettingsFromEnv

	// newRegistry builds the provider registry for one apply run.
	newRegistry = buildRegistry

	// output receives all rendered command output.
	output io.Writer = os.Stdout
)

// ApplyOptions carries the apply command's flags.
type ApplyOptions struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
}

// Apply dispatches every resource in the manifest through one session, in
// dependency order: networks first, then the clusters that attach to them,
// then DNS zones, secret stores and state backends.
//
// With DryRun set the same pipeline runs against recording in-memory
// providers for every backend, so target resolution, naming, address
// planning and validation are exercised without touching any cloud API.
func Apply(ctx context.Context, opts ApplyOptions) error {
	m, path, err := loadManifest(opts.ConfigPath)
	if err != nil {
		return err
	}

	settings, err := parseSettings()
	if err != nil {
		return err
	}

	r := ui.NewRenderer(output)
	r.Infof("applying %s (manifest %s)", m.Metadata.Name, path)
	if opts.DryRun {
		r.Infof("dry-run: dispatching against in-memory providers")
	}

	session := dispatch.NewSession(newRegistry(settings, opts.DryRun), dispatch.SessionOptions{
		Deployment: m.Metadata.Name,
		Logger:     verboseLogger(opts.Verbose),
		Observer:   ui.NewProgress(r, opts.Verbose),
	})

	rows, err := applyResources(ctx, session, m)
	if err != nil {
		r.Errorf("apply failed: %v", err)
		return err
	}

	r.Results(m.Metadata.Name, rows)
	return nil
}

// loadManifest resolves the manifest path (explicit or auto-detected) and
// loads it with defaults and validation applied.
func loadManifest(configPath string) (*config.Manifest, string, error) {
	path := configPath
	if path == "" {
		found, err := findManifest()
		if err != nil {
			return nil, "", fmt.Errorf("no manifest found: %w\nCreate cloudplane.yaml or pass --config", err)
		}
		path = found
	}

	m, err := loadManifestFile(path)
	if err != nil {
		return nil, "", err
	}
	return m, path, nil
}

// buildRegistry wires the provider registry for one apply run. Dry runs
// register the recording in-memory provider for every backend. Real runs
// register only the compiled-in providers; targets pointing at any other
// backend fail at dispatch time with a clear "not available" error.
func buildRegistry(settings Settings, dryRun bool) *dispatch.Registry {
	registry := dispatch.NewRegistry()

	if dryRun {
		for _, b := range cloud.All() {
			registry.Register(b, memoryFactory(b))
		}
		return registry
	}

	registry.Register(cloud.BackendHetzner, hetzner.Factory(hetzner.Settings{
		Token:       settings.HCloudToken,
		DNSToken:    settings.HetznerDNSToken,
		S3AccessKey: settings.HetznerS3AccessKey,
		S3SecretKey: settings.HetznerS3SecretKey,
		ServerType:  settings.HetznerServerType,
		NetworkZone: settings.HetznerNetworkZone,
	}))
	return registry
}

// memoryFactory builds an in-memory provider for b, scoped when the
// backend demands a scope.
func memoryFactory(b cloud.Backend) dispatch.ProviderFactory {
	return func() (dispatch.Provider, error) {
		if cloud.RequiresScope(b) {
			return memory.NewScoped(b), nil
		}
		return memory.New(b), nil
	}
}

// applyResources walks the manifest in dependency order. Network results
// are collected by spec name so each cluster can hand its backend-matched
// network to the session.
func applyResources(ctx context.Context, session *dispatch.Session, m *config.Manifest) ([]ui.ResultRow, error) {
	var rows []ui.ResultRow
	networks := make(map[string][]dispatch.NetworkResult, len(m.Resources.Networks))

	for _, spec := range m.Resources.Networks {
		results, err := session.CreateNetwork(ctx, spec.Name, dispatch.NetworkConfig{
			Targets: m.TargetsFor(spec.Targets),
			CIDR:    spec.CIDR,
			NAT:     dispatch.NATStrategy(spec.NAT),
			Tags:    mergeTags(m.Metadata.Tags, spec.Tags),
		}, m.Options)
		if err != nil {
			return nil, err
		}
		networks[spec.Name] = results
		for _, res := range results {
			rows = append(rows, ui.ResultRow{
				Kind:   string(dispatch.KindNetwork),
				Name:   res.Name,
				Target: res.Target.String(),
				ID:     res.ID,
				Detail: strings.Join(res.AddressRanges, ", "),
			})
		}
	}

	for _, spec := range m.Resources.Clusters {
		results, err := session.CreateCluster(ctx, spec.Name, dispatch.ClusterConfig{
			Targets: m.TargetsFor(spec.Targets),
			Version: spec.Version,
			Nodes:   spec.Nodes,
			Tags:    mergeTags(m.Metadata.Tags, spec.Tags),
		}, networks[spec.Network], m.Options)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			rows = append(rows, ui.ResultRow{
				Kind:   string(dispatch.KindCluster),
				Name:   res.Name,
				Target: res.Target.String(),
				ID:     res.ID,
				Detail: res.Endpoint,
			})
		}
	}

	for _, spec := range m.Resources.DNSZones {
		results, err := session.CreateDNSZone(ctx, spec.Name, dispatch.DNSZoneConfig{
			Targets: m.TargetsFor(spec.Targets),
			Domain:  spec.Domain,
			Tags:    mergeTags(m.Metadata.Tags, spec.Tags),
		}, m.Options)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			rows = append(rows, ui.ResultRow{
				Kind:   string(dispatch.KindDNSZone),
				Name:   res.Name,
				Target: res.Target.String(),
				ID:     res.ID,
				Detail: res.Domain,
			})
		}
	}

	for _, spec := range m.Resources.SecretStores {
		results, err := session.CreateSecretStore(ctx, spec.Name, dispatch.SecretStoreConfig{
			Targets: m.TargetsFor(spec.Targets),
			Tags:    mergeTags(m.Metadata.Tags, spec.Tags),
		}, m.Options)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			rows = append(rows, ui.ResultRow{
				Kind:   string(dispatch.KindSecretStore),
				Name:   res.Name,
				Target: res.Target.String(),
				ID:     res.ID,
				Detail: res.URI,
			})
		}
	}

	for _, spec := range m.Resources.StateBackends {
		versioning := spec.Versioning == nil || *spec.Versioning
		results, err := session.CreateStateBackend(ctx, spec.Name, dispatch.StateBackendConfig{
			Targets:    m.TargetsFor(spec.Targets),
			Versioning: versioning,
			Tags:       mergeTags(m.Metadata.Tags, spec.Tags),
		}, m.Options)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			rows = append(rows, ui.ResultRow{
				Kind:   string(dispatch.KindStateBackend),
				Name:   res.Name,
				Target: res.Target.String(),
				ID:     res.ID,
				Detail: res.Endpoint,
			})
		}
	}

	return rows, nil
}

// mergeTags layers resource tags over the deployment-wide tags; the
// resource wins on conflicts.
func mergeTags(deployment, resource map[string]string) map[string]string {
	if len(deployment) == 0 {
		return resource
	}
	merged := make(map[string]string, len(deployment)+len(resource))
	for k, v := range deployment {
		merged[k] = v
	}
	for k, v := range resource {
		merged[k] = v
	}
	return merged
}

// verboseLogger returns a stderr-style line logger when verbose is set and
// a discarding logger otherwise.
func verboseLogger(verbose bool) logr.Logger {
	if !verbose {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(output, prefix, args)
			return
		}
		fmt.Fprintln(output, args)
	}, funcr.Options{})
}

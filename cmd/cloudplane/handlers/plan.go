package handlers

import (
	"context"
	"fmt"

	"github.com/cloudplane/cloudplane/internal/cidr"
	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/config"
	"github.com/cloudplane/cloudplane/internal/dispatch"
	"github.com/cloudplane/cloudplane/internal/ui"
	"github.com/cloudplane/cloudplane/internal/validate"
)

// Plan renders what apply would create: resolved targets, per-target
// resource names, planned address ranges and validation warnings. Nothing
// is dispatched and no provider is constructed.
func Plan(_ context.Context, configPath string) error {
	m, path, err := loadManifest(configPath)
	if err != nil {
		return err
	}

	summary, err := buildPlan(m, path)
	if err != nil {
		return err
	}

	ui.NewRenderer(output).Plan(*summary)
	return nil
}

// planner accumulates rows and warnings while walking the manifest in
// dispatch order. It applies the same resolution, naming and feature
// checks the session applies, so a clean plan is a strong predictor of a
// clean apply.
type planner struct {
	manifest *config.Manifest
	summary  ui.PlanSummary
	seen     map[string]bool

	// networkNames maps manifest network name and backend to the planned
	// per-target resource name, for cluster attachment rows.
	networkNames map[string]map[cloud.Backend]string

	// warnedProject suppresses repeat project-id warnings per backend.
	warnedProject map[cloud.Backend]bool
}

func buildPlan(m *config.Manifest, source string) (*ui.PlanSummary, error) {
	p := &planner{
		manifest:      m,
		summary:       ui.PlanSummary{Deployment: m.Metadata.Name, Source: source},
		seen:          map[string]bool{},
		networkNames:  map[string]map[cloud.Backend]string{},
		warnedProject: map[cloud.Backend]bool{},
	}

	if err := p.networks(); err != nil {
		return nil, err
	}
	if err := p.clusters(); err != nil {
		return nil, err
	}
	if err := p.dnsZones(); err != nil {
		return nil, err
	}
	if err := p.secretStores(); err != nil {
		return nil, err
	}
	if err := p.stateBackends(); err != nil {
		return nil, err
	}

	return &p.summary, nil
}

func (p *planner) networks() error {
	for _, spec := range p.manifest.Resources.Networks {
		targets, names, err := p.resolve(dispatch.KindNetwork, spec.Name, spec.Targets)
		if err != nil {
			return err
		}

		nat := dispatch.NATStrategy(spec.NAT)
		if nat == dispatch.NATGateway {
			for _, t := range targets {
				if err := validate.Feature(cloud.CapabilityNATGateway, t.Backend); err != nil {
					return err
				}
			}
		}

		explicit := map[string]string{}
		if spec.CIDR != "" {
			explicit[names[0]] = spec.CIDR
		}
		ranges, err := cidr.BuildMap(names, explicit)
		if err != nil {
			return err
		}

		byBackend := make(map[cloud.Backend]string, len(targets))
		for i, t := range targets {
			detail := "cidr " + ranges[names[i]]
			if nat == dispatch.NATGateway || nat == dispatch.NATInstance {
				detail += ", nat " + string(nat)
			}
			p.row(dispatch.KindNetwork, names[i], t, detail)
			byBackend[t.Backend] = names[i]
		}
		p.networkNames[spec.Name] = byBackend
	}
	return nil
}

func (p *planner) clusters() error {
	for _, spec := range p.manifest.Resources.Clusters {
		targets, names, err := p.resolve(dispatch.KindCluster, spec.Name, spec.Targets)
		if err != nil {
			return err
		}

		coverage := p.networkNames[spec.Network]
		for i, t := range targets {
			networkName, ok := coverage[t.Backend]
			if !ok {
				return clouderr.Newf(clouderr.CodeUnsupportedFeature,
					"no match found: network %q is not planned on backend %s", spec.Network, t.Backend)
			}
			detail := fmt.Sprintf("%d nodes on %s", spec.Nodes, networkName)
			if spec.Version != "" {
				detail = fmt.Sprintf("%s, %s", spec.Version, detail)
			}
			p.row(dispatch.KindCluster, names[i], t, detail)
		}
	}
	return nil
}

func (p *planner) dnsZones() error {
	for _, spec := range p.manifest.Resources.DNSZones {
		targets, names, err := p.resolve(dispatch.KindDNSZone, spec.Name, spec.Targets)
		if err != nil {
			return err
		}
		for i, t := range targets {
			p.row(dispatch.KindDNSZone, names[i], t, "zone "+spec.Domain)
		}
	}
	return nil
}

func (p *planner) secretStores() error {
	for _, spec := range p.manifest.Resources.SecretStores {
		targets, names, err := p.resolve(dispatch.KindSecretStore, spec.Name, spec.Targets)
		if err != nil {
			return err
		}
		for i, t := range targets {
			p.row(dispatch.KindSecretStore, names[i], t, "managed store")
		}
	}
	return nil
}

func (p *planner) stateBackends() error {
	for _, spec := range p.manifest.Resources.StateBackends {
		targets, names, err := p.resolve(dispatch.KindStateBackend, spec.Name, spec.Targets)
		if err != nil {
			return err
		}
		versioning := "versioning on"
		if spec.Versioning != nil && !*spec.Versioning {
			versioning = "versioning off"
		}
		for i, t := range targets {
			p.row(dispatch.KindStateBackend, names[i], t, versioning)
		}
	}
	return nil
}

// resolve resolves one resource's effective targets, validates naming and
// duplicates, and checks the kind against each backend's capabilities.
// Warning-severity findings land in the plan summary; errors abort.
func (p *planner) resolve(kind dispatch.Kind, name string, override cloud.TargetSpec) ([]cloud.ResolvedTarget, []string, error) {
	targets, err := cloud.Resolve(p.manifest.TargetsFor(override))
	if err != nil {
		return nil, nil, err
	}

	res := validate.MultiTarget(targets, name)
	for _, w := range res.Warnings() {
		p.warnf("%s %s: %s", kind, name, w.Message)
	}
	if err := res.Err(); err != nil {
		return nil, nil, err
	}

	for _, t := range targets {
		if err := validate.Feature(kind.Capability(), t.Backend); err != nil {
			return nil, nil, err
		}
		p.checkProject(t.Backend)
	}

	return targets, dispatch.PerTargetNames(name, targets), nil
}

// checkProject warns once per backend when a mandatory project id is
// missing from the options. Apply fails hard on the same condition; plan
// keeps going so the rest of the manifest still renders.
func (p *planner) checkProject(b cloud.Backend) {
	if !cloud.RequiresProject(b) || p.warnedProject[b] {
		return
	}
	gcp, ok := p.manifest.Options.For(b).(cloud.GCPOptions)
	if !ok || gcp.ProjectID == "" {
		p.warnedProject[b] = true
		p.warnf("backend %s requires a project id in its options; apply will fail without one", b)
	}
}

func (p *planner) row(kind dispatch.Kind, name string, t cloud.ResolvedTarget, detail string) {
	if !p.seen[t.String()] {
		p.seen[t.String()] = true
		p.summary.Targets = append(p.summary.Targets, t.String())
	}
	p.summary.Rows = append(p.summary.Rows, ui.PlanRow{
		Kind:   string(kind),
		Name:   name,
		Target: t.String(),
		Detail: detail,
	})
}

func (p *planner) warnf(format string, args ...any) {
	p.summary.Warnings = append(p.summary.Warnings, fmt.Sprintf(format, args...))
}

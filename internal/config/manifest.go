// Package config defines the versioned deployment manifest and its loaders.
//
// The [Manifest] struct is the canonical representation of a deployment's
// desired state: the target backends, per-backend options, and the resources
// to dispatch (networks, clusters, DNS zones, secret stores, state backends).
// It is produced from a YAML or HCL file and validated before any planning
// runs.
package config

import (
	"errors"
	"fmt"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/dispatch"
)

const (
	// APIVersion is the manifest schema version this build understands.
	APIVersion = "cloudplane.io/v1alpha1"

	// KindDeployment is the only manifest kind.
	KindDeployment = "Deployment"

	// DefaultClusterNodes is the node count applied when a cluster spec
	// leaves it unset.
	DefaultClusterNodes = 3
)

// Manifest is a versioned deployment manifest.
type Manifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind,omitempty"`
	Metadata   Metadata         `yaml:"metadata"`
	Targets    cloud.TargetSpec `yaml:"targets,omitempty"`
	Options    cloud.Options    `yaml:"options,omitempty"`
	Resources  Resources        `yaml:"resources,omitempty"`
}

// Metadata names and tags the deployment.
type Metadata struct {
	// Name is the deployment name; resource names derive from it for
	// tagging and scope naming.
	Name string            `yaml:"name"`
	Tags map[string]string `yaml:"tags,omitempty"`
}

// Resources lists the resources to dispatch, grouped by kind. Dispatch
// order is networks, clusters, DNS zones, secret stores, state backends.
type Resources struct {
	Networks      []NetworkSpec      `yaml:"networks,omitempty"`
	Clusters      []ClusterSpec      `yaml:"clusters,omitempty"`
	DNSZones      []DNSZoneSpec      `yaml:"dnsZones,omitempty"`
	SecretStores  []SecretStoreSpec  `yaml:"secretStores,omitempty"`
	StateBackends []StateBackendSpec `yaml:"stateBackends,omitempty"`
}

// NetworkSpec declares one virtual network.
type NetworkSpec struct {
	Name string `yaml:"name"`
	// CIDR pins the address range; empty lets the planner allocate one.
	CIDR string `yaml:"cidr,omitempty"`
	// NAT is the egress strategy: none, gateway or instance.
	NAT string `yaml:"nat,omitempty"`
	// Targets overrides the deployment targets for this resource.
	Targets cloud.TargetSpec  `yaml:"targets,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// ClusterSpec declares one compute cluster.
type ClusterSpec struct {
	Name string `yaml:"name"`
	// Network names the manifest network the cluster attaches to.
	Network string            `yaml:"network"`
	Version string            `yaml:"version,omitempty"`
	Nodes   int               `yaml:"nodes,omitempty"`
	Targets cloud.TargetSpec  `yaml:"targets,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// DNSZoneSpec declares one hosted DNS zone.
type DNSZoneSpec struct {
	Name    string            `yaml:"name"`
	Domain  string            `yaml:"domain"`
	Targets cloud.TargetSpec  `yaml:"targets,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// SecretStoreSpec declares one managed secret store.
type SecretStoreSpec struct {
	Name    string            `yaml:"name"`
	Targets cloud.TargetSpec  `yaml:"targets,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// StateBackendSpec declares one remote state store.
type StateBackendSpec struct {
	Name string `yaml:"name"`
	// Versioning defaults to on; set false to opt out.
	Versioning *bool             `yaml:"versioning,omitempty"`
	Targets    cloud.TargetSpec  `yaml:"targets,omitempty"`
	Tags       map[string]string `yaml:"tags,omitempty"`
}

// TargetsFor returns the effective target spec for a resource: its own
// override when set, the deployment targets otherwise.
func (m *Manifest) TargetsFor(override cloud.TargetSpec) cloud.TargetSpec {
	if !override.IsZero() {
		return override
	}
	return m.Targets
}

// ApplyDefaults fills the fields the manifest may leave unset.
func (m *Manifest) ApplyDefaults() {
	if m.Kind == "" {
		m.Kind = KindDeployment
	}
	for i := range m.Resources.Clusters {
		if m.Resources.Clusters[i].Nodes == 0 {
			m.Resources.Clusters[i].Nodes = DefaultClusterNodes
		}
	}
	for i := range m.Resources.StateBackends {
		if m.Resources.StateBackends[i].Versioning == nil {
			on := true
			m.Resources.StateBackends[i].Versioning = &on
		}
	}
}

// Validate checks the manifest for structural errors. All findings are
// joined so one run reports everything.
func (m *Manifest) Validate() error {
	var errs []error

	switch m.APIVersion {
	case "":
		errs = append(errs, clouderr.New(clouderr.CodeConfigMissing, "apiVersion is missing"))
	case APIVersion:
	default:
		errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
			"unsupported apiVersion %q (this build understands %s)", m.APIVersion, APIVersion))
	}
	if m.Kind != "" && m.Kind != KindDeployment {
		errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
			"unsupported kind %q (expected %s)", m.Kind, KindDeployment))
	}
	if m.Metadata.Name == "" {
		errs = append(errs, clouderr.New(clouderr.CodeConfigMissing, "metadata.name is missing"))
	}

	if err := m.validateTargets(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, m.validateResources()...)

	return errors.Join(errs...)
}

func (m *Manifest) validateTargets() error {
	if !m.Targets.IsZero() {
		if _, err := cloud.Resolve(m.Targets); err != nil {
			return clouderr.Wrap(clouderr.CodeConfigInvalid, err, "deployment targets are invalid")
		}
		return nil
	}
	if m.anyResourceWithoutTargets() {
		return clouderr.New(clouderr.CodeConfigMissing,
			"targets are missing: set deployment targets or per-resource targets")
	}
	return nil
}

func (m *Manifest) anyResourceWithoutTargets() bool {
	for _, r := range m.Resources.Networks {
		if r.Targets.IsZero() {
			return true
		}
	}
	for _, r := range m.Resources.Clusters {
		if r.Targets.IsZero() {
			return true
		}
	}
	for _, r := range m.Resources.DNSZones {
		if r.Targets.IsZero() {
			return true
		}
	}
	for _, r := range m.Resources.SecretStores {
		if r.Targets.IsZero() {
			return true
		}
	}
	for _, r := range m.Resources.StateBackends {
		if r.Targets.IsZero() {
			return true
		}
	}
	return false
}

func (m *Manifest) validateResources() []error {
	var errs []error

	check := func(kind, name string, index int, targets cloud.TargetSpec, seen map[string]bool) {
		if name == "" {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigMissing,
				"%s[%d] has no name", kind, index))
			return
		}
		if seen[name] {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
				"duplicate name %q in %s", name, kind))
		}
		seen[name] = true
		if !targets.IsZero() {
			if _, err := cloud.Resolve(targets); err != nil {
				errs = append(errs, clouderr.Wrap(clouderr.CodeConfigInvalid, err,
					fmt.Sprintf("%s %q targets are invalid", kind, name)))
			}
		}
	}

	networks := map[string]bool{}
	for i, r := range m.Resources.Networks {
		check("networks", r.Name, i, r.Targets, networks)
		if r.NAT != "" && !dispatch.NATStrategy(r.NAT).IsValid() {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
				"network %q has unknown nat strategy %q (expected none, gateway or instance)", r.Name, r.NAT))
		}
	}

	clusters := map[string]bool{}
	for i, r := range m.Resources.Clusters {
		check("clusters", r.Name, i, r.Targets, clusters)
		if r.Network == "" {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigMissing,
				"cluster %q has no network reference", r.Name))
		} else if !networks[r.Network] {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
				"cluster %q references unknown network %q", r.Name, r.Network))
		}
		if r.Nodes < 0 {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigInvalid,
				"cluster %q has a negative node count", r.Name))
		}
	}

	zones := map[string]bool{}
	for i, r := range m.Resources.DNSZones {
		check("dnsZones", r.Name, i, r.Targets, zones)
		if r.Domain == "" {
			errs = append(errs, clouderr.Newf(clouderr.CodeConfigMissing,
				"dns zone %q has no domain", r.Name))
		}
	}

	stores := map[string]bool{}
	for i, r := range m.Resources.SecretStores {
		check("secretStores", r.Name, i, r.Targets, stores)
	}

	backends := map[string]bool{}
	for i, r := range m.Resources.StateBackends {
		check("stateBackends", r.Name, i, r.Targets, backends)
	}

	return errs
}

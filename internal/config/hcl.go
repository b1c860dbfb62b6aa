package config

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// hclManifest mirrors Manifest in HCL block form:
//
//	api_version = "cloudplane.io/v1alpha1"
//	metadata { name = "prod" }
//	targets = ["aws", { backend = "azure", region = "westeurope" }]
//	options { gcp { project_id = "plat-123" } }
//	network "core" { cidr = "10.5.0.0/16" }
//	cluster "app" { network = "core" nodes = 3 }
//
// The targets attribute is decoded through cty because its value is a
// union: one backend name, one target object, or a list mixing both.
type hclManifest struct {
	APIVersion string       `hcl:"api_version,optional"`
	Kind       string       `hcl:"kind,optional"`
	Metadata   *hclMetadata `hcl:"metadata,block"`
	Targets    cty.Value    `hcl:"targets,optional"`
	Options    *hclOptions  `hcl:"options,block"`
	Networks   []hclNetwork `hcl:"network,block"`
	Clusters   []hclCluster `hcl:"cluster,block"`
	DNSZones   []hclDNSZone `hcl:"dns_zone,block"`
	Secrets    []hclSecret  `hcl:"secret_store,block"`
	States     []hclState   `hcl:"state_backend,block"`
}

// Requiredness is not enforced at the schema level; Manifest.Validate is
// the single authority for missing fields in both manifest forms.
type hclMetadata struct {
	Name string            `hcl:"name,optional"`
	Tags map[string]string `hcl:"tags,optional"`
}

type hclOptions struct {
	AWS     *hclAWSOptions     `hcl:"aws,block"`
	Azure   *hclAzureOptions   `hcl:"azure,block"`
	GCP     *hclGCPOptions     `hcl:"gcp,block"`
	Hetzner *hclHetznerOptions `hcl:"hetzner,block"`
}

type hclAWSOptions struct {
	Profile  string `hcl:"profile,optional"`
	Endpoint string `hcl:"endpoint,optional"`
}

type hclAzureOptions struct {
	SubscriptionID string `hcl:"subscription_id,optional"`
	ResourceGroup  string `hcl:"resource_group,optional"`
}

type hclGCPOptions struct {
	ProjectID string `hcl:"project_id,optional"`
}

type hclHetznerOptions struct {
	NetworkZone string `hcl:"network_zone,optional"`
	ServerType  string `hcl:"server_type,optional"`
}

type hclNetwork struct {
	Name    string            `hcl:"name,label"`
	CIDR    string            `hcl:"cidr,optional"`
	NAT     string            `hcl:"nat,optional"`
	Targets cty.Value         `hcl:"targets,optional"`
	Tags    map[string]string `hcl:"tags,optional"`
}

type hclCluster struct {
	Name    string            `hcl:"name,label"`
	Network string            `hcl:"network,optional"`
	Version string            `hcl:"version,optional"`
	Nodes   int               `hcl:"nodes,optional"`
	Targets cty.Value         `hcl:"targets,optional"`
	Tags    map[string]string `hcl:"tags,optional"`
}

type hclDNSZone struct {
	Name    string            `hcl:"name,label"`
	Domain  string            `hcl:"domain,optional"`
	Targets cty.Value         `hcl:"targets,optional"`
	Tags    map[string]string `hcl:"tags,optional"`
}

type hclSecret struct {
	Name    string            `hcl:"name,label"`
	Targets cty.Value         `hcl:"targets,optional"`
	Tags    map[string]string `hcl:"tags,optional"`
}

type hclState struct {
	Name       string            `hcl:"name,label"`
	Versioning *bool             `hcl:"versioning,optional"`
	Targets    cty.Value         `hcl:"targets,optional"`
	Tags       map[string]string `hcl:"tags,optional"`
}

func parseHCL(path string, data []byte) (*Manifest, error) {
	var root hclManifest
	if err := hclsimple.Decode(filepath.Base(path), data, nil, &root); err != nil {
		return nil, clouderr.Wrap(clouderr.CodeConfigInvalid, err, "failed to parse HCL manifest")
	}
	return root.translate()
}

func (r *hclManifest) translate() (*Manifest, error) {
	m := &Manifest{
		APIVersion: r.APIVersion,
		Kind:       r.Kind,
		Options:    r.Options.toCloud(),
	}
	if r.Metadata != nil {
		m.Metadata = Metadata{Name: r.Metadata.Name, Tags: r.Metadata.Tags}
	}

	targets, err := decodeTargetsValue(r.Targets, "targets")
	if err != nil {
		return nil, err
	}
	m.Targets = targets

	for _, n := range r.Networks {
		t, err := decodeTargetsValue(n.Targets, fmt.Sprintf("network %q targets", n.Name))
		if err != nil {
			return nil, err
		}
		m.Resources.Networks = append(m.Resources.Networks, NetworkSpec{
			Name: n.Name, CIDR: n.CIDR, NAT: n.NAT, Targets: t, Tags: n.Tags,
		})
	}
	for _, c := range r.Clusters {
		t, err := decodeTargetsValue(c.Targets, fmt.Sprintf("cluster %q targets", c.Name))
		if err != nil {
			return nil, err
		}
		m.Resources.Clusters = append(m.Resources.Clusters, ClusterSpec{
			Name: c.Name, Network: c.Network, Version: c.Version, Nodes: c.Nodes,
			Targets: t, Tags: c.Tags,
		})
	}
	for _, z := range r.DNSZones {
		t, err := decodeTargetsValue(z.Targets, fmt.Sprintf("dns_zone %q targets", z.Name))
		if err != nil {
			return nil, err
		}
		m.Resources.DNSZones = append(m.Resources.DNSZones, DNSZoneSpec{
			Name: z.Name, Domain: z.Domain, Targets: t, Tags: z.Tags,
		})
	}
	for _, s := range r.Secrets {
		t, err := decodeTargetsValue(s.Targets, fmt.Sprintf("secret_store %q targets", s.Name))
		if err != nil {
			return nil, err
		}
		m.Resources.SecretStores = append(m.Resources.SecretStores, SecretStoreSpec{
			Name: s.Name, Targets: t, Tags: s.Tags,
		})
	}
	for _, s := range r.States {
		t, err := decodeTargetsValue(s.Targets, fmt.Sprintf("state_backend %q targets", s.Name))
		if err != nil {
			return nil, err
		}
		m.Resources.StateBackends = append(m.Resources.StateBackends, StateBackendSpec{
			Name: s.Name, Versioning: s.Versioning, Targets: t, Tags: s.Tags,
		})
	}

	return m, nil
}

func (o *hclOptions) toCloud() cloud.Options {
	var out cloud.Options
	if o == nil {
		return out
	}
	if o.AWS != nil {
		out.AWS = &cloud.AWSOptions{Profile: o.AWS.Profile, Endpoint: o.AWS.Endpoint}
	}
	if o.Azure != nil {
		out.Azure = &cloud.AzureOptions{SubscriptionID: o.Azure.SubscriptionID, ResourceGroup: o.Azure.ResourceGroup}
	}
	if o.GCP != nil {
		out.GCP = &cloud.GCPOptions{ProjectID: o.GCP.ProjectID}
	}
	if o.Hetzner != nil {
		out.Hetzner = &cloud.HetznerOptions{NetworkZone: o.Hetzner.NetworkZone, ServerType: o.Hetzner.ServerType}
	}
	return out
}

// decodeTargetsValue turns the targets union value into a TargetSpec. The
// value may be a string, an object, or a tuple mixing both; absent stays a
// zero spec.
func decodeTargetsValue(v cty.Value, where string) (cloud.TargetSpec, error) {
	if v.IsNull() {
		return cloud.TargetSpec{}, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return cloud.SingleBackend(cloud.Backend(v.AsString())), nil
	case ty.IsObjectType() || ty.IsMapType():
		t, err := targetFromObject(v, where)
		if err != nil {
			return cloud.TargetSpec{}, err
		}
		return cloud.Single(t), nil
	case ty.IsTupleType() || ty.IsListType():
		var terms []cloud.Target
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			t, err := targetTerm(elem, where)
			if err != nil {
				return cloud.TargetSpec{}, err
			}
			terms = append(terms, t)
		}
		return cloud.Multi(terms...), nil
	default:
		return cloud.TargetSpec{}, clouderr.Newf(clouderr.CodeConfigInvalid,
			"%s must be a backend name, a target object, or a list of either", where)
	}
}

func targetTerm(v cty.Value, where string) (cloud.Target, error) {
	if v.IsNull() {
		return cloud.Target{}, clouderr.Newf(clouderr.CodeConfigInvalid, "%s holds a null term", where)
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return cloud.Target{Backend: cloud.Backend(v.AsString())}, nil
	case ty.IsObjectType() || ty.IsMapType():
		return targetFromObject(v, where)
	default:
		return cloud.Target{}, clouderr.Newf(clouderr.CodeConfigInvalid,
			"%s term must be a backend name or a target object", where)
	}
}

func targetFromObject(v cty.Value, where string) (cloud.Target, error) {
	attrs := v.AsValueMap()

	backend, ok := attrs["backend"]
	if !ok || backend.IsNull() || backend.Type() != cty.String {
		return cloud.Target{}, clouderr.Newf(clouderr.CodeConfigInvalid,
			"%s object needs a backend attribute", where)
	}
	t := cloud.Target{Backend: cloud.Backend(backend.AsString())}

	if region, ok := attrs["region"]; ok && !region.IsNull() {
		if region.Type() != cty.String {
			return cloud.Target{}, clouderr.Newf(clouderr.CodeConfigInvalid,
				"%s region must be a string", where)
		}
		t.Region = region.AsString()
	}

	for key := range attrs {
		if key != "backend" && key != "region" {
			return cloud.Target{}, clouderr.Newf(clouderr.CodeConfigInvalid,
				"%s object has unknown attribute %q", where, key)
		}
	}
	return t, nil
}

package dispatch

import (
	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Kind names a dispatchable resource kind.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindCluster      Kind = "cluster"
	KindDNSZone      Kind = "dns-zone"
	KindSecretStore  Kind = "secret-store"
	KindStateBackend Kind = "state-backend"
)

// Capability returns the backend capability a kind requires. Kind names
// mirror the capability names one to one.
func (k Kind) Capability() cloud.Capability {
	return cloud.Capability(k)
}

// NATStrategy selects how a network routes egress traffic for private
// subnets.
type NATStrategy string

const (
	// NATNone disables managed egress; private subnets stay isolated.
	NATNone NATStrategy = "none"
	// NATGateway uses the backend's managed NAT gateway product.
	NATGateway NATStrategy = "gateway"
	// NATInstance routes egress through a self-managed NAT instance.
	NATInstance NATStrategy = "instance"
)

// IsValid returns true for a known strategy. The empty string is valid and
// means NATNone.
func (n NATStrategy) IsValid() bool {
	switch n {
	case "", NATNone, NATGateway, NATInstance:
		return true
	}
	return false
}

// normalized returns the strategy with the empty default applied.
func (n NATStrategy) normalized() (NATStrategy, error) {
	if !n.IsValid() {
		return "", clouderr.Newf(clouderr.CodeCloudValidation,
			"unknown nat strategy %q (expected none, gateway or instance)", string(n))
	}
	if n == "" {
		return NATNone, nil
	}
	return n, nil
}

// Scope is a backend grouping context (resource-group semantics) shared by
// the resources dispatched to the same backend and region within one
// planning session.
type Scope struct {
	Name   string
	Region string
	ID     string
}

// NetworkConfig describes a virtual network create.
type NetworkConfig struct {
	Targets cloud.TargetSpec
	// CIDR optionally pins the address range. For multi-target dispatch it
	// is the base of the per-target auto-offset sequence; empty falls back
	// to the default sequence starting at 10.0.0.0/16.
	CIDR string
	NAT  NATStrategy
	Tags map[string]string
}

// NetworkResult is the outcome of one per-target network create.
type NetworkResult struct {
	Name          string
	Target        cloud.ResolvedTarget
	ID            string
	AddressRanges []string
	NAT           NATStrategy
}

// ClusterConfig describes a compute cluster create.
type ClusterConfig struct {
	Targets cloud.TargetSpec
	// Version is the orchestrator version, backend-interpreted; empty takes
	// the backend default.
	Version string
	// Nodes is the initial node count.
	Nodes int
	Tags  map[string]string
}

// ClusterResult is the outcome of one per-target cluster create.
type ClusterResult struct {
	Name     string
	Target   cloud.ResolvedTarget
	ID       string
	Endpoint string
	// Credentials is an opaque backend-specific credential blob
	// (kubeconfig-like); callers pass it on without interpreting it.
	Credentials []byte
}

// DNSZoneConfig describes a hosted DNS zone create.
type DNSZoneConfig struct {
	Targets cloud.TargetSpec
	// Domain is the fully qualified zone apex, e.g. "example.com".
	Domain string
	Tags   map[string]string
}

// DNSZoneResult is the outcome of one per-target DNS zone create.
type DNSZoneResult struct {
	Name        string
	Target      cloud.ResolvedTarget
	ID          string
	Domain      string
	NameServers []string
}

// SecretStoreConfig describes a managed secret store create.
type SecretStoreConfig struct {
	Targets cloud.TargetSpec
	Tags    map[string]string
}

// SecretStoreResult is the outcome of one per-target secret store create.
type SecretStoreResult struct {
	Name   string
	Target cloud.ResolvedTarget
	ID     string
	// URI locates the store for secret read/write clients.
	URI string
}

// StateBackendConfig describes a remote state storage create.
type StateBackendConfig struct {
	Targets cloud.TargetSpec
	// Versioning enables object versioning on the state store.
	Versioning bool
	Tags       map[string]string
}

// StateBackendResult is the outcome of one per-target state backend create.
type StateBackendResult struct {
	Name   string
	Target cloud.ResolvedTarget
	ID     string
	// Bucket is the storage container name.
	Bucket string
	// Endpoint is the storage API endpoint for state clients.
	Endpoint string
}

// NetworkRequest is what a provider receives for one network create.
type NetworkRequest struct {
	Name    string
	Region  string
	CIDR    string
	NAT     NATStrategy
	Tags    map[string]string
	Options cloud.ProviderOptions // nil when no options were supplied
	Scope   *Scope                // non-nil only for scope-requiring backends
}

// ClusterRequest is what a provider receives for one cluster create.
type ClusterRequest struct {
	Name    string
	Region  string
	Version string
	Nodes   int
	// Network is the dependency matched by backend identity.
	Network NetworkResult
	Tags    map[string]string
	Options cloud.ProviderOptions
	Scope   *Scope
}

// DNSZoneRequest is what a provider receives for one DNS zone create.
type DNSZoneRequest struct {
	Name    string
	Region  string
	Domain  string
	Tags    map[string]string
	Options cloud.ProviderOptions
	Scope   *Scope
}

// SecretStoreRequest is what a provider receives for one secret store create.
type SecretStoreRequest struct {
	Name    string
	Region  string
	Tags    map[string]string
	Options cloud.ProviderOptions
	Scope   *Scope
}

// StateBackendRequest is what a provider receives for one state backend
// create.
type StateBackendRequest struct {
	Name       string
	Region     string
	Versioning bool
	Tags       map[string]string
	Options    cloud.ProviderOptions
	Scope      *Scope
}

// ScopeRequest is what a scoped provider receives when the session ensures
// a grouping scope.
type ScopeRequest struct {
	Name    string
	Region  string
	Tags    map[string]string
	Options cloud.ProviderOptions
}

package cloud

import "sort"

// Capability tags the features a backend can provision.
type Capability string

const (
	// CapabilityNetwork is virtual network creation.
	CapabilityNetwork Capability = "network"
	// CapabilityCluster is managed compute cluster creation.
	CapabilityCluster Capability = "cluster"
	// CapabilityDNSZone is hosted DNS zone creation.
	CapabilityDNSZone Capability = "dns-zone"
	// CapabilitySecretStore is managed secret store creation.
	CapabilitySecretStore Capability = "secret-store"
	// CapabilityStateBackend is remote state storage creation.
	CapabilityStateBackend Capability = "state-backend"
	// CapabilityNATGateway is managed NAT gateway egress.
	CapabilityNATGateway Capability = "nat-gateway"
	// CapabilityPrivateEndpoints is private service connectivity.
	CapabilityPrivateEndpoints Capability = "private-endpoints"
)

// featureMatrix records which capabilities each backend supports.
// Hetzner Cloud has no managed secret store or NAT gateway product.
var featureMatrix = map[Backend]map[Capability]bool{
	BackendAWS: {
		CapabilityNetwork:          true,
		CapabilityCluster:          true,
		CapabilityDNSZone:          true,
		CapabilitySecretStore:      true,
		CapabilityStateBackend:     true,
		CapabilityNATGateway:       true,
		CapabilityPrivateEndpoints: true,
	},
	BackendAzure: {
		CapabilityNetwork:          true,
		CapabilityCluster:          true,
		CapabilityDNSZone:          true,
		CapabilitySecretStore:      true,
		CapabilityStateBackend:     true,
		CapabilityNATGateway:       true,
		CapabilityPrivateEndpoints: true,
	},
	BackendGCP: {
		CapabilityNetwork:          true,
		CapabilityCluster:          true,
		CapabilityDNSZone:          true,
		CapabilitySecretStore:      true,
		CapabilityStateBackend:     true,
		CapabilityNATGateway:       true,
		CapabilityPrivateEndpoints: true,
	},
	BackendHetzner: {
		CapabilityNetwork:      true,
		CapabilityCluster:      true,
		CapabilityDNSZone:      true,
		CapabilityStateBackend: true,
	},
}

// Supports returns true if backend b provides capability c.
func Supports(b Backend, c Capability) bool {
	return featureMatrix[b][c]
}

// Capabilities returns the sorted capability set of b, for error messages.
func Capabilities(b Backend) []Capability {
	caps := make([]Capability, 0, len(featureMatrix[b]))
	for c := range featureMatrix[b] {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// RequiresScope returns true if resources on b must live inside a named
// grouping scope (resource-group semantics). Dispatch ensures the scope once
// per planning session and reuses it.
func RequiresScope(b Backend) bool {
	return b == BackendAzure
}

// RequiresProject returns true if b needs a project identifier in its provider
// options before any resource can be created.
func RequiresProject(b Backend) bool {
	return b == BackendGCP
}

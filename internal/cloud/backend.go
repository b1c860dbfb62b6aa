package cloud

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Backend identifies a supported cloud provider.
type Backend string

const (
	// BackendAWS is Amazon Web Services.
	BackendAWS Backend = "aws"
	// BackendAzure is Microsoft Azure.
	BackendAzure Backend = "azure"
	// BackendGCP is Google Cloud Platform.
	BackendGCP Backend = "gcp"
	// BackendHetzner is Hetzner Cloud.
	BackendHetzner Backend = "hetzner"
)

// All returns every supported backend in stable order.
func All() []Backend {
	return []Backend{BackendAWS, BackendAzure, BackendGCP, BackendHetzner}
}

// IsValid returns true if b is a supported backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendAWS, BackendAzure, BackendGCP, BackendHetzner:
		return true
	default:
		return false
	}
}

// String returns the backend identifier as used in names and manifests.
func (b Backend) String() string {
	return string(b)
}

// defaultRegions maps each backend to the region used when a target omits one.
var defaultRegions = map[Backend]string{
	BackendAWS:     "us-east-1",
	BackendAzure:   "eastus",
	BackendGCP:     "us-central1",
	BackendHetzner: "nbg1",
}

// DefaultRegion returns the fallback region for b.
// Unknown backends return an empty region; resolution rejects them first.
func (b Backend) DefaultRegion() string {
	return defaultRegions[b]
}

// ParseBackend converts a manifest string into a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(s)
	if !b.IsValid() {
		return "", clouderr.New(clouderr.CodeCloudValidation,
			fmt.Sprintf("unknown backend %q: must be one of %v", s, All()))
	}
	return b, nil
}

// UnmarshalYAML decodes a backend name, rejecting unknown values.
func (b *Backend) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseBackend(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

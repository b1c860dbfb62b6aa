package cloud

// ProviderOptions is the per-backend options payload attached to a dispatch
// call. It is a closed variant: exactly one concrete type exists per backend,
// and call sites switch on the concrete type exhaustively.
type ProviderOptions interface {
	// OptionsBackend returns the backend this payload belongs to.
	OptionsBackend() Backend
}

// AWSOptions carries AWS-specific dispatch options.
type AWSOptions struct {
	// Profile selects a shared-credentials profile; empty uses the default chain.
	Profile string `yaml:"profile,omitempty"`
	// Endpoint overrides the service endpoint for S3-compatible targets.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// OptionsBackend implements ProviderOptions.
func (AWSOptions) OptionsBackend() Backend { return BackendAWS }

// AzureOptions carries Azure-specific dispatch options.
type AzureOptions struct {
	// SubscriptionID selects the subscription; empty uses the ambient default.
	SubscriptionID string `yaml:"subscriptionId,omitempty"`
	// ResourceGroup overrides the name of the shared resource-group scope.
	// Empty derives the scope name from the deployment name.
	ResourceGroup string `yaml:"resourceGroup,omitempty"`
}

// OptionsBackend implements ProviderOptions.
func (AzureOptions) OptionsBackend() Backend { return BackendAzure }

// GCPOptions carries GCP-specific dispatch options.
type GCPOptions struct {
	// ProjectID is the project all resources are created in.
	// Mandatory: dispatch to GCP fails fast when it is empty.
	ProjectID string `yaml:"projectId,omitempty"`
}

// OptionsBackend implements ProviderOptions.
func (GCPOptions) OptionsBackend() Backend { return BackendGCP }

// HetznerOptions carries Hetzner-specific dispatch options.
type HetznerOptions struct {
	// NetworkZone places subnets; defaults to eu-central.
	NetworkZone string `yaml:"networkZone,omitempty"`
	// ServerType sizes cluster nodes; defaults to cx22.
	ServerType string `yaml:"serverType,omitempty"`
}

// OptionsBackend implements ProviderOptions.
func (HetznerOptions) OptionsBackend() Backend { return BackendHetzner }

// Options is the optional per-backend options bag passed with a dispatch
// call. At most one payload per backend.
type Options struct {
	AWS     *AWSOptions     `yaml:"aws,omitempty"`
	Azure   *AzureOptions   `yaml:"azure,omitempty"`
	GCP     *GCPOptions     `yaml:"gcp,omitempty"`
	Hetzner *HetznerOptions `yaml:"hetzner,omitempty"`
}

// For returns the payload for b, or nil when none was supplied.
func (o Options) For(b Backend) ProviderOptions {
	switch b {
	case BackendAWS:
		if o.AWS != nil {
			return *o.AWS
		}
	case BackendAzure:
		if o.Azure != nil {
			return *o.Azure
		}
	case BackendGCP:
		if o.GCP != nil {
			return *o.GCP
		}
	case BackendHetzner:
		if o.Hetzner != nil {
			return *o.Hetzner
		}
	}
	return nil
}

// Package hetzner implements the Hetzner backend provider. Networks and
// clusters go through the Hetzner Cloud API, DNS zones through the
// separate Hetzner DNS API, and state backends land on Hetzner Object
// Storage via the shared S3 client. Clusters are self-managed node groups
// behind a TCP load balancer; Hetzner has no managed control plane.
package hetzner

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/dispatch"
	"github.com/cloudplane/cloudplane/internal/platform/s3"
)

const (
	defaultServerType       = "cx22"
	defaultNetworkZone      = "eu-central"
	defaultImage            = "ubuntu-24.04"
	defaultLoadBalancerType = "lb11"
	defaultKeyBits          = 4096
	apiPort                 = 6443

	clusterLabel = "cloudplane.io/cluster"
	versionLabel = "cloudplane.io/version"
)

// Settings carries the credentials and defaults for the provider.
type Settings struct {
	// Token authenticates against the cloud API (HCLOUD_TOKEN).
	Token string
	// DNSToken authenticates against the DNS API; empty disables zone
	// dispatch (HETZNER_DNS_TOKEN).
	DNSToken string
	// S3AccessKey/S3SecretKey authenticate against Object Storage; empty
	// disables state backend dispatch.
	S3AccessKey string
	S3SecretKey string

	ServerType  string
	NetworkZone string
	Image       string
}

func (s Settings) withDefaults() Settings {
	if s.ServerType == "" {
		s.ServerType = defaultServerType
	}
	if s.NetworkZone == "" {
		s.NetworkZone = defaultNetworkZone
	}
	if s.Image == "" {
		s.Image = defaultImage
	}
	return s
}

// StorageAPI is the slice of the object storage client the state backend
// dispatch needs.
type StorageAPI interface {
	EnsureBucket(ctx context.Context, name string, versioning bool) error
	Endpoint() string
}

// Provider implements dispatch.Provider for the hetzner backend.
type Provider struct {
	api      CloudAPI
	dns      DNSAPI
	settings Settings

	storageMu  sync.Mutex
	storage    map[string]StorageAPI
	newStorage func(region string) (StorageAPI, error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithCloudAPI substitutes the cloud API implementation.
func WithCloudAPI(api CloudAPI) Option {
	return func(p *Provider) {
		p.api = api
	}
}

// WithDNSAPI substitutes the DNS API implementation.
func WithDNSAPI(api DNSAPI) Option {
	return func(p *Provider) {
		p.dns = api
	}
}

// WithStorage substitutes the per-region object storage factory.
func WithStorage(factory func(region string) (StorageAPI, error)) Option {
	return func(p *Provider) {
		p.newStorage = factory
	}
}

// New creates a Provider from settings.
func New(settings Settings, opts ...Option) (*Provider, error) {
	p := &Provider{
		settings: settings.withDefaults(),
		storage:  make(map[string]StorageAPI),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.api == nil {
		if p.settings.Token == "" {
			return nil, clouderr.New(clouderr.CodeSecretNotFound,
				"hetzner cloud token is not set (HCLOUD_TOKEN)")
		}
		p.api = NewCloudAPI(p.settings.Token)
	}
	if p.dns == nil && p.settings.DNSToken != "" {
		p.dns = NewDNSClient(p.settings.DNSToken)
	}
	if p.newStorage == nil {
		p.newStorage = p.objectStorage
	}
	return p, nil
}

// Factory adapts New for registry registration.
func Factory(settings Settings) dispatch.ProviderFactory {
	return func() (dispatch.Provider, error) {
		return New(settings)
	}
}

// Backend implements dispatch.Provider.
func (p *Provider) Backend() cloud.Backend {
	return cloud.BackendHetzner
}

// optionsFor unpacks the per-backend options payload. A payload for a
// different backend means the dispatcher routed the request to the wrong
// provider.
func (p *Provider) optionsFor(option cloud.ProviderOptions) (cloud.HetznerOptions, error) {
	if option == nil {
		return cloud.HetznerOptions{}, nil
	}
	hz, ok := option.(cloud.HetznerOptions)
	if !ok {
		return cloud.HetznerOptions{}, clouderr.Newf(clouderr.CodeProviderMismatch,
			"request carries %s options but reached the hetzner provider", option.OptionsBackend())
	}
	return hz, nil
}

func (p *Provider) target(region string) cloud.ResolvedTarget {
	return cloud.ResolvedTarget{Backend: cloud.BackendHetzner, Region: region}
}

// CreateNetwork implements dispatch.Provider. The whole planned range
// becomes the network with a single cloud subnet spanning it.
func (p *Provider) CreateNetwork(ctx context.Context, req dispatch.NetworkRequest) (dispatch.NetworkResult, error) {
	hz, err := p.optionsFor(req.Options)
	if err != nil {
		return dispatch.NetworkResult{}, err
	}
	zone := hz.NetworkZone
	if zone == "" {
		zone = p.settings.NetworkZone
	}

	network, err := p.api.EnsureNetwork(ctx, req.Name, req.CIDR, req.Tags)
	if err != nil {
		return dispatch.NetworkResult{}, err
	}
	if err := p.api.EnsureSubnet(ctx, network, req.CIDR, zone); err != nil {
		return dispatch.NetworkResult{}, err
	}

	return dispatch.NetworkResult{
		Name:          req.Name,
		Target:        p.target(req.Region),
		ID:            strconv.FormatInt(network.ID, 10),
		AddressRanges: []string{req.CIDR},
		NAT:           req.NAT,
	}, nil
}

// CreateCluster implements dispatch.Provider. It provisions a fresh SSH
// key pair, a spread placement group, the requested number of nodes on the
// dependency network, and a load balancer fronting the API port. The
// private key is handed back as the credential blob.
func (p *Provider) CreateCluster(ctx context.Context, req dispatch.ClusterRequest) (dispatch.ClusterResult, error) {
	hz, err := p.optionsFor(req.Options)
	if err != nil {
		return dispatch.ClusterResult{}, err
	}
	serverType := hz.ServerType
	if serverType == "" {
		serverType = p.settings.ServerType
	}

	networkID, err := strconv.ParseInt(req.Network.ID, 10, 64)
	if err != nil {
		return dispatch.ClusterResult{}, clouderr.Newf(clouderr.CodeProviderMismatch,
			"network %q was not created by the hetzner backend", req.Network.Name)
	}

	labels := withLabel(req.Tags, clusterLabel, req.Name)
	if req.Version != "" {
		labels = withLabel(labels, versionLabel, req.Version)
	}

	keys, err := generateKeyPair(defaultKeyBits)
	if err != nil {
		return dispatch.ClusterResult{}, err
	}
	keyID, err := p.api.EnsureSSHKey(ctx, req.Name+"-key", string(keys.publicKey), labels)
	if err != nil {
		return dispatch.ClusterResult{}, err
	}

	group, err := p.api.EnsurePlacementGroup(ctx, req.Name+"-nodes", labels)
	if err != nil {
		return dispatch.ClusterResult{}, err
	}

	for i := range req.Nodes {
		_, err := p.api.CreateServer(ctx, ServerOpts{
			Name:             fmt.Sprintf("%s-%d", req.Name, i+1),
			ServerType:       serverType,
			Image:            p.settings.Image,
			Location:         req.Region,
			SSHKeyID:         keyID,
			PlacementGroupID: group.ID,
			NetworkID:        networkID,
			Labels:           labels,
		})
		if err != nil {
			return dispatch.ClusterResult{}, err
		}
	}

	lb, err := p.api.EnsureLoadBalancer(ctx, req.Name+"-api", req.Region, labels)
	if err != nil {
		return dispatch.ClusterResult{}, err
	}
	if err := p.api.EnsureService(ctx, lb, apiPort, apiPort); err != nil {
		return dispatch.ClusterResult{}, err
	}
	if err := p.api.AddLabelTarget(ctx, lb, fmt.Sprintf("%s=%s", clusterLabel, req.Name)); err != nil {
		return dispatch.ClusterResult{}, err
	}

	return dispatch.ClusterResult{
		Name:        req.Name,
		Target:      p.target(req.Region),
		ID:          strconv.FormatInt(lb.ID, 10),
		Endpoint:    fmt.Sprintf("https://%s:%d", lb.PublicNet.IPv4.IP, apiPort),
		Credentials: keys.privatePEM,
	}, nil
}

// CreateDNSZone implements dispatch.Provider.
func (p *Provider) CreateDNSZone(ctx context.Context, req dispatch.DNSZoneRequest) (dispatch.DNSZoneResult, error) {
	if _, err := p.optionsFor(req.Options); err != nil {
		return dispatch.DNSZoneResult{}, err
	}
	if p.dns == nil {
		return dispatch.DNSZoneResult{}, clouderr.New(clouderr.CodeSecretNotFound,
			"hetzner dns token is not set (HETZNER_DNS_TOKEN)")
	}

	zone, err := p.dns.EnsureZone(ctx, req.Domain)
	if err != nil {
		return dispatch.DNSZoneResult{}, err
	}

	return dispatch.DNSZoneResult{
		Name:        req.Name,
		Target:      p.target(req.Region),
		ID:          zone.ID,
		Domain:      req.Domain,
		NameServers: zone.NameServers,
	}, nil
}

// CreateSecretStore implements dispatch.Provider. The capability matrix
// keeps the planner from routing secret stores here; this guards direct
// callers.
func (p *Provider) CreateSecretStore(_ context.Context, _ dispatch.SecretStoreRequest) (dispatch.SecretStoreResult, error) {
	return dispatch.SecretStoreResult{}, clouderr.New(clouderr.CodeUnsupportedFeature,
		"hetzner has no managed secret store")
}

// CreateStateBackend implements dispatch.Provider.
func (p *Provider) CreateStateBackend(ctx context.Context, req dispatch.StateBackendRequest) (dispatch.StateBackendResult, error) {
	if _, err := p.optionsFor(req.Options); err != nil {
		return dispatch.StateBackendResult{}, err
	}

	store, err := p.storageFor(req.Region)
	if err != nil {
		return dispatch.StateBackendResult{}, err
	}
	if err := store.EnsureBucket(ctx, req.Name, req.Versioning); err != nil {
		return dispatch.StateBackendResult{}, err
	}

	return dispatch.StateBackendResult{
		Name:     req.Name,
		Target:   p.target(req.Region),
		ID:       req.Name,
		Bucket:   req.Name,
		Endpoint: store.Endpoint(),
	}, nil
}

// storageFor returns the object storage client for region, creating it on
// first use.
func (p *Provider) storageFor(region string) (StorageAPI, error) {
	p.storageMu.Lock()
	defer p.storageMu.Unlock()
	if store, ok := p.storage[region]; ok {
		return store, nil
	}
	store, err := p.newStorage(region)
	if err != nil {
		return nil, err
	}
	p.storage[region] = store
	return store, nil
}

// objectStorage builds the real per-region Object Storage client.
func (p *Provider) objectStorage(region string) (StorageAPI, error) {
	if p.settings.S3AccessKey == "" || p.settings.S3SecretKey == "" {
		return nil, clouderr.New(clouderr.CodeSecretNotFound,
			"hetzner object storage credentials are not set")
	}
	return s3.NewClient(s3.Config{
		Endpoint:  fmt.Sprintf("https://%s.your-objectstorage.com", region),
		Region:    region,
		AccessKey: p.settings.S3AccessKey,
		SecretKey: p.settings.S3SecretKey,
	})
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

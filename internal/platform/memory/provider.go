// Package memory implements an in-memory provider that records every
// create call and fabricates deterministic results. It backs dry-run
// planning and the dispatch tests; nothing ever leaves the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/dispatch"
)

// Provider is a recording in-memory implementation of dispatch.Provider.
// All methods are safe for concurrent use.
type Provider struct {
	backend cloud.Backend

	mu            sync.Mutex
	seq           int
	networks      []dispatch.NetworkRequest
	clusters      []dispatch.ClusterRequest
	dnsZones      []dispatch.DNSZoneRequest
	secretStores  []dispatch.SecretStoreRequest
	stateBackends []dispatch.StateBackendRequest

	// Fail maps a resource kind to an error every create of that kind
	// returns, for exercising failure paths. Set it before dispatching.
	Fail map[dispatch.Kind]error
}

// New creates a provider for backend b.
func New(b cloud.Backend) *Provider {
	return &Provider{backend: b}
}

// Backend implements dispatch.Provider.
func (p *Provider) Backend() cloud.Backend {
	return p.backend
}

// nextID fabricates a deterministic per-provider resource identifier.
func (p *Provider) nextID(kind dispatch.Kind) string {
	p.seq++
	return fmt.Sprintf("mem-%s-%s-%d", p.backend, kind, p.seq)
}

func (p *Provider) failure(kind dispatch.Kind) error {
	if p.Fail == nil {
		return nil
	}
	return p.Fail[kind]
}

// CreateNetwork implements dispatch.Provider.
func (p *Provider) CreateNetwork(_ context.Context, req dispatch.NetworkRequest) (dispatch.NetworkResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(dispatch.KindNetwork); err != nil {
		return dispatch.NetworkResult{}, err
	}
	p.networks = append(p.networks, req)
	return dispatch.NetworkResult{
		Name:          req.Name,
		Target:        cloud.ResolvedTarget{Backend: p.backend, Region: req.Region},
		ID:            p.nextID(dispatch.KindNetwork),
		AddressRanges: []string{req.CIDR},
		NAT:           req.NAT,
	}, nil
}

// CreateCluster implements dispatch.Provider.
func (p *Provider) CreateCluster(_ context.Context, req dispatch.ClusterRequest) (dispatch.ClusterResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(dispatch.KindCluster); err != nil {
		return dispatch.ClusterResult{}, err
	}
	p.clusters = append(p.clusters, req)
	return dispatch.ClusterResult{
		Name:        req.Name,
		Target:      cloud.ResolvedTarget{Backend: p.backend, Region: req.Region},
		ID:          p.nextID(dispatch.KindCluster),
		Endpoint:    fmt.Sprintf("https://%s.%s.example:6443", req.Name, p.backend),
		Credentials: []byte("credentials:" + req.Name),
	}, nil
}

// CreateDNSZone implements dispatch.Provider.
func (p *Provider) CreateDNSZone(_ context.Context, req dispatch.DNSZoneRequest) (dispatch.DNSZoneResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(dispatch.KindDNSZone); err != nil {
		return dispatch.DNSZoneResult{}, err
	}
	p.dnsZones = append(p.dnsZones, req)
	return dispatch.DNSZoneResult{
		Name:   req.Name,
		Target: cloud.ResolvedTarget{Backend: p.backend, Region: req.Region},
		ID:     p.nextID(dispatch.KindDNSZone),
		Domain: req.Domain,
		NameServers: []string{
			fmt.Sprintf("ns1.%s.example", p.backend),
			fmt.Sprintf("ns2.%s.example", p.backend),
		},
	}, nil
}

// CreateSecretStore implements dispatch.Provider.
func (p *Provider) CreateSecretStore(_ context.Context, req dispatch.SecretStoreRequest) (dispatch.SecretStoreResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(dispatch.KindSecretStore); err != nil {
		return dispatch.SecretStoreResult{}, err
	}
	p.secretStores = append(p.secretStores, req)
	return dispatch.SecretStoreResult{
		Name:   req.Name,
		Target: cloud.ResolvedTarget{Backend: p.backend, Region: req.Region},
		ID:     p.nextID(dispatch.KindSecretStore),
		URI:    fmt.Sprintf("mem://%s/%s", p.backend, req.Name),
	}, nil
}

// CreateStateBackend implements dispatch.Provider.
func (p *Provider) CreateStateBackend(_ context.Context, req dispatch.StateBackendRequest) (dispatch.StateBackendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(dispatch.KindStateBackend); err != nil {
		return dispatch.StateBackendResult{}, err
	}
	p.stateBackends = append(p.stateBackends, req)
	return dispatch.StateBackendResult{
		Name:     req.Name,
		Target:   cloud.ResolvedTarget{Backend: p.backend, Region: req.Region},
		ID:       p.nextID(dispatch.KindStateBackend),
		Bucket:   req.Name,
		Endpoint: fmt.Sprintf("mem://%s", p.backend),
	}, nil
}

// Networks returns a copy of the recorded network requests.
func (p *Provider) Networks() []dispatch.NetworkRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dispatch.NetworkRequest(nil), p.networks...)
}

// Clusters returns a copy of the recorded cluster requests.
func (p *Provider) Clusters() []dispatch.ClusterRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dispatch.ClusterRequest(nil), p.clusters...)
}

// DNSZones returns a copy of the recorded DNS zone requests.
func (p *Provider) DNSZones() []dispatch.DNSZoneRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dispatch.DNSZoneRequest(nil), p.dnsZones...)
}

// SecretStores returns a copy of the recorded secret store requests.
func (p *Provider) SecretStores() []dispatch.SecretStoreRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dispatch.SecretStoreRequest(nil), p.secretStores...)
}

// StateBackends returns a copy of the recorded state backend requests.
func (p *Provider) StateBackends() []dispatch.StateBackendRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dispatch.StateBackendRequest(nil), p.stateBackends...)
}

// ScopedProvider is Provider plus resource-group style scope handling.
type ScopedProvider struct {
	*Provider

	scopeMu sync.Mutex
	scopes  []dispatch.ScopeRequest
}

// NewScoped creates a scope-aware provider for backend b.
func NewScoped(b cloud.Backend) *ScopedProvider {
	return &ScopedProvider{Provider: New(b)}
}

// EnsureScope implements dispatch.ScopedProvider.
func (p *ScopedProvider) EnsureScope(_ context.Context, req dispatch.ScopeRequest) (dispatch.Scope, error) {
	p.scopeMu.Lock()
	defer p.scopeMu.Unlock()
	p.scopes = append(p.scopes, req)
	return dispatch.Scope{
		Name:   req.Name,
		Region: req.Region,
		ID:     fmt.Sprintf("mem-%s-scope-%d", p.backend, len(p.scopes)),
	}, nil
}

// Scopes returns a copy of the recorded scope requests.
func (p *ScopedProvider) Scopes() []dispatch.ScopeRequest {
	p.scopeMu.Lock()
	defer p.scopeMu.Unlock()
	return append([]dispatch.ScopeRequest(nil), p.scopes...)
}

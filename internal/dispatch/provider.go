package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Provider is the backend collaborator contract: five idempotent
// create-or-update primitives, one per resource kind. Implementations do
// the effectful work against their control plane; the dispatcher never
// retries, wraps, or suppresses their errors.
type Provider interface {
	// Backend identifies which backend this provider serves.
	Backend() cloud.Backend

	CreateNetwork(ctx context.Context, req NetworkRequest) (NetworkResult, error)
	CreateCluster(ctx context.Context, req ClusterRequest) (ClusterResult, error)
	CreateDNSZone(ctx context.Context, req DNSZoneRequest) (DNSZoneResult, error)
	CreateSecretStore(ctx context.Context, req SecretStoreRequest) (SecretStoreResult, error)
	CreateStateBackend(ctx context.Context, req StateBackendRequest) (StateBackendResult, error)
}

// ScopedProvider is implemented by providers whose backend groups resources
// inside a named scope (resource-group semantics). The session ensures the
// scope once per backend/region/name and shares it across concurrent
// dispatches; providers without this upgrade manage grouping themselves.
type ScopedProvider interface {
	Provider

	EnsureScope(ctx context.Context, req ScopeRequest) (Scope, error)
}

// ProviderFactory constructs a provider on first use. Keeping construction
// behind a factory means a build only pays for (and only needs credentials
// for) the backends it actually dispatches to.
type ProviderFactory func() (Provider, error)

// Registry maps backends to provider factories. Only compiled-in backends
// are populated; looking up any other backend fails at call time with a
// clear "not available" error instead of at import time.
type Registry struct {
	mu        sync.Mutex
	factories map[cloud.Backend]ProviderFactory
	providers map[cloud.Backend]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[cloud.Backend]ProviderFactory),
		providers: make(map[cloud.Backend]Provider),
	}
}

// Register adds a factory for backend b. Registering the same backend twice
// is a wiring bug and panics.
func (r *Registry) Register(b cloud.Backend, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[b]; exists {
		panic("dispatch: provider for backend " + string(b) + " registered twice")
	}
	r.factories[b] = factory
}

// Provider returns the provider for backend b, constructing it on first
// use and reusing it afterwards. An unregistered backend fails with
// UNSUPPORTED_FEATURE naming the backends this build carries.
func (r *Registry) Provider(b cloud.Backend) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[b]; ok {
		return p, nil
	}
	factory, ok := r.factories[b]
	if !ok {
		return nil, clouderr.Newf(clouderr.CodeUnsupportedFeature,
			"backend %s is not available in this build (available: %v)", b, r.backendsLocked())
	}
	p, err := factory()
	if err != nil {
		return nil, err
	}
	r.providers[b] = p
	return p, nil
}

// Has reports whether backend b is registered, without constructing it.
func (r *Registry) Has(b cloud.Backend) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[b]
	return ok
}

// Backends returns the registered backends in sorted order.
func (r *Registry) Backends() []cloud.Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backendsLocked()
}

func (r *Registry) backendsLocked() []cloud.Backend {
	out := make([]cloud.Backend, 0, len(r.factories))
	for b := range r.factories {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Package dispatch is the planning and fan-out core: it resolves target
// specifications, validates them against backend capabilities, plans names
// and address ranges, and invokes the matching backend providers.
//
// A Session is the unit of one planning run. It owns the shared context
// cache, the observer, and the provider registry; every Create call on it
// is a one-shot pipeline (resolve, plan, match dependencies, dispatch,
// collect) with no state persisted between calls beyond the context cache.
//
// Planning is synchronous and side-effect-free; only the final per-target
// provider calls do effectful work. Multi-target creates fan out with one
// goroutine per target and results come back in input target order.
// Provider errors propagate to the caller unmodified: no retry, no
// wrapping, no partial rollback.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/tags"
	"github.com/cloudplane/cloudplane/internal/validate"
)

// Session is one planning run against a set of registered providers.
type Session struct {
	registry      *Registry
	cache         *ContextCache
	log           logr.Logger
	observer      Observer
	deployment    string
	enableMetrics bool
}

// SessionOptions configures a Session. The zero value is usable: logging is
// discarded, events go nowhere, metrics stay off.
type SessionOptions struct {
	// Logger receives structured planning logs.
	Logger logr.Logger
	// Observer receives dispatch progress events.
	Observer Observer
	// Deployment names the deployment this session plans for; it feeds the
	// mandatory resource tags and the derived scope names. Empty falls back
	// to the per-call resource name.
	Deployment string
	// EnableMetrics turns on Prometheus recording.
	EnableMetrics bool
}

// NewSession creates a Session over registry.
func NewSession(registry *Registry, opts SessionOptions) *Session {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Session{
		registry:      registry,
		cache:         NewContextCache(),
		log:           log,
		observer:      observer,
		deployment:    opts.Deployment,
		enableMetrics: opts.EnableMetrics,
	}
}

// Cache exposes the session's shared context cache.
func (s *Session) Cache() *ContextCache {
	return s.cache
}

// Reset clears the session's memoized shared context so the session can be
// reused for an isolated planning run.
func (s *Session) Reset() {
	s.cache.Reset()
}

func (s *Session) event(event Event) {
	s.observer.Event(stamp(event))
}

func (s *Session) deploymentFor(base string) string {
	if s.deployment != "" {
		return s.deployment
	}
	return base
}

// plan is the per-call planning output shared by every resource kind:
// resolved targets, per-target names, providers, options and tags, all in
// input target order.
type plan struct {
	targets   []cloud.ResolvedTarget
	names     []string
	providers []Provider
	options   []cloud.ProviderOptions
	tags      []map[string]string
}

// prepare runs the synchronous pre-dispatch pipeline: resolve the target
// spec, validate names and duplicates, check the kind against each
// backend's capabilities, look up providers, and fail fast on missing
// mandatory options. Nothing effectful happens here; if prepare returns an
// error, no provider was invoked.
func (s *Session) prepare(kind Kind, name string, spec cloud.TargetSpec, opts cloud.Options, userTags map[string]string) (*plan, error) {
	targets, err := cloud.Resolve(spec)
	if err != nil {
		return nil, err
	}

	res := validate.MultiTarget(targets, name)
	for _, w := range res.Warnings() {
		s.log.Info("validation warning", "kind", string(kind), "field", w.Field, "message", w.Message)
		s.event(Event{Type: EventPlanWarning, Kind: kind, Resource: name, Message: w.Message})
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	p := &plan{
		targets:   targets,
		names:     PerTargetNames(name, targets),
		providers: make([]Provider, len(targets)),
		options:   make([]cloud.ProviderOptions, len(targets)),
		tags:      make([]map[string]string, len(targets)),
	}

	for i, t := range targets {
		if err := validate.Feature(kind.Capability(), t.Backend); err != nil {
			return nil, err
		}

		provider, err := s.registry.Provider(t.Backend)
		if err != nil {
			return nil, err
		}
		p.providers[i] = provider

		option := opts.For(t.Backend)
		if err := checkMandatoryOptions(t.Backend, option); err != nil {
			return nil, err
		}
		p.options[i] = option

		merged := tags.MergeRequired(tags.Required(s.deploymentFor(name), t.Backend), userTags)
		normalized, warnings := tags.Normalize(merged, t.Backend)
		for _, w := range warnings {
			s.log.Info("tag warning", "kind", string(kind), "target", t.String(), "message", w)
			s.event(Event{Type: EventPlanWarning, Kind: kind, Target: t.String(), Resource: name, Message: w})
		}
		p.tags[i] = normalized
	}

	return p, nil
}

// PerTargetNames derives the per-target resource names: more than one
// target gets backend-suffixed names (name-aws, name-azure), a single
// target keeps the bare name. Exported so plan rendering shows the exact
// names dispatch will use.
func PerTargetNames(name string, targets []cloud.ResolvedTarget) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		if len(targets) > 1 {
			names[i] = fmt.Sprintf("%s-%s", name, t.Backend)
		} else {
			names[i] = name
		}
	}
	return names
}

// checkMandatoryOptions fails fast when a backend's mandatory contextual
// input is missing, before any provider is invoked.
func checkMandatoryOptions(b cloud.Backend, option cloud.ProviderOptions) error {
	if !cloud.RequiresProject(b) {
		return nil
	}
	gcp, ok := option.(cloud.GCPOptions)
	if !ok || gcp.ProjectID == "" {
		return clouderr.Newf(clouderr.CodeUnsupportedFeature,
			"backend %s requires a project id in its options before anything can be dispatched", b)
	}
	return nil
}

// ensureScope returns the shared grouping scope for a target on a
// scope-requiring backend, creating it through the provider exactly once
// per session and reusing it for every later dispatch to the same
// backend/region/scope. Backends without scope semantics, and providers
// that manage grouping internally, get nil.
func (s *Session) ensureScope(ctx context.Context, provider Provider, t cloud.ResolvedTarget, base string, option cloud.ProviderOptions, scopeTags map[string]string) (*Scope, error) {
	if !cloud.RequiresScope(t.Backend) {
		return nil, nil
	}
	scoped, ok := provider.(ScopedProvider)
	if !ok {
		return nil, nil
	}

	scopeName := ""
	if az, isAzure := option.(cloud.AzureOptions); isAzure && az.ResourceGroup != "" {
		scopeName = az.ResourceGroup
	}
	if scopeName == "" {
		scopeName = s.deploymentFor(base) + "-rg"
	}

	key := fmt.Sprintf("%s/%s/%s", t.Backend, t.Region, scopeName)
	created := false
	v, err := s.cache.GetOrCreate(key, func() (any, error) {
		created = true
		scope, err := scoped.EnsureScope(ctx, ScopeRequest{
			Name:    scopeName,
			Region:  t.Region,
			Tags:    scopeTags,
			Options: option,
		})
		if err != nil {
			return nil, err
		}
		return scope, nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "reused"
	if created {
		outcome = "created"
	}
	s.recordScopeEnsure(t.Backend.String(), outcome)
	s.event(Event{
		Type:     EventScopeEnsured,
		Target:   t.String(),
		Resource: scopeName,
		Message:  fmt.Sprintf("scope %s %s", scopeName, outcome),
	})

	scope := v.(Scope)
	return &scope, nil
}

// dispatchOne wraps a single per-target provider call with events and
// metrics. The provider's error is returned untouched.
func dispatchOne[T any](s *Session, kind Kind, name string, t cloud.ResolvedTarget, call func() (T, error)) (T, error) {
	start := time.Now()
	s.event(Event{
		Type:     EventResourceCreating,
		Kind:     kind,
		Target:   t.String(),
		Resource: name,
		Message:  fmt.Sprintf("creating %s", kind),
	})

	out, err := call()
	elapsed := time.Since(start)
	if err != nil {
		s.event(Event{
			Type:     EventResourceFailed,
			Kind:     kind,
			Target:   t.String(),
			Resource: name,
			Message:  fmt.Sprintf("%s failed: %v", kind, err),
		})
		s.recordDispatch(kind, t.Backend.String(), "error", elapsed.Seconds())
		return out, err
	}

	s.event(Event{
		Type:     EventResourceCreated,
		Kind:     kind,
		Target:   t.String(),
		Resource: name,
		Message:  fmt.Sprintf("%s created", kind),
	})
	s.recordDispatch(kind, t.Backend.String(), "success", elapsed.Seconds())
	return out, nil
}

// started/completed/failed emit the per-call lifecycle events shared by the
// Create operations.

func (s *Session) started(kind Kind, name string, targetCount int) time.Time {
	s.event(Event{
		Type:     EventDispatchStarted,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("dispatching %s to %d target(s)", kind, targetCount),
	})
	return time.Now()
}

func (s *Session) completed(kind Kind, name string, start time.Time) {
	s.event(Event{
		Type:     EventDispatchCompleted,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("completed in %v", time.Since(start).Round(time.Millisecond)),
	})
}

func (s *Session) failed(kind Kind, name string, err error) error {
	s.event(Event{
		Type:     EventDispatchFailed,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("failed: %v", err),
	})
	return err
}

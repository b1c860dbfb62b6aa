package dispatch

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/util/async"
)

// CreateStateBackend dispatches a remote state storage create to every
// resolved target.
func (s *Session) CreateStateBackend(ctx context.Context, name string, cfg StateBackendConfig, opts cloud.Options) ([]StateBackendResult, error) {
	start := s.started(KindStateBackend, name, cfg.Targets.Len())

	p, err := s.prepare(KindStateBackend, name, cfg.Targets, opts, cfg.Tags)
	if err != nil {
		return nil, s.failed(KindStateBackend, name, err)
	}

	results, err := async.RunParallel(ctx, len(p.targets), func(ctx context.Context, i int) (StateBackendResult, error) {
		t := p.targets[i]
		scope, err := s.ensureScope(ctx, p.providers[i], t, name, p.options[i], p.tags[i])
		if err != nil {
			return StateBackendResult{}, err
		}
		req := StateBackendRequest{
			Name:       p.names[i],
			Region:     t.Region,
			Versioning: cfg.Versioning,
			Tags:       p.tags[i],
			Options:    p.options[i],
			Scope:      scope,
		}
		return dispatchOne(s, KindStateBackend, req.Name, t, func() (StateBackendResult, error) {
			return p.providers[i].CreateStateBackend(ctx, req)
		})
	})
	if err != nil {
		return nil, s.failed(KindStateBackend, name, err)
	}

	s.completed(KindStateBackend, name, start)
	return results, nil
}

package dispatch

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/util/async"
)

// CreateSecretStore dispatches a managed secret store create to every
// resolved target. Backends without a secret store product are rejected
// during planning with an unsupported-feature error.
func (s *Session) CreateSecretStore(ctx context.Context, name string, cfg SecretStoreConfig, opts cloud.Options) ([]SecretStoreResult, error) {
	start := s.started(KindSecretStore, name, cfg.Targets.Len())

	p, err := s.prepare(KindSecretStore, name, cfg.Targets, opts, cfg.Tags)
	if err != nil {
		return nil, s.failed(KindSecretStore, name, err)
	}

	results, err := async.RunParallel(ctx, len(p.targets), func(ctx context.Context, i int) (SecretStoreResult, error) {
		t := p.targets[i]
		scope, err := s.ensureScope(ctx, p.providers[i], t, name, p.options[i], p.tags[i])
		if err != nil {
			return SecretStoreResult{}, err
		}
		req := SecretStoreRequest{
			Name:    p.names[i],
			Region:  t.Region,
			Tags:    p.tags[i],
			Options: p.options[i],
			Scope:   scope,
		}
		return dispatchOne(s, KindSecretStore, req.Name, t, func() (SecretStoreResult, error) {
			return p.providers[i].CreateSecretStore(ctx, req)
		})
	})
	if err != nil {
		return nil, s.failed(KindSecretStore, name, err)
	}

	s.completed(KindSecretStore, name, start)
	return results, nil
}

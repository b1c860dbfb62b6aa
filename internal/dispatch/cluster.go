package dispatch

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/util/async"
)

// CreateCluster dispatches a compute cluster create to every resolved
// target. Each target needs a network from the candidate list, matched by
// backend identity; dispatch fails before any provider call when a target
// has no matching candidate.
func (s *Session) CreateCluster(ctx context.Context, name string, cfg ClusterConfig, networks []NetworkResult, opts cloud.Options) ([]ClusterResult, error) {
	start := s.started(KindCluster, name, cfg.Targets.Len())

	if cfg.Nodes < 0 {
		return nil, s.failed(KindCluster, name, clouderr.Newf(clouderr.CodeCloudValidation,
			"node count must not be negative, got %d", cfg.Nodes))
	}

	p, err := s.prepare(KindCluster, name, cfg.Targets, opts, cfg.Tags)
	if err != nil {
		return nil, s.failed(KindCluster, name, err)
	}

	matched := make([]NetworkResult, len(p.targets))
	for i, t := range p.targets {
		network, err := matchNetwork(networks, t.Backend)
		if err != nil {
			return nil, s.failed(KindCluster, name, err)
		}
		matched[i] = network
	}

	results, err := async.RunParallel(ctx, len(p.targets), func(ctx context.Context, i int) (ClusterResult, error) {
		t := p.targets[i]
		scope, err := s.ensureScope(ctx, p.providers[i], t, name, p.options[i], p.tags[i])
		if err != nil {
			return ClusterResult{}, err
		}
		req := ClusterRequest{
			Name:    p.names[i],
			Region:  t.Region,
			Version: cfg.Version,
			Nodes:   cfg.Nodes,
			Network: matched[i],
			Tags:    p.tags[i],
			Options: p.options[i],
			Scope:   scope,
		}
		return dispatchOne(s, KindCluster, req.Name, t, func() (ClusterResult, error) {
			return p.providers[i].CreateCluster(ctx, req)
		})
	})
	if err != nil {
		return nil, s.failed(KindCluster, name, err)
	}

	s.completed(KindCluster, name, start)
	return results, nil
}

// matchNetwork picks the first candidate created on backend b.
func matchNetwork(candidates []NetworkResult, b cloud.Backend) (NetworkResult, error) {
	for _, n := range candidates {
		if n.Target.Backend == b {
			return n, nil
		}
	}
	return NetworkResult{}, clouderr.Newf(clouderr.CodeUnsupportedFeature,
		"no match found: none of the %d candidate networks is on backend %s", len(candidates), b)
}

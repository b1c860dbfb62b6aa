package dispatch

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/cidr"
	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/util/async"
	"github.com/cloudplane/cloudplane/internal/validate"
)

// CreateNetwork dispatches a virtual network create to every resolved
// target and returns the per-target results in input order.
//
// Address ranges are planned before anything is dispatched: a supplied CIDR
// pins the first target's range and the remaining targets are auto-offset
// past it; with no CIDR the default sequence starts at 10.0.0.0/16. The
// gateway NAT strategy additionally requires the nat-gateway capability on
// every target backend.
func (s *Session) CreateNetwork(ctx context.Context, name string, cfg NetworkConfig, opts cloud.Options) ([]NetworkResult, error) {
	start := s.started(KindNetwork, name, cfg.Targets.Len())

	nat, err := cfg.NAT.normalized()
	if err != nil {
		return nil, s.failed(KindNetwork, name, err)
	}

	p, err := s.prepare(KindNetwork, name, cfg.Targets, opts, cfg.Tags)
	if err != nil {
		return nil, s.failed(KindNetwork, name, err)
	}

	if nat == NATGateway {
		for _, t := range p.targets {
			if err := validate.Feature(cloud.CapabilityNATGateway, t.Backend); err != nil {
				return nil, s.failed(KindNetwork, name, err)
			}
		}
	}

	explicit := map[string]string{}
	if cfg.CIDR != "" {
		explicit[p.names[0]] = cfg.CIDR
	}
	ranges, err := cidr.BuildMap(p.names, explicit)
	if err != nil {
		return nil, s.failed(KindNetwork, name, err)
	}

	results, err := async.RunParallel(ctx, len(p.targets), func(ctx context.Context, i int) (NetworkResult, error) {
		t := p.targets[i]
		scope, err := s.ensureScope(ctx, p.providers[i], t, name, p.options[i], p.tags[i])
		if err != nil {
			return NetworkResult{}, err
		}
		req := NetworkRequest{
			Name:    p.names[i],
			Region:  t.Region,
			CIDR:    ranges[p.names[i]],
			NAT:     nat,
			Tags:    p.tags[i],
			Options: p.options[i],
			Scope:   scope,
		}
		return dispatchOne(s, KindNetwork, req.Name, t, func() (NetworkResult, error) {
			return p.providers[i].CreateNetwork(ctx, req)
		})
	})
	if err != nil {
		return nil, s.failed(KindNetwork, name, err)
	}

	s.completed(KindNetwork, name, start)
	return results, nil
}

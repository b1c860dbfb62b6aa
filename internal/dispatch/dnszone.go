package dispatch

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
	"github.com/cloudplane/cloudplane/internal/util/async"
)

// CreateDNSZone dispatches a hosted DNS zone create to every resolved
// target.
func (s *Session) CreateDNSZone(ctx context.Context, name string, cfg DNSZoneConfig, opts cloud.Options) ([]DNSZoneResult, error) {
	start := s.started(KindDNSZone, name, cfg.Targets.Len())

	if cfg.Domain == "" {
		return nil, s.failed(KindDNSZone, name, clouderr.New(clouderr.CodeCloudValidation,
			"dns zone requires a domain"))
	}

	p, err := s.prepare(KindDNSZone, name, cfg.Targets, opts, cfg.Tags)
	if err != nil {
		return nil, s.failed(KindDNSZone, name, err)
	}

	results, err := async.RunParallel(ctx, len(p.targets), func(ctx context.Context, i int) (DNSZoneResult, error) {
		t := p.targets[i]
		scope, err := s.ensureScope(ctx, p.providers[i], t, name, p.options[i], p.tags[i])
		if err != nil {
			return DNSZoneResult{}, err
		}
		req := DNSZoneRequest{
			Name:    p.names[i],
			Region:  t.Region,
			Domain:  cfg.Domain,
			Tags:    p.tags[i],
			Options: p.options[i],
			Scope:   scope,
		}
		return dispatchOne(s, KindDNSZone, req.Name, t, func() (DNSZoneResult, error) {
			return p.providers[i].CreateDNSZone(ctx, req)
		})
	})
	if err != nil {
		return nil, s.failed(KindDNSZone, name, err)
	}

	s.completed(KindDNSZone, name, start)
	return results, nil
}

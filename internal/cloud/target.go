package cloud

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Target pairs a backend with an optional region. An empty region resolves to
// the backend's default.
type Target struct {
	Backend Backend `yaml:"backend"`
	Region  string  `yaml:"region,omitempty"`
}

// ResolvedTarget is a Target with the region filled in. It is derived per
// planning call and never persisted.
type ResolvedTarget struct {
	Backend Backend
	Region  string
}

// String renders the target as backend/region.
func (t ResolvedTarget) String() string {
	return fmt.Sprintf("%s/%s", t.Backend, t.Region)
}

// TargetSpec is the flexible "deploy to X" input: a single backend name, a
// single target, or an ordered list of either. Order is significant; it
// drives name suffixes and CIDR offset indices.
type TargetSpec struct {
	terms  []Target
	single bool
}

// Single returns a spec holding exactly one target.
func Single(t Target) TargetSpec {
	return TargetSpec{terms: []Target{t}, single: true}
}

// SingleBackend returns a spec holding one bare backend name.
func SingleBackend(b Backend) TargetSpec {
	return Single(Target{Backend: b})
}

// Multi returns an ordered multi-target spec.
func Multi(targets ...Target) TargetSpec {
	terms := make([]Target, len(targets))
	copy(terms, targets)
	return TargetSpec{terms: terms}
}

// IsZero returns true for an unset spec.
func (s TargetSpec) IsZero() bool {
	return len(s.terms) == 0
}

// IsSingle returns true when the spec was given as a scalar (one backend name
// or one target object), as opposed to a list.
func (s TargetSpec) IsSingle() bool {
	return s.single
}

// Targets returns a copy of the ordered target terms.
func (s TargetSpec) Targets() []Target {
	out := make([]Target, len(s.terms))
	copy(out, s.terms)
	return out
}

// Len returns the number of target terms.
func (s TargetSpec) Len() int {
	return len(s.terms)
}

// ResolveOne resolves a single target, applying the default region when none
// is set. Resolution of an already-complete target returns it unchanged.
func ResolveOne(t Target) (ResolvedTarget, error) {
	if !t.Backend.IsValid() {
		return ResolvedTarget{}, clouderr.New(clouderr.CodeCloudValidation,
			fmt.Sprintf("unknown backend %q: must be one of %v", string(t.Backend), All()))
	}
	region := t.Region
	if region == "" {
		region = t.Backend.DefaultRegion()
	}
	return ResolvedTarget{Backend: t.Backend, Region: region}, nil
}

// Resolve resolves every term of the spec independently, preserving order.
func Resolve(spec TargetSpec) ([]ResolvedTarget, error) {
	if spec.IsZero() {
		return nil, clouderr.New(clouderr.CodeCloudValidation, "target specification is empty: at least one backend is required")
	}
	resolved := make([]ResolvedTarget, 0, len(spec.terms))
	for _, t := range spec.terms {
		rt, err := ResolveOne(t)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rt)
	}
	return resolved, nil
}

// UnmarshalYAML accepts the three manifest shapes of a target spec:
//
//	targets: aws
//	targets: {backend: azure, region: canadacentral}
//	targets: [aws, {backend: azure, region: canadacentral}]
func (s *TargetSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.MappingNode:
		t, err := decodeTargetNode(node)
		if err != nil {
			return err
		}
		*s = Single(t)
		return nil
	case yaml.SequenceNode:
		terms := make([]Target, 0, len(node.Content))
		for _, item := range node.Content {
			t, err := decodeTargetNode(item)
			if err != nil {
				return err
			}
			terms = append(terms, t)
		}
		*s = TargetSpec{terms: terms}
		return nil
	default:
		return clouderr.New(clouderr.CodeCloudValidation,
			"targets must be a backend name, a target object, or a list of either")
	}
}

// MarshalYAML renders the spec back in its narrowest shape.
func (s TargetSpec) MarshalYAML() (any, error) {
	if s.single {
		t := s.terms[0]
		if t.Region == "" {
			return string(t.Backend), nil
		}
		return t, nil
	}
	out := make([]any, 0, len(s.terms))
	for _, t := range s.terms {
		if t.Region == "" {
			out = append(out, string(t.Backend))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// decodeTargetNode decodes one union term: a bare backend name or a
// {backend, region} object.
func decodeTargetNode(node *yaml.Node) (Target, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var b Backend
		if err := node.Decode(&b); err != nil {
			return Target{}, err
		}
		return Target{Backend: b}, nil
	case yaml.MappingNode:
		var t Target
		if err := node.Decode(&t); err != nil {
			return Target{}, err
		}
		if !t.Backend.IsValid() {
			return Target{}, clouderr.New(clouderr.CodeCloudValidation,
				fmt.Sprintf("target object is missing a valid backend (line %d)", node.Line))
		}
		return t, nil
	default:
		return Target{}, clouderr.New(clouderr.CodeCloudValidation,
			fmt.Sprintf("invalid target term (line %d): expected backend name or target object", node.Line))
	}
}

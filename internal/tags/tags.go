// Package tags provides consistent tagging utilities for dispatched cloud
// resources.
//
// Every resource created through the dispatcher carries a small set of
// mandatory tags for identification and cleanup, merged over any user-
// supplied tags. Backends with restricted label syntax additionally get
// their tag maps normalized to a form the backend will accept.
//
// Standard tag keys use the cloudplane.io domain prefix for namespacing.
package tags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudplane/cloudplane/internal/cloud"
)

// Standard tag keys for dispatched resources.
const (
	// KeyDeployment identifies which deployment a resource belongs to
	KeyDeployment = "cloudplane.io/deployment"

	// KeyBackend records the backend the resource was dispatched to
	KeyBackend = "cloudplane.io/backend"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "cloudplane.io/managed-by"
)

// ManagedBy values
const (
	ManagedByCloudplane = "cloudplane"
)

// keyFiller is prepended to normalized keys whose first character is not a
// letter. Label keys must start with a letter; values may start with a digit.
const keyFiller = "a"

// Required returns the mandatory tag set for a resource dispatched to
// backend as part of deployment.
func Required(deployment string, backend cloud.Backend) map[string]string {
	return map[string]string{
		KeyDeployment: deployment,
		KeyBackend:    backend.String(),
		KeyManagedBy:  ManagedByCloudplane,
	}
}

// MergeRequired merges the mandatory tag set into user-supplied tags.
// Mandatory keys always win on conflict. Both inputs are left untouched.
func MergeRequired(required, user map[string]string) map[string]string {
	out := make(map[string]string, len(required)+len(user))
	for k, v := range user {
		out[k] = v
	}
	for k, v := range required {
		out[k] = v
	}
	return out
}

// Normalize rewrites a tag map into a form backend will accept. Backends
// without label restrictions get a shallow copy back unchanged.
//
// A restricted backend applies, per key and value: lowercase, substitution
// of disallowed characters with a hyphen, a filler-letter prefix for keys
// not starting with a letter, collapsing of repeated hyphens, stripping of
// a trailing hyphen, and truncation to the backend's label length limit.
//
// When two distinct input keys normalize to the same output key, the
// first-seen key wins and the later one is dropped with a warning. Input
// keys are visited in sorted order so the outcome is deterministic.
func Normalize(tagMap map[string]string, backend cloud.Backend) (map[string]string, []string) {
	rule := cloud.LabelRuleFor(backend)

	out := make(map[string]string, len(tagMap))
	if !rule.Strict {
		for k, v := range tagMap {
			out[k] = v
		}
		return out, nil
	}

	keys := make([]string, 0, len(tagMap))
	for k := range tagMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []string
	firstSeen := make(map[string]string, len(tagMap))
	for _, k := range keys {
		nk := normalizeKey(k, rule.MaxLength)
		if prev, taken := firstSeen[nk]; taken {
			warnings = append(warnings, fmt.Sprintf(
				"tag key %q normalizes to %q, already produced by %q; dropping it", k, nk, prev))
			continue
		}
		firstSeen[nk] = k
		out[nk] = normalizeValue(tagMap[k], rule.MaxLength)
	}

	return out, warnings
}

func normalizeKey(key string, max int) string {
	s := substitute(strings.ToLower(key))
	if s == "" || !isLower(s[0]) {
		s = keyFiller + s
	}
	return finish(s, max)
}

func normalizeValue(value string, max int) string {
	return finish(substitute(strings.ToLower(value)), max)
}

// finish applies the tail of the pipeline shared by keys and values:
// collapse repeated hyphens, strip a trailing hyphen, truncate.
func finish(s string, max int) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.TrimSuffix(s, "-")
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	return s
}

// substitute replaces every character outside the label charset
// (lowercase letters, digits, hyphen, underscore) with a hyphen.
func substitute(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isLower(c), c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

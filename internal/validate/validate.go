// Package validate implements pre-dispatch validation: feature support
// checks against the backend capability matrix, per-backend resource name
// rules, and multi-target consistency.
//
// Validation comes in two forms. The Result-returning functions never fail;
// callers inspect errors and warnings and decide for themselves. The
// Assert* wrappers and Feature convert an invalid Result into a single
// aggregate error for fail-fast callers.
package validate

import (
	"fmt"
	"strings"

	"github.com/cloudplane/cloudplane/internal/cloud"
	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Issue severities. Errors block dispatch; warnings describe silent
// transformations the backend applies on create.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Field    string // input field the finding applies to
	Message  string // human-readable description
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Field, i.Message)
}

// IsError returns true if this is an error (not a warning).
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// Result aggregates the findings of one validation call.
type Result struct {
	Issues []Issue
}

// Valid returns true when no error-severity issue is present. Warnings do
// not affect validity.
func (r Result) Valid() bool {
	for _, i := range r.Issues {
		if i.IsError() {
			return false
		}
	}
	return true
}

// Errors returns the error-severity issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns the warning-severity issues.
func (r Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if !i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Err materializes an invalid Result into a single CLOUD_VALIDATION error
// listing every error-severity issue, or nil when the Result is valid.
func (r Result) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, i := range errs {
		msgs = append(msgs, i.Error())
	}
	return clouderr.Newf(clouderr.CodeCloudValidation,
		"validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

func (r *Result) add(field, message, severity string) {
	r.Issues = append(r.Issues, Issue{Field: field, Message: message, Severity: severity})
}

// Feature fails with an UNSUPPORTED_FEATURE error when backend does not
// provide feature, naming what the backend does support.
func Feature(feature cloud.Capability, backend cloud.Backend) error {
	if cloud.Supports(backend, feature) {
		return nil
	}
	return clouderr.Newf(clouderr.CodeUnsupportedFeature,
		"backend %s does not support %s (supported: %v)",
		backend, feature, cloud.Capabilities(backend))
}

// IsFeatureSupported is the boolean query form of Feature.
func IsFeatureSupported(feature cloud.Capability, backend cloud.Backend) bool {
	return cloud.Supports(backend, feature)
}

// ResourceName checks name against the naming rules of backend. Hard limit
// violations (length, illegal first character) are errors; rules the backend
// applies silently on create (case folding, character substitution) are
// warnings.
func ResourceName(name string, backend cloud.Backend) Result {
	rule := cloud.NameRuleFor(backend)
	var res Result

	if name == "" {
		res.add("name", "resource name must not be empty", SeverityError)
		return res
	}

	if len(name) > rule.MaxLength {
		res.add("name", fmt.Sprintf("name is %d characters long, above the %s limit of %d",
			len(name), backend, rule.MaxLength), SeverityError)
	}

	first := name[0]
	switch {
	case rule.StartLetter && !isLetter(first):
		res.add("name", fmt.Sprintf("%s names must start with a letter", backend), SeverityError)
	case rule.StartAlnum && !isLetter(first) && !isDigit(first):
		res.add("name", fmt.Sprintf("%s names must start with a letter or digit", backend), SeverityError)
	}

	if rule.FoldsCase && name != strings.ToLower(name) {
		res.add("name", fmt.Sprintf("name contains uppercase characters and will be lowercased by %s", backend), SeverityWarning)
	}

	if hasDisallowed(name) {
		res.add("name", "name contains characters outside letters, digits and hyphens; they will be substituted", SeverityWarning)
	}

	if rule.NoTrailingHyphen && strings.HasSuffix(name, "-") {
		res.add("name", fmt.Sprintf("%s names must not end with a hyphen; it will be trimmed", backend), SeverityWarning)
	}

	return res
}

// MultiTarget checks a resolved target list for exact duplicates and runs
// name validation per target. Two targets with the same backend but
// different regions are fine; the same (backend, region) pair twice is an
// error because both would write the same identifier namespace.
func MultiTarget(targets []cloud.ResolvedTarget, name string) Result {
	var res Result

	seen := make(map[cloud.ResolvedTarget]bool, len(targets))
	for i, t := range targets {
		if seen[t] {
			res.add(fmt.Sprintf("targets[%d]", i),
				fmt.Sprintf("duplicate target %s", t), SeverityError)
			continue
		}
		seen[t] = true

		nameRes := ResourceName(name, t.Backend)
		for _, issue := range nameRes.Issues {
			res.add(fmt.Sprintf("targets[%d].%s", i, issue.Field), issue.Message, issue.Severity)
		}
	}

	return res
}

// AssertMultiTarget is the fail-fast form of MultiTarget.
func AssertMultiTarget(targets []cloud.ResolvedTarget, name string) error {
	return MultiTarget(targets, name).Err()
}

// AssertResourceName is the fail-fast form of ResourceName.
func AssertResourceName(name string, backend cloud.Backend) error {
	return ResourceName(name, backend).Err()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// hasDisallowed reports whether name contains characters outside the
// letters/digits/hyphen charset shared by all backends.
func hasDisallowed(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !isDigit(c) && c != '-' {
			return true
		}
	}
	return false
}

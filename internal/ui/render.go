// Package ui renders planning and dispatch output for the CLI: the plan
// table, validation findings, apply results, and a live progress observer.
//
// Styling is applied only when the destination is a terminal, so piped and
// redirected output stays plain.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/cloudplane/cloudplane/internal/dispatch"
	"github.com/cloudplane/cloudplane/internal/validate"
)

// Renderer writes styled output to one destination.
type Renderer struct {
	w      io.Writer
	styled bool
}

// NewRenderer creates a renderer for w. Styling turns on only when w is a
// terminal.
func NewRenderer(w io.Writer) *Renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, styled: styled}
}

// NewPlainRenderer creates a renderer that never styles, regardless of the
// destination.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) line(s string) {
	fmt.Fprintln(r.w, s)
}

// PlanRow is one per-target planned resource.
type PlanRow struct {
	Kind   string
	Name   string
	Target string
	// Detail is the kind-specific summary: the address range of a network,
	// the node count of a cluster, the domain of a zone.
	Detail string
}

// PlanSummary is the rendered outcome of a planning run.
type PlanSummary struct {
	Deployment string
	Source     string
	Targets    []string
	Rows       []PlanRow
	Warnings   []string
}

// Plan renders the plan table.
func (r *Renderer) Plan(p PlanSummary) {
	r.line("")
	r.line(r.style(titleStyle, fmt.Sprintf("  cloudplane plan: %s", p.Deployment)))
	r.line(r.style(dimStyle, "  "+strings.Repeat("═", 30)))
	if p.Source != "" {
		r.line(r.style(dimStyle, fmt.Sprintf("  manifest: %s", p.Source)))
	}
	r.line(r.style(dimStyle, fmt.Sprintf("  targets:  %s", strings.Join(p.Targets, ", "))))

	r.line("")
	r.line(r.style(sectionStyle, "  Resources"))
	r.line(r.style(dimStyle, "  "+strings.Repeat("─", 72)))
	r.line(r.style(dimStyle, fmt.Sprintf("  %-14s %-24s %-20s %s", "Kind", "Name", "Target", "Details")))
	for _, row := range p.Rows {
		r.printf("  %-14s %-24s %-20s %s\n", row.Kind, row.Name, row.Target, row.Detail)
	}
	r.line(r.style(dimStyle, "  "+strings.Repeat("─", 72)))
	r.line(fmt.Sprintf("  %d resource(s) across %d target(s)", len(p.Rows), len(p.Targets)))

	if len(p.Warnings) > 0 {
		r.line("")
		r.line(r.style(sectionStyle, "  Warnings"))
		for _, w := range p.Warnings {
			r.line(fmt.Sprintf("  %s %s", r.style(warningStyle, warnMark), w))
		}
	}

	r.line("")
	r.line(r.style(dimStyle, "  No changes were applied. Run 'cloudplane apply' to dispatch."))
	r.line("")
}

// Issues renders validation findings for one scope, errors first.
func (r *Renderer) Issues(scope string, issues []validate.Issue) {
	for _, issue := range issues {
		mark := r.style(warningStyle, warnMark)
		if issue.IsError() {
			mark = r.style(failedStyle, failMark)
		}
		r.line(fmt.Sprintf("  %s %s: %s: %s", mark, scope, issue.Field, issue.Message))
	}
}

// ValidationOK renders the all-clear line for one scope.
func (r *Renderer) ValidationOK(scope string) {
	r.line(fmt.Sprintf("  %s %s", r.style(okStyle, okMark), scope))
}

// ResultRow is one per-target dispatched resource.
type ResultRow struct {
	Kind   string
	Name   string
	Target string
	ID     string
	Detail string
}

// Results renders the outcome table of an apply run.
func (r *Renderer) Results(deployment string, rows []ResultRow) {
	r.line("")
	r.line(r.style(titleStyle, fmt.Sprintf("  cloudplane apply: %s", deployment)))
	r.line(r.style(dimStyle, "  "+strings.Repeat("═", 30)))
	r.line("")
	r.line(r.style(dimStyle, fmt.Sprintf("  %-14s %-24s %-20s %-22s %s", "Kind", "Name", "Target", "ID", "Details")))
	for _, row := range rows {
		r.printf("  %-14s %-24s %-20s %-22s %s\n", row.Kind, row.Name, row.Target, row.ID, row.Detail)
	}
	r.line("")
	r.line(fmt.Sprintf("  %s %d resource(s) created", r.style(okStyle, okMark), len(rows)))
	r.line("")
}

// Errorf renders a failure line.
func (r *Renderer) Errorf(format string, args ...any) {
	r.line(fmt.Sprintf("  %s %s", r.style(failedStyle, failMark), fmt.Sprintf(format, args...)))
}

// Infof renders a dim informational line.
func (r *Renderer) Infof(format string, args ...any) {
	r.line(r.style(dimStyle, "  "+fmt.Sprintf(format, args...)))
}

// Progress is a dispatch.Observer that prints one line per event as the
// fan-out runs. Events arrive from concurrent per-target goroutines, so
// writes are serialized.
type Progress struct {
	mu      sync.Mutex
	r       *Renderer
	verbose bool
}

// NewProgress creates a progress observer over r. Verbose additionally
// prints the creating/scope/lifecycle events; the default prints only
// outcomes and warnings.
func NewProgress(r *Renderer, verbose bool) *Progress {
	return &Progress{r: r, verbose: verbose}
}

// Event implements dispatch.Observer.
func (p *Progress) Event(e dispatch.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case dispatch.EventResourceCreated:
		p.r.line(fmt.Sprintf("  %s %s %s (%s)", p.r.style(okStyle, okMark), e.Kind, e.Resource, e.Target))
	case dispatch.EventResourceFailed:
		p.r.line(fmt.Sprintf("  %s %s %s (%s): %s", p.r.style(failedStyle, failMark), e.Kind, e.Resource, e.Target, e.Message))
	case dispatch.EventPlanWarning:
		p.r.line(fmt.Sprintf("  %s %s", p.r.style(warningStyle, warnMark), e.Message))
	case dispatch.EventResourceCreating, dispatch.EventScopeEnsured,
		dispatch.EventDispatchStarted, dispatch.EventDispatchCompleted, dispatch.EventDispatchFailed:
		if p.verbose {
			p.r.line(p.r.style(dimStyle, fmt.Sprintf("  %-18s %s", e.Type, e.Message)))
		}
	}
}

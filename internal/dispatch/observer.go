package dispatch

import (
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events as dispatch progresses. Implement it
// to stream progress to a terminal, a log pipeline, or a test recorder.
type Observer interface {
	Event(event Event)
}

// Event represents a structured dispatch event.
type Event struct {
	Type      EventType         // Type of event
	Kind      Kind              // Resource kind being dispatched
	Target    string            // "backend/region" the event applies to
	Resource  string            // Resource name if applicable
	Message   string            // Human-readable message
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of dispatch event.
type EventType string

const (
	// EventDispatchStarted indicates a dispatch call began planning.
	EventDispatchStarted EventType = "dispatch.started"
	// EventDispatchCompleted indicates every target finished successfully.
	EventDispatchCompleted EventType = "dispatch.completed"
	// EventDispatchFailed indicates the dispatch call failed.
	EventDispatchFailed EventType = "dispatch.failed"

	// EventResourceCreating indicates a per-target create was issued.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates a per-target create succeeded.
	EventResourceCreated EventType = "resource.created"
	// EventResourceFailed indicates a per-target create failed.
	EventResourceFailed EventType = "resource.failed"

	// EventScopeEnsured indicates a shared grouping scope was created or
	// reused from the session cache.
	EventScopeEnsured EventType = "scope.ensured"

	// EventPlanWarning indicates planning produced a non-fatal warning,
	// e.g. a dropped tag key.
	EventPlanWarning EventType = "plan.warning"
)

// NopObserver discards all events.
type NopObserver struct{}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// LogObserver forwards events to a logr.Logger as structured key/value
// pairs.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an observer backed by log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []any{
		"type", string(event.Type),
		"kind", string(event.Kind),
	}
	if event.Target != "" {
		kv = append(kv, "target", event.Target)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}
	o.log.Info(event.Message, kv...)
}

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}

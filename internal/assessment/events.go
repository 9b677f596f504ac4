package assessment

import "github.com/google/uuid"

// EventKind labels the signals a session emits while running.
type EventKind string

const (
	EventTick             EventKind = "tick"
	EventWarning          EventKind = "warning"
	EventDisqualified     EventKind = "disqualified"
	EventCompleted        EventKind = "completed"
	EventSubmitFailed     EventKind = "submit_failed"
	EventClipboardBlocked EventKind = "clipboard_blocked"
)

// Event is a session signal delivered to the EventSink. Fields are populated
// per kind: RemainingSeconds for ticks, ViolationCount for warnings and
// disqualifications, Clipboard for blocked clipboard gestures, Err for failed
// submissions.
type Event struct {
	Kind             EventKind
	ApplicationID    uuid.UUID
	RemainingSeconds int
	ViolationCount   int
	Clipboard        ClipboardKind
	Trigger          Trigger
	Err              error
}

// EventSink receives session signals. Implementations must not call back
// into the session from Publish; the session's lock is held while publishing.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a plain function to the EventSink interface.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// NopSink discards all events.
var NopSink EventSink = SinkFunc(func(Event) {})

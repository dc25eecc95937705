package core

// EventKind names a notification the Coordinator emits to whichever shell
// is hosting it (the Wails-bound App in cmd/sagascript; cmd/sagascriptctl
// does not run a Coordinator). Deliberately decoupled from Wails' event
// bus so a non-Wails front end can consume the same stream.
type EventKind string

const (
	EventStateChanged            EventKind = "state-changed"
	EventTranscriptionResult     EventKind = "transcription-result"
	EventTranscriptionProgress   EventKind = "transcription-progress"
	EventError                   EventKind = "error"
	EventModelDownloadProgress   EventKind = "model-download-progress"
	EventModelReady              EventKind = "model-ready"
)

// Event is the payload delivered to an EventSink. Fields not relevant to
// Kind are left at their zero value.
type Event struct {
	Kind EventKind

	// EventStateChanged
	State State

	// EventTranscriptionResult
	Text    string
	Session string

	// EventTranscriptionProgress: 0-100, -1 if indeterminate
	Percent int

	// EventError
	Err error

	// EventModelDownloadProgress / EventModelReady
	Model      ModelID
	Downloaded int64
	Total      int64
}

// EventSink receives Coordinator/ModelStore notifications. Implementations
// must not block; Publish is fire-and-forget and may be called from the
// inference worker goroutine.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// NopEventSink discards every event; NewCoordinator uses it when given a
// nil sink, and the desktop App holds it until main.go installs its own.
var NopEventSink EventSink = EventSinkFunc(func(Event) {})

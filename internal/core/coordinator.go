package core

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ContextCapturer supplies up to ~200 characters of text immediately
// preceding the cursor, used as an initial prompt so Whisper matches the
// surrounding document's register. The CLI/offline path leaves this nil
// (see Coordinator.activeContext).
type ContextCapturer interface {
	CaptureContextText() string
}

// fillerSuppressionPrompt is appended to any captured context; it
// measurably reduces "um"/"uh" artifacts in short dictation bursts.
const fillerSuppressionPrompt = " Here is a clean, grammatically correct transcript without filler words or stutters:"

// Coordinator is the dictation pipeline's state machine:
// Idle -> Recording -> Transcribing -> Idle. On a failure Error is
// published and the state returns to Idle at once, so the next hotkey
// press starts afresh. Exactly one state transition is
// in flight at a time; no blocking call (capture, inference, paste) is
// ever made while holding mu.
type Coordinator struct {
	mu    sync.Mutex
	state State

	capture  *CaptureSource
	engine   *Engine
	models   *ModelStore
	paste    *PasteSink
	settings *SettingsStore
	context  ContextCapturer // nil outside the GUI hotkey path

	events EventSink

	appSession      string
	dictationSession string
	recordingStart   time.Time
	activeContext    string
	cancelRecording  context.CancelFunc

	lastTranscription string
	lastErr           error

	// cancelled marks the in-flight transcription as abandoned: whatever
	// the worker eventually returns is observed but discarded (no paste,
	// no lastTranscription update).
	cancelled bool

	// stopping guards the stop path: it is set under mu before the
	// min-duration sleep and capture join run unlocked, so a second stop
	// request arriving mid-flight is a no-op.
	stopping bool
}

// NewCoordinator wires the subsystems together. events may be nil if the
// caller (e.g. the offline CLI path) has no UI to notify.
func NewCoordinator(capture *CaptureSource, engine *Engine, models *ModelStore, paste *PasteSink, settings *SettingsStore, events EventSink) *Coordinator {
	if events == nil {
		events = NopEventSink
	}
	return &Coordinator{
		state:      StateIdle,
		capture:    capture,
		engine:     engine,
		models:     models,
		paste:      paste,
		settings:   settings,
		events:     events,
		appSession: uuid.NewString(),
	}
}

// SetContextCapturer wires the macOS Accessibility-API context reader. Only
// called by cmd/sagascript; the CLI path never calls it, so activeContext
// stays empty there.
func (c *Coordinator) SetContextCapturer(cc ContextCapturer) {
	c.mu.Lock()
	c.context = cc
	c.mu.Unlock()
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastTranscription returns the most recent successfully transcribed text.
func (c *Coordinator) LastTranscription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTranscription
}

// LastError returns the most recent error the pipeline surfaced, or nil.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Coordinator) setState(s State) {
	c.state = s
	c.events.Publish(Event{Kind: EventStateChanged, State: s})
}

// OnHotkeyDown handles a hotkey press: push-to-talk starts recording from
// Idle; toggle starts recording from Idle and, from Recording, stops and
// transcribes (golang.design/x/hotkey reports presses only — see
// HotkeyBridge's doc comment). A press in any other state is ignored.
func (c *Coordinator) OnHotkeyDown(ctx context.Context, mode HotkeyMode) {
	switch mode {
	case HotkeyModePushToTalk:
		c.startRecording(ctx)
	case HotkeyModeToggle:
		switch c.State() {
		case StateIdle:
			c.startRecording(ctx)
		case StateRecording:
			c.stopAndTranscribe()
		default:
			// Busy transcribing or in Error; ignore the press.
		}
	}
}

// OnHotkeyUp handles a hotkey release. Only push-to-talk mode acts on it;
// toggle mode already handled the full cycle in OnHotkeyDown.
func (c *Coordinator) OnHotkeyUp(mode HotkeyMode) {
	if mode != HotkeyModePushToTalk {
		return
	}
	c.stopAndTranscribe()
}

// startRecording reserves the Idle -> Recording transition under mu, then
// starts capture with the lock dropped (opening the device blocks for the
// warm-up period) and re-locks only to commit or roll back the outcome.
func (c *Coordinator) startRecording(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.dictationSession = uuid.NewString()
	session := c.dictationSession
	capturer := c.context
	c.setState(StateRecording)
	c.mu.Unlock()

	log.Printf("coordinator: dictation session %s started (app session %s)", session, c.appSession)

	active := ""
	if capturer != nil {
		active = capturer.CaptureContextText()
	}

	recordCtx, cancel := context.WithCancel(ctx)
	err := c.capture.Start(recordCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		cancel()
		c.reportErrorLocked(err)
		return
	}
	if c.state != StateRecording {
		// Cancelled while the device was warming up; tear the stream back
		// down and leave the state wherever Cancel put it.
		cancel()
		go c.capture.Stop() //nolint:errcheck
		return
	}
	c.activeContext = active
	c.cancelRecording = cancel
	c.recordingStart = time.Now()
}

// stopAndTranscribe enforces the minimum-recording-duration floor and joins
// the capture stream with mu dropped — both can block for hundreds of
// milliseconds and must not stall Cancel() — then re-locks to commit the
// Recording -> Transcribing transition and hands the sealed buffer to the
// inference goroutine.
func (c *Coordinator) stopAndTranscribe() {
	c.mu.Lock()
	if c.state != StateRecording || c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	started := c.recordingStart
	c.mu.Unlock()

	if wait := MinRecordingDuration*time.Millisecond - time.Since(started); wait > 0 {
		time.Sleep(wait)
	}

	pcm, err := c.capture.Stop()

	c.mu.Lock()
	c.stopping = false
	if c.cancelRecording != nil {
		c.cancelRecording()
		c.cancelRecording = nil
	}
	if c.state != StateRecording {
		// Cancelled during the sleep or the join; the buffer is discarded.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.reportErrorLocked(err)
		c.mu.Unlock()
		return
	}
	c.setState(StateTranscribing)
	c.cancelled = false
	session := c.dictationSession
	prompt := c.promptFor()
	c.mu.Unlock()

	go c.runTranscription(pcm, session, prompt)
}

func (c *Coordinator) promptFor() string {
	if c.activeContext != "" {
		return c.activeContext + fillerSuppressionPrompt
	}
	return fillerSuppressionPrompt
}

// runTranscription executes off the Coordinator's lock. It re-acquires mu
// only to commit the resulting state transition.
func (c *Coordinator) runTranscription(pcm AudioBuffer, session, prompt string) {
	settings, err := c.settings.Load()
	if err != nil {
		c.finishWithError(session, err)
		return
	}

	if err := c.engine.EnsureLoaded(c.models, settings.EffectiveModel()); err != nil {
		c.finishWithError(session, err)
		return
	}

	text, err := c.engine.Transcribe(context.Background(), pcm, settings.Language, prompt, func(percent int) {
		c.events.Publish(Event{Kind: EventTranscriptionProgress, Percent: percent, Session: session})
	})
	if err != nil {
		c.finishWithError(session, err)
		return
	}

	c.mu.Lock()
	discarded := c.cancelled
	c.cancelled = false
	if !discarded && text != "" {
		c.lastTranscription = text
	}
	c.setState(StateIdle)
	c.mu.Unlock()

	if discarded {
		log.Printf("coordinator: dictation session %s cancelled, result discarded", session)
		return
	}
	if text == "" {
		log.Printf("coordinator: dictation session %s produced no speech", session)
		return
	}

	c.events.Publish(Event{Kind: EventTranscriptionResult, Text: text, Session: session})
	log.Printf("coordinator: dictation session %s produced %d chars", session, len(text))

	if settings.AutoPaste {
		if err := c.paste.PasteHere(text); err != nil {
			log.Printf("coordinator: paste failed, left on clipboard: %v", err)
			c.events.Publish(Event{Kind: EventError, Err: err, Session: session})
		}
	}
}

func (c *Coordinator) finishWithError(session string, err error) {
	c.mu.Lock()
	if c.cancelled {
		// The user already walked away from this session; whatever the
		// worker died of is not worth surfacing.
		c.cancelled = false
		c.setState(StateIdle)
		c.mu.Unlock()
		log.Printf("coordinator: dictation session %s cancelled (worker returned %v)", session, err)
		return
	}
	c.reportErrorLocked(err)
	c.mu.Unlock()
	log.Printf("coordinator: dictation session %s failed: %v", session, err)
}

func (c *Coordinator) reportErrorLocked(err error) {
	c.lastErr = err
	c.setState(StateError)
	c.events.Publish(Event{Kind: EventError, Err: err})
	// Errors are recoverable: the next hotkey press tries again from Idle.
	c.state = StateIdle
}

// Cancel aborts an in-flight recording or transcription without producing
// a result. In Recording the transition to Idle is immediate; the capture
// stream is torn down after mu is released so Cancel never blocks on the
// capture join.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	switch c.state {
	case StateRecording:
		if c.cancelRecording != nil {
			c.cancelRecording()
			c.cancelRecording = nil
		}
		c.setState(StateIdle)
		c.mu.Unlock()
		_, _ = c.capture.Stop()
	case StateTranscribing:
		c.cancelled = true
		c.engine.RequestAbort()
		// state settles to Idle via runTranscription's own completion; the
		// result, if the worker still produces one, is discarded.
		c.mu.Unlock()
	default:
		c.mu.Unlock()
	}
}

// RetryLastTranscription re-runs inference on the most recent recording
// that didn't produce a result.
func (c *Coordinator) RetryLastTranscription() {
	pcm := c.engine.LastAudio()
	if len(pcm) == 0 {
		return
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.setState(StateTranscribing)
	session := c.dictationSession
	prompt := c.promptFor()
	c.mu.Unlock()

	go c.runTranscription(pcm, session, prompt)
}

package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// engineBackend abstracts whisper.cpp's CGo surface so tests can inject a
// fake. Carries a language code, an initial prompt, and a no-speech
// threshold, since Engine serves every model/language combination in
// ModelRegistry.
type engineBackend interface {
	Load(modelPath string, noSpeechThreshold float32) error
	Transcribe(pcm []float32, language, prompt string, onProgress func(percent int)) (string, error)
	Close() error
}

// realEngineBackend wraps github.com/ggerganov/whisper.cpp/bindings/go.
type realEngineBackend struct {
	model   whisperlib.Model
	context whisperlib.Context
}

func newRealEngineBackend() *realEngineBackend { return &realEngineBackend{} }

func (r *realEngineBackend) Load(modelPath string, noSpeechThreshold float32) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return ErrModelNotOnDisk
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return ModelLoadFailed(fmt.Errorf("load model %q: %w", modelPath, err))
	}
	r.model = model

	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return ModelLoadFailed(fmt.Errorf("create context: %w", err))
	}

	// Speed tuning for short dictation bursts: half the logical cores
	// (keeps the UI and audio-callback threads responsive while inference
	// runs), a reduced beam size, and a shrunk encoder context window.
	threads := runtime.NumCPU() / 2
	if threads < 1 {
		threads = 1
	}
	ctx.SetThreads(uint(threads))
	ctx.SetBeamSize(2)
	ctx.SetAudioCtx(768)
	ctx.SetMaxContext(0)
	// The bindings expose no per-run no-speech threshold setter; silence
	// mislabeling is handled downstream by isHallucination instead.
	_ = noSpeechThreshold

	r.context = ctx
	return nil
}

func (r *realEngineBackend) Transcribe(pcm []float32, language, prompt string, onProgress func(int)) (string, error) {
	if r.context == nil {
		return "", fmt.Errorf("engine: not loaded")
	}
	if language != "" {
		_ = r.context.SetLanguage(language) //nolint:errcheck
	}
	if prompt != "" {
		r.context.SetInitialPrompt(prompt)
	}

	var progressCb whisperlib.ProgressCallback
	if onProgress != nil {
		progressCb = onProgress
	}
	if err := r.context.Process(pcm, nil, nil, progressCb); err != nil {
		return "", err
	}

	var text string
	for {
		seg, err := r.context.NextSegment()
		if err != nil {
			break
		}
		text += seg.Text
	}
	return text, nil
}

func (r *realEngineBackend) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// Engine owns model loading and transcription. A single in-flight
// Transcribe is enforced by mu; RequestAbort is best-effort — see the
// Transcribe doc comment.
type Engine struct {
	backend engineBackend

	mu       sync.Mutex
	loadedID ModelID
	loaded   atomic.Bool

	// runMu is held by the worker goroutine for the duration of a backend
	// call. A Transcribe abandoned on timeout keeps holding it until the
	// underlying call actually returns, so the next backend call (or a
	// model swap) can never race it on the same C context.
	runMu sync.Mutex

	abortFlag atomic.Bool

	lastAudioMu sync.Mutex
	lastAudio   AudioBuffer // retained for RetryLastTranscription
}

// NewEngine returns an Engine backed by the real whisper.cpp bindings.
func NewEngine() *Engine {
	return &Engine{backend: newRealEngineBackend()}
}

// newEngineWithBackend injects a fake backend (tests only).
func newEngineWithBackend(b engineBackend) *Engine {
	return &Engine{backend: b}
}

// EnsureLoaded loads model if it isn't already the active one. Safe to
// call before every Transcribe; a no-op when model is already loaded.
func (e *Engine) EnsureLoaded(store *ModelStore, id ModelID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded.Load() && e.loadedID == id {
		return nil
	}

	info, ok := LookupModel(id)
	if !ok {
		return ErrModelNotFound
	}
	if !store.IsPresent(id) {
		return ErrModelNotOnDisk
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.loaded.Load() {
		if err := e.backend.Close(); err != nil {
			log.Printf("engine: close previous model (non-fatal): %v", err)
		}
		e.loaded.Store(false)
	}

	if err := e.backend.Load(store.PathOf(id), info.NoSpeechThreshold); err != nil {
		return err
	}
	e.loadedID = id
	e.loaded.Store(true)
	log.Printf("engine: loaded model %q", id)
	return nil
}

// IsLoaded reports whether a model is currently loaded.
func (e *Engine) IsLoaded() bool { return e.loaded.Load() }

// LoadedModel returns the currently loaded model id, or "" if none.
func (e *Engine) LoadedModel() ModelID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedID
}

// Transcribe runs inference on pcm with the given language override
// ("" uses the loaded model's tuned default) and prompt (context-capture
// text, or a filler-word-suppression instruction — see
// internal/core's ContextCapturer plumbing). It saves pcm as the retry
// surface before running, and clears it again only on success.
//
// Abort/timeout design: whisper.cpp's Go bindings, as exercised here
// (Context.Process / NextSegment), expose no abort-callback setter, so
// cancellation is best-effort: RequestAbort flips an atomic flag checked
// once the blocking call returns, and a timer races the call; if the
// timer wins, ErrTranscriptionTimedOut is returned to the caller
// immediately without waiting for Process — runMu then holds the next
// backend call behind the abandoned one until it eventually returns on
// its own.
func (e *Engine) Transcribe(ctx context.Context, pcm AudioBuffer, language Language, prompt string, onProgress func(percent int)) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoAudioCaptured
	}

	e.lastAudioMu.Lock()
	e.lastAudio = pcm
	e.lastAudioMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded.Load() {
		return "", ErrModelNotLoaded
	}
	e.abortFlag.Store(false)

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		e.runMu.Lock()
		defer e.runMu.Unlock()
		text, err := e.backend.Transcribe(pcm, language.WhisperCode(), prompt, onProgress)
		done <- result{text, err}
	}()

	timeout := time.NewTimer(InferenceTimeoutSeconds * time.Second)
	defer timeout.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return "", InferenceFailed(r.err)
		}
		if e.abortFlag.Load() {
			return "", nil
		}
		text := strings.TrimSpace(r.text)
		if text == "" || isHallucination(text) {
			return "", nil
		}
		e.lastAudioMu.Lock()
		e.lastAudio = nil
		e.lastAudioMu.Unlock()
		return text, nil
	case <-timeout.C:
		return "", ErrTranscriptionTimedOut
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RequestAbort signals the in-flight Transcribe to discard its result once
// the blocking call returns. Best-effort — see the Transcribe doc comment.
func (e *Engine) RequestAbort() { e.abortFlag.Store(true) }

// LastAudio returns the most recently captured buffer that has not yet
// produced a successful transcription, for the supplemental
// RetryLastTranscription command. Returns nil if there is nothing to retry.
func (e *Engine) LastAudio() AudioBuffer {
	e.lastAudioMu.Lock()
	defer e.lastAudioMu.Unlock()
	return e.lastAudio
}

// Close releases the loaded model's resources. Must be called before
// process exit to free GPU/Metal resources held by whisper.cpp.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded.Load() {
		return nil
	}
	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.loaded.Store(false)
	return e.backend.Close()
}

// isHallucination reports whether text is a known whisper.cpp artifact
// produced from silence or background noise.
func isHallucination(s string) bool {
	tags := []string{
		"[BLANK_AUDIO]", "[blank_audio]",
		"(Music)", "(music)", "(noise)", "(Noise)",
		"[MUSIC]", "[Music]", "(clapping)", "(Applause)", "[silence]",
	}
	for _, tag := range tags {
		if s == tag {
			return true
		}
	}
	return len(s) > 2 && ((s[0] == '[' && s[len(s)-1] == ']') || (s[0] == '(' && s[len(s)-1] == ')'))
}

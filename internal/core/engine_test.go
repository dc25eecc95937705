package core

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func writeEmptyFile(path string) error {
	return os.WriteFile(path, []byte{}, 0o644)
}

// fakeEngineBackend simulates whisper.cpp's Go bindings without any CGo.
type fakeEngineBackend struct {
	loadErr       error
	transcribeErr error
	result        string
	delay         time.Duration
	closed        bool
	loadedPath    string
}

func (f *fakeEngineBackend) Load(modelPath string, _ float32) error {
	f.loadedPath = modelPath
	return f.loadErr
}

func (f *fakeEngineBackend) Transcribe(_ []float32, _, _ string, onProgress func(int)) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	if onProgress != nil {
		onProgress(100)
	}
	return f.result, nil
}

func (f *fakeEngineBackend) Close() error { f.closed = true; return nil }

func newTestModelStore(t *testing.T, present ModelID) *ModelStore {
	t.Helper()
	dir := t.TempDir()
	store := newModelStoreAt(dir, nil)
	if present != "" {
		info, ok := LookupModel(present)
		if !ok {
			t.Fatalf("test model %q not in registry", present)
		}
		if err := writeEmptyFile(store.PathOf(info.ID)); err != nil {
			t.Fatalf("writeEmptyFile: %v", err)
		}
	}
	return store
}

func TestEngineEnsureLoadedRejectsMissingModel(t *testing.T) {
	backend := &fakeEngineBackend{}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, "")

	err := e.EnsureLoaded(store, ModelBaseEn)
	if err != ErrModelNotOnDisk {
		t.Fatalf("EnsureLoaded() error = %v, want ErrModelNotOnDisk", err)
	}
}

func TestEngineEnsureLoadedIsNoOpWhenAlreadyLoaded(t *testing.T) {
	backend := &fakeEngineBackend{}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)

	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("first EnsureLoaded() error: %v", err)
	}
	firstPath := backend.loadedPath
	backend.loadedPath = ""

	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("second EnsureLoaded() error: %v", err)
	}
	if backend.loadedPath != "" {
		t.Fatalf("EnsureLoaded() reloaded an already-loaded model; path = %q (first load was %q)", backend.loadedPath, firstPath)
	}
}

func TestEngineTranscribeReturnsTrimmedText(t *testing.T) {
	backend := &fakeEngineBackend{result: "  hello world  "}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	text, err := e.Transcribe(context.Background(), AudioBuffer{0, 0}, LanguageEnglish, "", nil)
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("Transcribe() text = %q, want %q", text, "hello world")
	}
}

func TestEngineTranscribeFiltersHallucination(t *testing.T) {
	backend := &fakeEngineBackend{result: "[BLANK_AUDIO]"}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	text, err := e.Transcribe(context.Background(), AudioBuffer{0}, LanguageEnglish, "", nil)
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("Transcribe() text = %q, want empty (hallucination filtered)", text)
	}
}

func TestEngineTranscribeWrapsBackendError(t *testing.T) {
	backend := &fakeEngineBackend{transcribeErr: errors.New("boom")}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	_, err := e.Transcribe(context.Background(), AudioBuffer{0}, LanguageEnglish, "", nil)
	de, ok := AsDictationError(err)
	if !ok || de.Kind != KindInferenceFailed {
		t.Fatalf("Transcribe() error = %v, want a KindInferenceFailed DictationError", err)
	}
}

func TestEngineTranscribeRequiresLoadedModel(t *testing.T) {
	e := newEngineWithBackend(&fakeEngineBackend{})
	_, err := e.Transcribe(context.Background(), AudioBuffer{0}, LanguageEnglish, "", nil)
	if err != ErrModelNotLoaded {
		t.Fatalf("Transcribe() error = %v, want ErrModelNotLoaded", err)
	}
}

func TestEngineTranscribeRejectsEmptyBuffer(t *testing.T) {
	e := newEngineWithBackend(&fakeEngineBackend{result: "unused"})
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}
	_, err := e.Transcribe(context.Background(), nil, LanguageEnglish, "", nil)
	if err != ErrNoAudioCaptured {
		t.Fatalf("Transcribe(empty) error = %v, want ErrNoAudioCaptured", err)
	}
}

// The 60s production ceiling is impractical to wait out; the same select
// is exercised through a short context deadline instead.
func TestEngineTranscribeTimesOut(t *testing.T) {
	backend := &fakeEngineBackend{result: "late", delay: 50 * time.Millisecond}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.Transcribe(ctx, AudioBuffer{0}, LanguageEnglish, "", nil)
	if err == nil {
		t.Fatal("Transcribe() error = nil, want context deadline exceeded")
	}
}

func TestEngineLastAudioSupportsRetry(t *testing.T) {
	backend := &fakeEngineBackend{transcribeErr: errors.New("fails once")}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	pcm := AudioBuffer{0.1, 0.2}
	if _, err := e.Transcribe(context.Background(), pcm, LanguageEnglish, "", nil); err == nil {
		t.Fatal("expected the first Transcribe to fail")
	}
	if len(e.LastAudio()) != len(pcm) {
		t.Fatalf("LastAudio() len = %d, want %d after a failed transcription", len(e.LastAudio()), len(pcm))
	}

	backend.transcribeErr = nil
	backend.result = "retried"
	text, err := e.Transcribe(context.Background(), e.LastAudio(), LanguageEnglish, "", nil)
	if err != nil {
		t.Fatalf("retry Transcribe() error: %v", err)
	}
	if text != "retried" {
		t.Fatalf("retry Transcribe() text = %q, want %q", text, "retried")
	}
	if e.LastAudio() != nil {
		t.Fatal("LastAudio() should be cleared after a successful transcription")
	}
}

func TestEngineClose(t *testing.T) {
	backend := &fakeEngineBackend{}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !backend.closed {
		t.Fatal("Close() did not close the backend")
	}
	if e.IsLoaded() {
		t.Fatal("IsLoaded() = true after Close()")
	}
}

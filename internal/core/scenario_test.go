package core

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"
)

// End-to-end dictation scenarios driven through the public
// Coordinator/Engine/ModelStore API, with fakes standing in for the
// OS-level backends.

func TestScenarioHappyPathPushToTalk(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	coord, sink := newTestCoordinator(t, backend, &fakeEngineBackend{result: "Hello world"}, "Hello world")

	coord.OnHotkeyDown(context.Background(), HotkeyModePushToTalk)
	if coord.State() != StateRecording {
		t.Fatalf("state after hotkey down = %v, want Recording", coord.State())
	}

	backend.push(make([]float32, 12000))
	time.Sleep(20 * time.Millisecond)
	coord.OnHotkeyUp(HotkeyModePushToTalk)

	deadline := time.After(2 * time.Second)
	for coord.State() != StateIdle {
		select {
		case <-deadline:
			t.Fatalf("state never settled to Idle; stuck at %v", coord.State())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	var gotResult bool
	var gotError bool
	var trace []State
	for _, e := range sink.all() {
		if e.Kind == EventStateChanged {
			trace = append(trace, e.State)
		}
		if e.Kind == EventTranscriptionResult && e.Text == "Hello world" {
			gotResult = true
		}
		if e.Kind == EventError {
			gotError = true
		}
	}
	if !gotResult {
		t.Fatal("expected an EventTranscriptionResult with text \"Hello world\"")
	}
	if got := coord.LastTranscription(); got != "Hello world" {
		t.Fatalf("LastTranscription() = %q, want %q", got, "Hello world")
	}
	if gotError {
		t.Fatal("expected no error event on the happy path")
	}
	if len(trace) < 3 || trace[0] != StateRecording || trace[1] != StateTranscribing || trace[len(trace)-1] != StateIdle {
		t.Fatalf("state trace = %v, want Recording, Transcribing, ..., Idle", trace)
	}
}

func TestScenarioShortPressBounceStillEnforcesMinimumDuration(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	coord, _ := newTestCoordinator(t, backend, &fakeEngineBackend{result: "ok"}, "ok")

	start := time.Now()
	coord.OnHotkeyDown(context.Background(), HotkeyModePushToTalk)
	backend.push([]float32{0.1})
	coord.OnHotkeyUp(HotkeyModePushToTalk) // up at ~t=0, well under MinRecordingDuration
	elapsed := time.Since(start)

	if elapsed < MinRecordingDuration*time.Millisecond {
		t.Fatalf("OnHotkeyUp returned after %v, want at least %dms (min-duration floor)", elapsed, MinRecordingDuration)
	}
}

func TestScenarioCancelDuringInference(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	slowEngine := &fakeEngineBackend{result: "should not be seen", delay: 2 * time.Second}
	coord, sink := newTestCoordinator(t, backend, slowEngine, "")

	coord.OnHotkeyDown(context.Background(), HotkeyModeToggle)
	backend.push([]float32{0.1, 0.2})
	time.Sleep(350 * time.Millisecond)
	coord.OnHotkeyDown(context.Background(), HotkeyModeToggle) // -> Transcribing

	if coord.State() != StateTranscribing {
		t.Fatalf("state = %v, want Transcribing before Cancel", coord.State())
	}

	coord.Cancel()
	if coord.State() != StateTranscribing {
		// Cancel requests abort but the state settles once the (slow) fake
		// backend actually returns — same best-effort contract as
		// production Engine.RequestAbort.
		t.Fatalf("state immediately after Cancel() = %v, want still Transcribing (best-effort abort)", coord.State())
	}

	deadline := time.After(5 * time.Second)
	for coord.State() != StateIdle {
		select {
		case <-deadline:
			t.Fatalf("state never settled to Idle after Cancel(); stuck at %v", coord.State())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	for _, e := range sink.all() {
		if e.Kind == EventTranscriptionResult {
			t.Fatal("a transcription result was published despite Cancel() during inference")
		}
	}
	if got := coord.LastTranscription(); got != "" {
		t.Fatalf("LastTranscription() = %q after a cancelled dictation, want unchanged (empty)", got)
	}
	if err := coord.LastError(); err != nil {
		t.Fatalf("LastError() = %v after a cancelled dictation, want unchanged (nil)", err)
	}
}

func TestScenarioModelMissing(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	capture := newCaptureSourceWithBackend(backend)
	engine := newEngineWithBackend(&fakeEngineBackend{result: "unused"})
	store := newModelStoreAt(t.TempDir(), nil) // no model file written
	paste := newPasteSinkWithBackends(&fakePlatformPaster{trusted: true}, &fakeClipboard{})
	settings := newSettingsStoreAt(t.TempDir() + "/settings.json")
	cfg := DefaultSettings()
	cfg.Model = ModelBaseEn
	cfg.AutoSelectModel = false
	if err := settings.Save(cfg); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	sink := &recordingEventSink{}
	coord := NewCoordinator(capture, engine, store, paste, settings, sink)

	coord.OnHotkeyDown(context.Background(), HotkeyModeToggle)
	backend.push([]float32{0.1})
	time.Sleep(350 * time.Millisecond)
	coord.OnHotkeyDown(context.Background(), HotkeyModeToggle)

	deadline := time.After(2 * time.Second)
	for coord.State() != StateIdle {
		select {
		case <-deadline:
			t.Fatalf("state never settled to Idle after a ModelNotOnDisk failure; stuck at %v", coord.State())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	var sawModelError bool
	for _, e := range sink.all() {
		if e.Kind == EventError && e.Err == ErrModelNotOnDisk {
			sawModelError = true
		}
	}
	if !sawModelError {
		t.Fatal("expected an EventError carrying ErrModelNotOnDisk")
	}
}

func TestScenarioModelDownload(t *testing.T) {
	body := []byte("canned-model-bytes-0123456789")
	doer := &fakeModelDoer{status: http.StatusOK, body: body}
	store := newModelStoreAt(t.TempDir(), doer)

	var progressSeen []int64
	path, err := store.Download(context.Background(), ModelTinyEn, func(downloaded, total int64) {
		progressSeen = append(progressSeen, downloaded)
	})
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	for i := 1; i < len(progressSeen); i++ {
		if progressSeen[i] < progressSeen[i-1] {
			t.Fatalf("progress callback went non-monotonic: %v", progressSeen)
		}
	}
	if !store.IsPresent(ModelTinyEn) {
		t.Fatal("IsPresent() = false after a completed download")
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(onDisk) != string(body) {
		t.Fatalf("on-disk bytes = %q, want %q", onDisk, body)
	}
}

func TestScenarioInferenceTimeout(t *testing.T) {
	backend := &fakeEngineBackend{result: "never seen", delay: time.Hour}
	e := newEngineWithBackend(backend)
	store := newTestModelStore(t, ModelBaseEn)
	if err := e.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	// Exercises the same timeout-race path InferenceTimeoutSeconds drives in
	// production, via a short ctx deadline instead of actually waiting 60s.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	_, err := e.Transcribe(ctx, AudioBuffer{0, 0}, LanguageEnglish, "", nil)
	if err == nil {
		t.Fatal("Transcribe() error = nil, want a timeout")
	}

	e.RequestAbort()
	if !e.abortFlag.Load() {
		t.Fatal("RequestAbort() did not set the abort flag")
	}

	// A subsequent dictation on a fresh Engine succeeds once the slow call
	// is no longer held against it.
	fresh := newEngineWithBackend(&fakeEngineBackend{result: "back online"})
	if err := fresh.EnsureLoaded(store, ModelBaseEn); err != nil {
		t.Fatalf("EnsureLoaded() on fresh engine: %v", err)
	}
	text, err := fresh.Transcribe(context.Background(), AudioBuffer{0}, LanguageEnglish, "", nil)
	if err != nil {
		t.Fatalf("Transcribe() on fresh engine unexpected error: %v", err)
	}
	if text != "back online" {
		t.Fatalf("Transcribe() text = %q, want %q", text, "back online")
	}
}

package core

import (
	"context"
	"testing"
	"time"
)

// fakeCaptureBackend simulates a PortAudio stream without touching a real
// microphone.
type fakeCaptureBackend struct {
	opened   bool
	started  bool
	closed   bool
	rate     float64
	channels int
	frames   chan []float32
}

func newFakeCaptureBackend(rate float64) *fakeCaptureBackend {
	return &fakeCaptureBackend{rate: rate, channels: 1, frames: make(chan []float32, 16)}
}

func (f *fakeCaptureBackend) Open() error  { f.opened = true; return nil }
func (f *fakeCaptureBackend) Start() error { f.started = true; return nil }
func (f *fakeCaptureBackend) Stop() error {
	f.started = false
	close(f.frames)
	return nil
}
func (f *fakeCaptureBackend) Close() error              { f.closed = true; return nil }
func (f *fakeCaptureBackend) Frames() <-chan []float32  { return f.frames }
func (f *fakeCaptureBackend) NativeSampleRate() float64 { return f.rate }
func (f *fakeCaptureBackend) Channels() int             { return f.channels }

func (f *fakeCaptureBackend) push(frame []float32) { f.frames <- frame }

func TestCaptureSourceStartStop(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	cs := newCaptureSourceWithBackend(backend)

	if err := cs.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	if !cs.IsRecording() {
		t.Fatal("IsRecording() = false after Start()")
	}

	backend.push([]float32{0.1, 0.2, 0.3, 0.4})
	time.Sleep(20 * time.Millisecond)

	pcm, err := cs.Stop()
	if err != nil {
		t.Fatalf("Stop() unexpected error: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("Stop() returned %d samples, want 4", len(pcm))
	}
	if cs.IsRecording() {
		t.Fatal("IsRecording() = true after Stop()")
	}
}

func TestCaptureSourceStopWithoutAudioReturnsError(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	cs := newCaptureSourceWithBackend(backend)

	if err := cs.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	pcm, err := cs.Stop()
	if err != ErrNoAudioCaptured {
		t.Fatalf("Stop() error = %v, want ErrNoAudioCaptured", err)
	}
	if pcm != nil {
		t.Fatalf("Stop() pcm = %v, want nil", pcm)
	}
}

func TestCaptureSourceStartIsIdempotent(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	cs := newCaptureSourceWithBackend(backend)

	if err := cs.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	if err := cs.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	cs.Stop() //nolint:errcheck
}

func TestCaptureSourceDownmixesStereoToMono(t *testing.T) {
	backend := newFakeCaptureBackend(SampleRateHz)
	backend.channels = 2
	cs := newCaptureSourceWithBackend(backend)

	if err := cs.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	// Interleaved stereo with identical channels; the mono average must
	// reproduce the channel unchanged.
	backend.push([]float32{0.1, 0.1, -0.5, -0.5, 0.25, 0.25})
	time.Sleep(20 * time.Millisecond)

	pcm, err := cs.Stop()
	if err != nil {
		t.Fatalf("Stop() unexpected error: %v", err)
	}
	want := []float32{0.1, -0.5, 0.25}
	if len(pcm) != len(want) {
		t.Fatalf("Stop() returned %d samples, want %d", len(pcm), len(want))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("pcm[%d] = %v, want %v", i, pcm[i], want[i])
		}
	}
}

func TestDownmixInterleavedAverages(t *testing.T) {
	out := downmixInterleaved([]float32{1, 0, -1, 0}, 2)
	if len(out) != 2 || out[0] != 0.5 || out[1] != -0.5 {
		t.Fatalf("downmixInterleaved = %v, want [0.5 -0.5]", out)
	}
}

func TestResampleNearestUpsamples(t *testing.T) {
	in := []float32{1, 2}
	out := resampleNearest(in, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("resampleNearest upsample len = %d, want 4", len(out))
	}
}

func TestResampleNearestSameRateCopies(t *testing.T) {
	in := []float32{1, 2, 3}
	out := resampleNearest(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("resampleNearest same-rate len = %d, want %d", len(out), len(in))
	}
	out[0] = 99
	if in[0] == 99 {
		t.Fatal("resampleNearest same-rate path aliased the input slice")
	}
}

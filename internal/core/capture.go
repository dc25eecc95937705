package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

const captureFramesPerBuf = 512

// captureBackend abstracts the real PortAudio implementation so tests can
// inject a fake without a microphone.
type captureBackend interface {
	Open() error
	Start() error
	Stop() error
	Close() error
	Frames() <-chan []float32
	NativeSampleRate() float64
	Channels() int
}

// realCaptureBackend wraps gordonklaus/portaudio, opening the default input
// device at its native rate; downmixing and resampling to 16kHz mono
// happen on the consumer side, since devices are rarely 16kHz mono
// natively.
type realCaptureBackend struct {
	stream     *portaudio.Stream
	framesCh   chan []float32
	deviceRate float64
	channels   int
}

func newRealCaptureBackend() *realCaptureBackend {
	return &realCaptureBackend{framesCh: make(chan []float32, 64)}
}

func (r *realCaptureBackend) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		return ErrNoInputDevice
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		portaudio.Terminate() //nolint:errcheck
		return ErrNoInputDevice
	}
	r.channels = channels
	r.deviceRate = dev.DefaultSampleRate

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = r.deviceRate
	params.FramesPerBuffer = captureFramesPerBuf

	// Stop closes the previous stream's channel, so every stream gets a
	// fresh one.
	r.framesCh = make(chan []float32, 64)

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		frame := make([]float32, len(in))
		copy(frame, in)
		select {
		case r.framesCh <- frame:
		default:
			// Consumer too slow; drop this frame. Frames dropped here are
			// not counted; capturedAudio's overflow flag only tracks the
			// 15-minute cap.
		}
	})
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "denied") || strings.Contains(errStr, "unauthorized") {
			return ErrMicPermissionDenied
		}
		if strings.Contains(errStr, "format") || strings.Contains(errStr, "sample") {
			return ErrUnsupportedSampleFormat
		}
		return StreamBuildFailed(err)
	}
	r.stream = stream
	return nil
}

func (r *realCaptureBackend) Start() error {
	if err := r.stream.Start(); err != nil {
		return StreamBuildFailed(err)
	}
	return nil
}

func (r *realCaptureBackend) Stop() error {
	if err := r.stream.Stop(); err != nil {
		return fmt.Errorf("capture: stop stream: %w", err)
	}
	close(r.framesCh)
	return nil
}

func (r *realCaptureBackend) Close() error {
	err := r.stream.Close()
	portaudio.Terminate() //nolint:errcheck
	return err
}

func (r *realCaptureBackend) Frames() <-chan []float32  { return r.framesCh }
func (r *realCaptureBackend) NativeSampleRate() float64 { return r.deviceRate }
func (r *realCaptureBackend) Channels() int             { return r.channels }

// CaptureSource owns the dedicated capture goroutine: it downmixes to
// mono, resamples to 16kHz via nearest-neighbour (cheap, adequate for
// live capture — the high-quality sinc resampler in internal/audio is
// reserved for the offline decode path), and accumulates into a
// capturedAudio buffer that drops at the tail once full.
type CaptureSource struct {
	backend   captureBackend
	buf       *capturedAudio
	recording atomic.Bool
	cancel    context.CancelFunc
}

// NewCaptureSource returns a CaptureSource backed by the real PortAudio device.
func NewCaptureSource() *CaptureSource {
	return &CaptureSource{backend: newRealCaptureBackend(), buf: newCapturedAudio()}
}

// newCaptureSourceWithBackend injects a fake backend (tests only).
func newCaptureSourceWithBackend(b captureBackend) *CaptureSource {
	return &CaptureSource{backend: b, buf: newCapturedAudio()}
}

// Start opens the input device and begins accumulating samples. Idempotent
// while already recording.
func (c *CaptureSource) Start(ctx context.Context) error {
	if c.recording.Load() {
		return nil
	}

	if err := c.backend.Open(); err != nil {
		return err
	}
	if err := c.backend.Start(); err != nil {
		c.backend.Close() //nolint:errcheck
		return err
	}

	c.buf.Reset()
	captureCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.recording.Store(true)

	rate := c.backend.NativeSampleRate()
	channels := c.backend.Channels()
	frames := c.backend.Frames()

	go func() {
		for {
			select {
			case <-captureCtx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				mono := downmixInterleaved(frame, channels)
				c.buf.Append(resampleNearest(mono, rate, SampleRateHz))
			}
		}
	}()

	// Brief warm-up so callers can assume samples flow once Start returns.
	time.Sleep(50 * time.Millisecond)

	return nil
}

// Stop ends capture and returns the accumulated buffer. A short recording
// (below MinRecordingDuration) is still returned in full — the Coordinator
// is responsible for enforcing the minimum-duration floor on hotkey-up,
// not CaptureSource.
func (c *CaptureSource) Stop() (AudioBuffer, error) {
	// CompareAndSwap so a racing second Stop (a cancel arriving while the
	// normal stop path is mid-flight) becomes a no-op instead of a
	// double-close of the backend.
	if !c.recording.CompareAndSwap(true, false) {
		return nil, nil
	}
	if c.cancel != nil {
		c.cancel()
	}

	if err := c.backend.Stop(); err != nil {
		return nil, fmt.Errorf("capture: stop: %w", err)
	}
	if err := c.backend.Close(); err != nil {
		// Non-fatal: samples are already in hand.
		_ = err
	}

	pcm, overflowed := c.buf.Snapshot()
	if overflowed {
		// Recording ran past the 15-minute ceiling; the tail was dropped.
		log.Printf("capture: recording exceeded the 15-minute cap, tail dropped")
	}
	if len(pcm) == 0 {
		return nil, ErrNoAudioCaptured
	}
	return pcm, nil
}

// IsRecording reports whether capture is currently active.
func (c *CaptureSource) IsRecording() bool { return c.recording.Load() }

// downmixInterleaved averages an interleaved multi-channel frame down to
// mono. Mono input is returned as-is.
func downmixInterleaved(frame []float32, channels int) []float32 {
	if channels <= 1 {
		return frame
	}
	n := len(frame) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += frame[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resampleNearest resamples from srcRate to dstRate via nearest-neighbour
// (cheap, good enough given Whisper's own lossy 16kHz mel front end); see
// internal/audio/resample.go for the higher-quality sinc kernel used on
// the offline file-decode path.
func resampleNearest(frame []float32, srcRate, dstRate float64) []float32 {
	if len(frame) == 0 {
		return nil
	}
	if srcRate <= 0 {
		srcRate = dstRate
	}
	if srcRate == dstRate {
		out := make([]float32, len(frame))
		copy(out, frame)
		return out
	}

	ratio := dstRate / srcRate
	outLen := int(float64(len(frame)) * ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		srcIdx := int(float64(i) / ratio)
		if srcIdx >= len(frame) {
			srcIdx = len(frame) - 1
		}
		out[i] = frame[srcIdx]
	}
	return out
}

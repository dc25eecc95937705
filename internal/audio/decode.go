package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/sagascript/sagascript/internal/core"
)

// DecodeFile reads an audio file at path and returns 16kHz mono float32
// PCM, downmixing and resampling as needed. Only WAV is supported;
// anything else returns core.UnsupportedFormat so callers can tell the
// user which extension was refused.
func DecodeFile(path string) (core.AudioBuffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" {
		return nil, core.UnsupportedFormat(ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, core.FileDecodeError(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, core.FileDecodeError(errInvalidWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, core.FileDecodeError(err)
	}

	srcRate := float64(buf.Format.SampleRate)
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	mono := downmix(buf.Data, channels, buf.SourceBitDepth)
	return SincResample(mono, srcRate, core.SampleRateHz), nil
}

var errInvalidWAV = decodeErr("not a valid WAV file")

type decodeErr string

func (e decodeErr) Error() string { return string(e) }

// downmix averages interleaved integer PCM samples across channels and
// normalises to [-1, 1] using the source bit depth.
func downmix(data []int, channels, bitDepth int) []float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	frames := len(data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(data[i*channels+ch]) / scale
		}
		out[i] = sum / float32(channels)
	}
	return out
}

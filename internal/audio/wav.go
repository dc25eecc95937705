// Package audio implements the offline file decode/encode boundary:
// reading an existing WAV file into the 16kHz mono float32 PCM
// core.Engine expects, and writing a captured buffer back out for
// `sagascriptctl record --output`.
package audio

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sagascript/sagascript/internal/core"
)

// EncodeWAV writes samples (16kHz mono float32, normalised to [-1, 1]) to
// path as a 16-bit PCM WAV file.
func EncodeWAV(path string, samples core.AudioBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return core.FileDecodeError(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, core.SampleRateHz, 16, 1, 1)
	defer enc.Close()

	intData := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		intData[i] = v
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: core.SampleRateHz},
		Data:           intData,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return core.FileDecodeError(err)
	}
	return nil
}

package audio

import "math"

// sincWindowHalfWidth is the number of source samples considered on each
// side of an output sample's ideal position. 8 gives a reasonably sharp
// transition band without the cost of a much wider kernel.
const sincWindowHalfWidth = 8

// SincResample resamples mono float32 PCM from srcRate to dstRate using a
// windowed-sinc kernel (Blackman window). Used on the offline file-decode
// path, where quality matters and there is no realtime deadline; the live
// microphone path uses the much cheaper nearest-neighbour resample in
// internal/core/capture.go since it runs inline with the audio callback
// and a sinc kernel there would risk underruns.
func SincResample(samples []float32, srcRate, dstRate float64) []float32 {
	if len(samples) == 0 {
		return nil
	}
	if srcRate <= 0 {
		srcRate = dstRate
	}
	if srcRate == dstRate {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := dstRate / srcRate
	outLen := int(float64(len(samples)) * ratio)
	if outLen < 1 {
		outLen = 1
	}

	// When downsampling, widen the kernel by 1/ratio to act as an
	// anti-aliasing low-pass filter at the new Nyquist frequency.
	kernelScale := 1.0
	if ratio < 1.0 {
		kernelScale = ratio
	}

	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		lo := int(math.Floor(srcPos)) - sincWindowHalfWidth
		hi := int(math.Floor(srcPos)) + sincWindowHalfWidth
		if lo < 0 {
			lo = 0
		}
		if hi >= len(samples) {
			hi = len(samples) - 1
		}

		var sum, weightSum float64
		for j := lo; j <= hi; j++ {
			x := (srcPos - float64(j)) * kernelScale
			w := sincKernel(x) * blackmanWindow(x, float64(sincWindowHalfWidth))
			sum += w * float64(samples[j])
			weightSum += w
		}
		if weightSum != 0 {
			out[i] = float32(sum / weightSum)
		}
	}
	return out
}

func sincKernel(x float64) float64 {
	if x == 0 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

func blackmanWindow(x, halfWidth float64) float64 {
	if halfWidth == 0 {
		return 1
	}
	n := x/(2*halfWidth) + 0.5
	if n < 0 || n > 1 {
		return 0
	}
	return 0.42 - 0.5*math.Cos(2*math.Pi*n) + 0.08*math.Cos(4*math.Pi*n)
}

package audio

import "math"

// FloatToPCM16 converts float samples in [-1, 1] to signed 16-bit PCM
// using round(sample * 32767). Out-of-range input is not clamped and
// overflows on conversion; callers feeding device audio stay in range.
func FloatToPCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = int16(math.Round(float64(s) * 32767))
	}
	return pcm
}

// PCM16ToFloat converts signed 16-bit PCM samples to floats in [-1, 1].
func PCM16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32767
	}
	return out
}

// EncodeFloatWAV converts float samples to 16-bit PCM and wraps them in a
// mono WAV container at the given sample rate.
func EncodeFloatWAV(samples []float32, sampleRate int) ([]byte, error) {
	return EncodeWAV(FloatToPCM16(samples), sampleRate)
}

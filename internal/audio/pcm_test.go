package audio

import (
	"math"
	"testing"
)

func TestFloatToPCM16RoundTrip(t *testing.T) {
	// In-range floats must survive a PCM-16 round trip within 1 LSB of the
	// int16 rounding of the original.
	input := []float32{0, 0.5, -0.5, 0.25, -0.999, 0.999, 1.0, -1.0, 0.0001}

	pcm := FloatToPCM16(input)
	back := PCM16ToFloat(pcm)

	for i, orig := range input {
		expected := int16(math.Round(float64(orig) * 32767))
		if pcm[i] != expected {
			t.Errorf("Sample %d: expected PCM value %d, got %d", i, expected, pcm[i])
		}

		restored := int16(math.Round(float64(back[i]) * 32767))
		if diff := int32(restored) - int32(expected); diff > 1 || diff < -1 {
			t.Errorf("Sample %d: round trip drifted by %d LSB (orig=%f, back=%f)",
				i, diff, orig, back[i])
		}
	}
}

func TestFloatToPCM16Extremes(t *testing.T) {
	pcm := FloatToPCM16([]float32{1.0, -1.0})

	if pcm[0] != 32767 {
		t.Errorf("Expected 32767 for +1.0, got %d", pcm[0])
	}

	if pcm[1] != -32767 {
		t.Errorf("Expected -32767 for -1.0, got %d", pcm[1])
	}
}

func TestEncodeFloatWAV(t *testing.T) {
	samples := []float32{0.1, -0.1, 0.2, -0.2}

	wavData, err := EncodeFloatWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeFloatWAV failed: %v", err)
	}

	// WAV data size must be exactly sample count * 2 bytes
	info, err := GetWAVInfo(wavData)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}

	if info.DataSize != uint32(len(samples)*2) {
		t.Errorf("Expected data size %d, got %d", len(samples)*2, info.DataSize)
	}

	decoded, rate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}

	for i, s := range samples {
		expected := int16(math.Round(float64(s) * 32767))
		if decoded[i] != expected {
			t.Errorf("Sample %d: expected %d, got %d", i, expected, decoded[i])
		}
	}
}

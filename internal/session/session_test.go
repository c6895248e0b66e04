package session

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExportNoAudio(t *testing.T) {
	r := NewRecorder(16000, testLogger())

	if _, err := r.Export(); err != ErrNoAudio {
		t.Errorf("Expected ErrNoAudio, got %v", err)
	}
}

func TestExportWAVSizeMatchesSamples(t *testing.T) {
	r := NewRecorder(16000, testLogger())

	// 10 blocks of 4000 samples
	totalSamples := 0
	for i := 0; i < 10; i++ {
		block := make([]float32, 4000)
		for j := range block {
			block[j] = float32(math.Sin(float64(totalSamples+j) * 0.01))
		}
		r.Append(block)
		totalSamples += len(block)
	}

	artifact, err := r.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Exported WAV data length must equal total sample count * 2 bytes
	info, err := audio.GetWAVInfo(artifact.WAV)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}

	if info.DataSize != uint32(totalSamples*2) {
		t.Errorf("Expected data size %d, got %d", totalSamples*2, info.DataSize)
	}

	if info.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", info.SampleRate)
	}

	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}

	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}
}

func TestExportFilenamePattern(t *testing.T) {
	r := NewRecorder(16000, testLogger())
	r.Append([]float32{0.1, 0.2, 0.3})

	artifact, err := r.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pattern := regexp.MustCompile(`^recording_\d{8}_\d{6}\.wav$`)
	if !pattern.MatchString(artifact.Filename) {
		t.Errorf("Filename '%s' does not match recording_<YYYYMMDD_HHMMSS>.wav", artifact.Filename)
	}
}

func TestExportConcatenatesBlocksInOrder(t *testing.T) {
	r := NewRecorder(16000, testLogger())

	r.Append([]float32{0.1, 0.2})
	r.Append([]float32{0.3})
	r.Append([]float32{0.4, 0.5})

	artifact, err := r.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	decoded, _, err := audio.DecodeWAV(artifact.WAV)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	expected := audio.FloatToPCM16([]float32{0.1, 0.2, 0.3, 0.4, 0.5})
	if len(decoded) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(decoded))
	}

	for i := range expected {
		if decoded[i] != expected[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, expected[i], decoded[i])
		}
	}
}

func TestRepeatedExportsReencode(t *testing.T) {
	r := NewRecorder(16000, testLogger())
	r.Append([]float32{0.1})

	first, err := r.Export()
	if err != nil {
		t.Fatalf("First export failed: %v", err)
	}

	r.Append([]float32{0.2})

	second, err := r.Export()
	if err != nil {
		t.Fatalf("Second export failed: %v", err)
	}

	if len(second.WAV) <= len(first.WAV) {
		t.Error("Second export should contain the block appended between exports")
	}

	stats := r.GetStats()
	if stats.Exports != 2 {
		t.Errorf("Expected 2 exports in stats, got %d", stats.Exports)
	}
}

func TestExportToFile(t *testing.T) {
	r := NewRecorder(16000, testLogger())
	r.Append([]float32{0.1, 0.2, 0.3})

	dir := t.TempDir()
	path, err := r.ExportToFile(dir)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("Expected file in %s, got %s", dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read exported file: %v", err)
	}

	if err := audio.ValidateWAV(data); err != nil {
		t.Errorf("Exported file is not valid WAV: %v", err)
	}
}

func TestGetStats(t *testing.T) {
	r := NewRecorder(16000, testLogger())

	r.Append(make([]float32, 8000))
	r.Append(make([]float32, 8000))

	stats := r.GetStats()
	if stats.Blocks != 2 {
		t.Errorf("Expected 2 blocks, got %d", stats.Blocks)
	}
	if stats.TotalSamples != 16000 {
		t.Errorf("Expected 16000 samples, got %d", stats.TotalSamples)
	}
	if stats.Duration.Seconds() != 1.0 {
		t.Errorf("Expected 1s recorded duration, got %v", stats.Duration)
	}
}

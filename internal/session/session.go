package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
)

// ErrNoAudio is returned by Export when no blocks have been recorded.
var ErrNoAudio = errors.New("no audio recorded")

// Artifact is one freshly-encoded WAV export. Artifacts are not cached;
// every export re-encodes the session from scratch.
type Artifact struct {
	Filename string
	WAV      []byte
}

// Recorder accumulates every captured audio block for the lifetime of the
// session. The capture callback is the only writer; exports take a
// consistent snapshot so a block is never observed mid-append.
type Recorder struct {
	logger     *slog.Logger
	sampleRate int
	startTime  time.Time

	mu           sync.RWMutex
	blocks       [][]float32
	totalSamples int
	exports      uint64
}

// Stats represents recorder statistics for monitoring
type Stats struct {
	StartTime    time.Time     `json:"start_time"`
	Blocks       int           `json:"blocks"`
	TotalSamples int           `json:"total_samples"`
	Duration     time.Duration `json:"recorded_duration"`
	Exports      uint64        `json:"exports"`
}

// NewRecorder creates a session recorder for the given capture rate.
func NewRecorder(sampleRate int, logger *slog.Logger) *Recorder {
	return &Recorder{
		logger:     logger,
		sampleRate: sampleRate,
		startTime:  time.Now(),
	}
}

// Append stores one captured block. The caller must hand over a block it
// will not mutate afterwards; the capture source passes a dedicated copy.
func (r *Recorder) Append(block []float32) {
	r.mu.Lock()
	r.blocks = append(r.blocks, block)
	r.totalSamples += len(block)
	r.mu.Unlock()
}

// snapshot returns a stable view of the block list for export while
// capture keeps appending.
func (r *Recorder) snapshot() ([][]float32, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blocks := make([][]float32, len(r.blocks))
	copy(blocks, r.blocks)
	return blocks, r.totalSamples
}

// Export encodes the audio recorded so far into a WAV artifact. The
// filename is derived from the export timestamp. Returns ErrNoAudio when
// nothing has been recorded yet.
func (r *Recorder) Export() (*Artifact, error) {
	blocks, totalSamples := r.snapshot()
	if len(blocks) == 0 {
		return nil, ErrNoAudio
	}

	samples := make([]float32, 0, totalSamples)
	for _, block := range blocks {
		samples = append(samples, block...)
	}

	wavData, err := audio.EncodeFloatWAV(samples, r.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session audio: %w", err)
	}

	filename := fmt.Sprintf("recording_%s.wav", time.Now().Format("20060102_150405"))

	r.mu.Lock()
	r.exports++
	r.mu.Unlock()

	r.logger.Info("Session audio exported",
		slog.String("filename", filename),
		slog.Int("blocks", len(blocks)),
		slog.Int("samples", len(samples)),
		slog.Int("wav_bytes", len(wavData)),
	)

	return &Artifact{
		Filename: filename,
		WAV:      wavData,
	}, nil
}

// ExportToFile writes a fresh export into dir and returns the full path.
// Used for the best-effort export on shutdown.
func (r *Recorder) ExportToFile(dir string) (string, error) {
	artifact, err := r.Export()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.WAV, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// SampleRate returns the recorder's sample rate.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

// GetStats returns current recorder statistics
func (r *Recorder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		StartTime:    r.startTime,
		Blocks:       len(r.blocks),
		TotalSamples: r.totalSamples,
		Duration:     time.Duration(float64(r.totalSamples) / float64(r.sampleRate) * float64(time.Second)),
		Exports:      r.exports,
	}
}

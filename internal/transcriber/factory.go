package transcriber

import (
	"fmt"

	"github.com/Bilal0876/live-transcription-service/internal/config"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
)

// New creates a Transcriber from the transcription configuration.
func New(cfg config.TranscriptionConfig, sampleRate int, m *metrics.Metrics) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper":
		return NewWhisperClient(WhisperConfig{
			Endpoint:    cfg.Endpoint,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Device:      cfg.Device,
			ComputeType: cfg.ComputeType,
			Language:    cfg.Language,
			BeamSize:    cfg.BeamSize,
			SampleRate:  sampleRate,
			Timeout:     cfg.GetTimeoutDuration(),
			MaxRetries:  cfg.MaxRetries,
			OnRetry:     m.RecordTranscriptionRetry,
		})
	case "stub":
		return NewStubTranscriber(sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend: %s", cfg.Backend)
	}
}

package transcriber

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bilal0876/live-transcription-service/internal/config"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
)

func TestFactoryBackends(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())

	tests := []struct {
		name    string
		cfg     config.TranscriptionConfig
		wantErr bool
	}{
		{
			name: "whisper backend",
			cfg: config.TranscriptionConfig{
				Backend:  "whisper",
				Endpoint: "http://localhost:9000/transcribe",
				Language: "en",
			},
		},
		{
			name: "stub backend",
			cfg:  config.TranscriptionConfig{Backend: "stub"},
		},
		{
			name:    "unknown backend",
			cfg:     config.TranscriptionConfig{Backend: "carrier-pigeon"},
			wantErr: true,
		},
		{
			name:    "whisper without endpoint",
			cfg:     config.TranscriptionConfig{Backend: "whisper"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trans, err := New(tt.cfg, 16000, m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				trans.Close()
			}
		})
	}
}

package transcriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
)

func testSamples(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i%100) / 200
	}
	return samples
}

func TestWhisperClientTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		if got := r.FormValue("language"); got != "en" {
			t.Errorf("Expected language 'en', got '%s'", got)
		}
		if got := r.FormValue("beam_size"); got != "5" {
			t.Errorf("Expected beam_size '5', got '%s'", got)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing audio file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		wavData := make([]byte, 0, 1024)
		buf := make([]byte, 4096)
		for {
			n, err := file.Read(buf)
			wavData = append(wavData, buf[:n]...)
			if err != nil {
				break
			}
		}
		if err := audio.ValidateWAV(wavData); err != nil {
			t.Errorf("Uploaded file is not valid WAV: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"language": "en",
			"duration": 1.0,
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 0.5, "text": " hello "},
				{"start": 0.5, "end": 1.0, "text": "world"},
			},
		})
	}))
	defer server.Close()

	client, err := NewWhisperClient(WhisperConfig{
		Endpoint:   server.URL,
		Language:   "en",
		BeamSize:   5,
		SampleRate: 16000,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewWhisperClient failed: %v", err)
	}
	defer client.Close()

	segments, err := client.Transcribe(context.Background(), testSamples(16000))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}

	if segments[0].Text != "hello" {
		t.Errorf("Expected trimmed text 'hello', got '%s'", segments[0].Text)
	}

	if segments[0].Start != 0 || segments[0].End != 0.5 {
		t.Errorf("Unexpected segment timestamps: start=%f end=%f", segments[0].Start, segments[0].End)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestWhisperClientEmptyBuffer(t *testing.T) {
	client, err := NewWhisperClient(WhisperConfig{
		Endpoint:   "http://localhost:9999",
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("NewWhisperClient failed: %v", err)
	}

	_, err = client.Transcribe(context.Background(), nil)
	if err != ErrEmptyBuffer {
		t.Errorf("Expected ErrEmptyBuffer, got %v", err)
	}
}

func TestWhisperClientRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "backend busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 1.0, "text": "recovered"},
			},
		})
	}))
	defer server.Close()

	client, err := NewWhisperClient(WhisperConfig{
		Endpoint:   server.URL,
		SampleRate: 16000,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("NewWhisperClient failed: %v", err)
	}

	segments, err := client.Transcribe(context.Background(), testSamples(1600))
	if err != nil {
		t.Fatalf("Transcribe failed after retries: %v", err)
	}

	if len(segments) != 1 || segments[0].Text != "recovered" {
		t.Errorf("Unexpected segments: %+v", segments)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}

	stats := client.GetStats()
	if stats.TotalRetries != 2 {
		t.Errorf("Expected 2 retries in stats, got %d", stats.TotalRetries)
	}
}

func TestWhisperClientDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewWhisperClient(WhisperConfig{
		Endpoint:   server.URL,
		SampleRate: 16000,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("NewWhisperClient failed: %v", err)
	}

	_, err = client.Transcribe(context.Background(), testSamples(1600))
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}

	if got := attempts.Load(); got != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", got)
	}
}

func TestNewWhisperClientValidation(t *testing.T) {
	if _, err := NewWhisperClient(WhisperConfig{SampleRate: 16000}); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	if _, err := NewWhisperClient(WhisperConfig{Endpoint: "http://x"}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestStubTranscriber(t *testing.T) {
	stub := NewStubTranscriber(16000)

	segments, err := stub.Transcribe(context.Background(), testSamples(32000))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(segments))
	}

	if segments[0].Start != 0 || segments[0].End != 2.0 {
		t.Errorf("Expected segment spanning 0-2s, got %f-%f", segments[0].Start, segments[0].End)
	}

	if stub.Calls() != 1 {
		t.Errorf("Expected 1 call, got %d", stub.Calls())
	}

	if _, err := stub.Transcribe(context.Background(), nil); err != ErrEmptyBuffer {
		t.Errorf("Expected ErrEmptyBuffer, got %v", err)
	}
}

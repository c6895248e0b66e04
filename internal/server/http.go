package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bilal0876/live-transcription-service/internal/capture"
	"github.com/Bilal0876/live-transcription-service/internal/config"
	"github.com/Bilal0876/live-transcription-service/internal/hub"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/pipeline"
	"github.com/Bilal0876/live-transcription-service/internal/session"
)

// HTTPServer provides HTTP API endpoints for monitoring and management
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	metrics *metrics.Metrics

	source      *capture.Source
	accumulator *pipeline.Accumulator
	hub         *hub.Hub
	recorder    *session.Recorder
	wsServer    *WSServer

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(appConfig *config.Config, logger *slog.Logger,
	source *capture.Source, accumulator *pipeline.Accumulator, h *hub.Hub,
	recorder *session.Recorder, wsServer *WSServer, m *metrics.Metrics) *HTTPServer {

	s := &HTTPServer{
		logger:      logger,
		config:      appConfig,
		metrics:     m,
		source:      source,
		accumulator: accumulator,
		hub:         h,
		recorder:    recorder,
		wsServer:    wsServer,
		startTime:   time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.HTTP.Address, appConfig.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures HTTP API routes
func (s *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP API server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP API server...")

	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)
	captureStats := s.source.GetStats()
	pipelineStats := s.accumulator.GetStats()
	recorderStats := s.recorder.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "live-transcription-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture": map[string]interface{}{
				"status":          captureStatus(captureStats.Capturing),
				"blocks_captured": captureStats.BlocksCaptured,
				"status_errors":   captureStats.StatusErrors,
			},
			"pipeline": map[string]interface{}{
				"status":              captureStatus(pipelineStats.Running),
				"windows_transcribed": pipelineStats.WindowsTranscribed,
				"segments_published":  pipelineStats.SegmentsPublished,
				"failures":            pipelineStats.Failures,
			},
			"broadcast": map[string]interface{}{
				"status":      "running",
				"subscribers": s.hub.Count(),
			},
			"session": map[string]interface{}{
				"status":            "running",
				"recorded_duration": recorderStats.Duration.String(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func captureStatus(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

// handleConfig implements the /config endpoint
func (s *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"bind_address": s.config.Server.BindAddress,
			"port":         s.config.Server.Port,
		},
		"audio": map[string]interface{}{
			"sample_rate": s.config.Audio.SampleRate,
			"block_size":  s.config.Audio.BlockSize,
			"channels":    s.config.Audio.Channels,
			"bit_depth":   s.config.Audio.BitDepth,
		},
		"pipeline": map[string]interface{}{
			"window_seconds":  s.config.Pipeline.WindowSeconds,
			"overlap_seconds": s.config.Pipeline.OverlapSeconds,
		},
		"transcription": map[string]interface{}{
			"backend":      s.config.Transcription.Backend,
			"endpoint":     s.config.Transcription.Endpoint,
			"model":        s.config.Transcription.Model,
			"device":       s.config.Transcription.Device,
			"compute_type": s.config.Transcription.ComputeType,
			"language":     s.config.Transcription.Language,
			"beam_size":    s.config.Transcription.BeamSize,
			"timeout":      s.config.Transcription.Timeout,
			"max_retries":  s.config.Transcription.MaxRetries,
			// Note: API key is intentionally omitted for security
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"capture":   s.source.GetStats(),
		"pipeline":  s.accumulator.GetStats(),
		"broadcast": s.hub.GetStats(),
		"session":   s.recorder.GetStats(),
		"websocket": s.wsServer.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Live Transcription Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /config":  "Get service configuration",
			"GET /stats":   "Get service statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
	"github.com/Bilal0876/live-transcription-service/internal/capture"
	"github.com/Bilal0876/live-transcription-service/internal/config"
	"github.com/Bilal0876/live-transcription-service/internal/hub"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/pipeline"
	"github.com/Bilal0876/live-transcription-service/internal/server"
	"github.com/Bilal0876/live-transcription-service/internal/session"
	"github.com/Bilal0876/live-transcription-service/internal/transcriber"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "live-transcription-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	toneHz := flag.Float64("tone", 440, "Synthetic input tone frequency in Hz (0 for silence)")
	flag.Parse()

	// Load optional .env file before reading configuration. A missing
	// file is fine; secrets can come from the real environment.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("port", cfg.Server.Port),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("block_size", cfg.Audio.BlockSize),
		slog.Float64("window_seconds", cfg.Pipeline.WindowSeconds),
		slog.Float64("overlap_seconds", cfg.Pipeline.OverlapSeconds),
		slog.String("transcription_backend", cfg.Transcription.Backend),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the transcription backend
	trans, err := transcriber.New(cfg.Transcription, cfg.Audio.SampleRate, appMetrics)
	if err != nil {
		logger.Error("Failed to create transcriber", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcriber initialized",
		slog.String("backend", cfg.Transcription.Backend),
	)

	// Core components: block queue, session recorder, broadcast hub
	queue := audio.NewBlockQueue()
	recorder := session.NewRecorder(cfg.Audio.SampleRate, logger)
	broadcastHub := hub.New(logger)

	// Audio input device and capture source
	device := capture.NewSyntheticDevice(cfg.Audio.SampleRate, cfg.Audio.BlockSize, *toneHz)
	source := capture.NewSource(device, queue, recorder, appMetrics, logger)

	// Sliding-window transcription pipeline
	accumulator := pipeline.NewAccumulator(queue, trans, broadcastHub,
		cfg.WindowSamples(), cfg.OverlapSamples(), appMetrics, logger)

	// WebSocket streaming server
	wsServer := server.NewWSServer(cfg.Server, broadcastHub, recorder, appMetrics, logger)

	// HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg, logger, source, accumulator,
			broadcastHub, recorder, wsServer, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start everything: servers first so clients can connect before the
	// first window completes, then the pipeline, then capture.
	if err := wsServer.Start(); err != nil {
		logger.Error("Failed to start WebSocket server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	accumulator.Start(ctx)

	if err := source.Start(); err != nil {
		logger.Error("Failed to start audio capture", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("ws_address", wsServer.Addr()),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop capture first so no new blocks arrive
	if err := source.Stop(); err != nil {
		logger.Error("Error stopping audio capture", slog.String("error", err.Error()))
	}

	// Stop the pipeline (finishes the window in flight)
	accumulator.Stop()

	// Stop servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := wsServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping WebSocket server", slog.String("error", err.Error()))
	}

	broadcastHub.Close()

	if err := trans.Close(); err != nil {
		logger.Error("Error closing transcriber", slog.String("error", err.Error()))
	}

	// Best-effort export of the recorded session
	if path, err := recorder.ExportToFile("."); err != nil {
		if err != session.ErrNoAudio {
			logger.Error("Failed to export session audio", slog.String("error", err.Error()))
		}
	} else {
		logger.Info("Session audio saved", slog.String("path", path))
	}

	// Get final statistics
	captureStats := source.GetStats()
	pipelineStats := accumulator.GetStats()
	hubStats := broadcastHub.GetStats()
	logger.Info("Final service statistics",
		slog.Uint64("blocks_captured", captureStats.BlocksCaptured),
		slog.Uint64("device_status_errors", captureStats.StatusErrors),
		slog.Uint64("windows_transcribed", pipelineStats.WindowsTranscribed),
		slog.Uint64("segments_published", pipelineStats.SegmentsPublished),
		slog.Uint64("transcription_failures", pipelineStats.Failures),
		slog.Uint64("messages_delivered", hubStats.Delivered),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

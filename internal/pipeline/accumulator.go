package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
	"github.com/Bilal0876/live-transcription-service/internal/hub"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/protocol"
	"github.com/Bilal0876/live-transcription-service/internal/transcriber"
)

const (
	// depthWarnThreshold is the queue backlog, in blocks, above which the
	// drain loop starts warning.
	depthWarnThreshold = 100

	depthWarnInterval = 30 * time.Second
)

// Accumulator drains the block queue into a growing sample buffer and
// hands the buffer to the transcriber every time it reaches the window
// size, keeping the trailing overlap so speech spanning a window boundary
// is seen twice rather than cut. A single goroutine owns the buffer.
type Accumulator struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	queue       *audio.BlockQueue
	transcriber transcriber.Transcriber
	hub         *hub.Hub

	windowSamples  int
	overlapSamples int

	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastDepthWarn time.Time

	mu                 sync.RWMutex
	running            bool
	bufferedSamples    int
	windowsTranscribed uint64
	segmentsPublished  uint64
	failures           uint64
}

// Stats represents accumulator statistics for monitoring
type Stats struct {
	Running            bool   `json:"running"`
	BufferedSamples    int    `json:"buffered_samples"`
	WindowsTranscribed uint64 `json:"windows_transcribed"`
	SegmentsPublished  uint64 `json:"segments_published"`
	Failures           uint64 `json:"failures"`
}

// NewAccumulator creates an accumulator. windowSamples must be larger
// than overlapSamples; config validation guarantees that.
func NewAccumulator(queue *audio.BlockQueue, trans transcriber.Transcriber, h *hub.Hub,
	windowSamples, overlapSamples int, m *metrics.Metrics, logger *slog.Logger) *Accumulator {

	return &Accumulator{
		logger:         logger,
		metrics:        m,
		queue:          queue,
		transcriber:    trans,
		hub:            h,
		windowSamples:  windowSamples,
		overlapSamples: overlapSamples,
	}
}

// Start launches the drain loop.
func (a *Accumulator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx)

	a.logger.Info("Transcription pipeline started",
		slog.Int("window_samples", a.windowSamples),
		slog.Int("overlap_samples", a.overlapSamples),
	)
}

// Stop cancels the drain loop and waits for it to finish the window in
// flight.
func (a *Accumulator) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.running = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.wg.Wait()

	a.logger.Info("Transcription pipeline stopped")
}

func (a *Accumulator) run(ctx context.Context) {
	defer a.wg.Done()

	buffer := make([]float32, 0, a.windowSamples+a.overlapSamples)

	for {
		block, err := a.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, audio.ErrQueueClosed) {
				a.logger.Error("Block queue read failed", slog.String("error", err.Error()))
			}
			return
		}

		buffer = append(buffer, block...)

		depth := a.queue.Len()
		a.metrics.SetQueueDepth(depth)

		// A growing backlog means transcription is slower than capture.
		if depth > depthWarnThreshold && time.Since(a.lastDepthWarn) > depthWarnInterval {
			a.lastDepthWarn = time.Now()
			a.logger.Warn("Audio queue backlog growing",
				slog.Int("queued_blocks", depth),
			)
		}

		if len(buffer) >= a.windowSamples {
			a.transcribeWindow(ctx, buffer)

			// Keep only the trailing overlap for the next window.
			retained := buffer[len(buffer)-a.overlapSamples:]
			buffer = append(buffer[:0], retained...)
		}

		a.mu.Lock()
		a.bufferedSamples = len(buffer)
		a.mu.Unlock()
	}
}

// transcribeWindow sends one full window to the transcriber and publishes
// every non-empty segment. A failed window is dropped; the stream must
// keep up with the microphone.
func (a *Accumulator) transcribeWindow(ctx context.Context, window []float32) {
	start := time.Now()

	segments, err := a.transcriber.Transcribe(ctx, window)
	if err != nil {
		a.mu.Lock()
		a.failures++
		a.mu.Unlock()
		a.metrics.RecordTranscriptionFailure()

		a.logger.Error("Window transcription failed",
			slog.Int("samples", len(window)),
			slog.String("error", err.Error()),
		)
		return
	}

	elapsed := time.Since(start)
	a.metrics.RecordWindowTranscribed(elapsed.Seconds(), len(segments))

	a.mu.Lock()
	a.windowsTranscribed++
	a.mu.Unlock()

	a.logger.Debug("Window transcribed",
		slog.Int("samples", len(window)),
		slog.Int("segments", len(segments)),
		slog.Duration("duration", elapsed),
	)

	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		a.publishSegment(seg)
	}
}

func (a *Accumulator) publishSegment(seg transcriber.Segment) {
	msg := protocol.NewTranscription(seg.Text, seg.Start, seg.End, time.Now())

	data, err := msg.Encode()
	if err != nil {
		a.logger.Error("Failed to encode transcription message", slog.String("error", err.Error()))
		return
	}

	delivered, removed := a.hub.Publish(data)
	a.metrics.RecordBroadcast(delivered, removed)

	a.mu.Lock()
	a.segmentsPublished++
	a.mu.Unlock()

	a.logger.Info("Transcription",
		slog.String("text", seg.Text),
		slog.Int("delivered", delivered),
	)
}

// GetStats returns current accumulator statistics
func (a *Accumulator) GetStats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return Stats{
		Running:            a.running,
		BufferedSamples:    a.bufferedSamples,
		WindowsTranscribed: a.windowsTranscribed,
		SegmentsPublished:  a.segmentsPublished,
		Failures:           a.failures,
	}
}

package capture

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/session"
)

// ErrAlreadyCapturing is returned when Start is called while capturing.
var ErrAlreadyCapturing = errors.New("already capturing audio")

// ErrOverrun is the device status for an input overrun/underrun report.
var ErrOverrun = errors.New("input overrun")

// Callback receives one fixed-size block of mono float samples from the
// device, plus a non-nil status when the device reports an overrun or
// underrun. The block is only valid for the duration of the call.
type Callback func(block []float32, status error)

// Device is the platform audio input. Implementations invoke the callback
// on their own cadence with fixed-size blocks at the configured rate.
type Device interface {
	Start(callback Callback) error
	Stop() error
}

// Source bridges the audio device to the rest of the service: every block
// goes onto the work queue for the accumulator and into the session
// recorder for export. The device callback does nothing else - it must
// complete in well under one block duration or the device drops audio.
type Source struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	device   Device
	queue    *audio.BlockQueue
	recorder *session.Recorder

	mu             sync.RWMutex
	capturing      bool
	blocksCaptured uint64
	statusErrors   uint64
}

// Stats represents capture statistics for monitoring
type Stats struct {
	Capturing      bool   `json:"capturing"`
	BlocksCaptured uint64 `json:"blocks_captured"`
	StatusErrors   uint64 `json:"status_errors"`
}

// NewSource creates a capture source feeding the given queue and recorder.
func NewSource(device Device, queue *audio.BlockQueue, recorder *session.Recorder,
	m *metrics.Metrics, logger *slog.Logger) *Source {

	return &Source{
		logger:   logger,
		metrics:  m,
		device:   device,
		queue:    queue,
		recorder: recorder,
	}
}

// Start begins capturing from the device.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return ErrAlreadyCapturing
	}

	if err := s.device.Start(s.handleBlock); err != nil {
		return err
	}

	s.capturing = true
	s.logger.Info("Audio capture started")
	return nil
}

// Stop stops capturing. Blocks already queued remain available to the
// accumulator.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capturing {
		return nil
	}

	err := s.device.Stop()
	s.capturing = false
	s.logger.Info("Audio capture stopped")
	return err
}

// IsCapturing returns whether capture is currently running.
func (s *Source) IsCapturing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturing
}

// handleBlock is the device callback. A device status is logged and
// counted but never stops capture.
func (s *Source) handleBlock(block []float32, status error) {
	if status != nil {
		s.mu.Lock()
		s.statusErrors++
		s.mu.Unlock()
		s.metrics.RecordDeviceStatusError()

		s.logger.Warn("Audio device status", slog.String("status", status.Error()))
	}

	// The queue and the recorder each get their own copy; the device
	// reuses the block buffer after the callback returns.
	queueCopy := make([]float32, len(block))
	copy(queueCopy, block)
	s.queue.Push(queueCopy)

	recordCopy := make([]float32, len(block))
	copy(recordCopy, block)
	s.recorder.Append(recordCopy)

	s.mu.Lock()
	s.blocksCaptured++
	s.mu.Unlock()

	s.metrics.RecordBlockCaptured()
	s.metrics.SetQueueDepth(s.queue.Len())
}

// GetStats returns current capture statistics
func (s *Source) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Capturing:      s.capturing,
		BlocksCaptured: s.blocksCaptured,
		StatusErrors:   s.statusErrors,
	}
}

// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the live transcription service
type Metrics struct {
	// Capture metrics
	BlocksCaptured     prometheus.Counter
	DeviceStatusErrors prometheus.Counter
	QueueDepth         prometheus.Gauge

	// Pipeline metrics
	WindowsTranscribed    prometheus.Counter
	SegmentsProduced      prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	TranscriptionFailures prometheus.Counter
	TranscriptionRetries  prometheus.Counter

	// Broadcast metrics
	SegmentsBroadcast  prometheus.Counter
	Subscribers        prometheus.Gauge
	DeadSubscribers    prometheus.Counter

	// Client session metrics
	ClientsConnected    prometheus.Counter
	ClientsDisconnected prometheus.Counter
	MessagesReceived    prometheus.Counter
	MessagesSent        prometheus.Counter

	// Export metrics
	ExportRequests prometheus.Counter
	ExportDuration prometheus.Histogram
	ExportBytes    prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registerer
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on the given registerer
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Capture metrics
		BlocksCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_blocks_captured_total",
			Help: "Total number of audio blocks captured from the device",
		}),
		DeviceStatusErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_device_status_errors_total",
			Help: "Total number of device overrun/underrun reports",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_audio_queue_depth",
			Help: "Current number of audio blocks waiting in the work queue",
		}),

		// Pipeline metrics
		WindowsTranscribed: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_windows_transcribed_total",
			Help: "Total number of audio windows sent for transcription",
		}),
		SegmentsProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_segments_produced_total",
			Help: "Total number of transcript segments produced",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_transcription_duration_seconds",
			Help:    "Duration of transcription calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_failures_total",
			Help: "Total number of failed transcription calls",
		}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),

		// Broadcast metrics
		SegmentsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_segments_broadcast_total",
			Help: "Total number of segments delivered to subscribers",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_subscribers",
			Help: "Current number of broadcast subscribers",
		}),
		DeadSubscribers: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_dead_subscribers_total",
			Help: "Total number of subscribers removed after failed delivery",
		}),

		// Client session metrics
		ClientsConnected: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_clients_connected_total",
			Help: "Total number of client connections accepted",
		}),
		ClientsDisconnected: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_clients_disconnected_total",
			Help: "Total number of client disconnections",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_client_messages_received_total",
			Help: "Total number of messages received from clients",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_client_messages_sent_total",
			Help: "Total number of messages sent to clients",
		}),

		// Export metrics
		ExportRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_export_requests_total",
			Help: "Total number of audio export requests",
		}),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_export_duration_seconds",
			Help:    "Duration of audio export encoding",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		ExportBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_export_size_bytes",
			Help:    "Size of exported WAV artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordBlockCaptured increments the captured block counter
func (m *Metrics) RecordBlockCaptured() {
	m.BlocksCaptured.Inc()
}

// RecordDeviceStatusError increments the device status error counter
func (m *Metrics) RecordDeviceStatusError() {
	m.DeviceStatusErrors.Inc()
}

// SetQueueDepth sets the current audio queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordWindowTranscribed records a completed transcription window
func (m *Metrics) RecordWindowTranscribed(durationSeconds float64, segments int) {
	m.WindowsTranscribed.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
	m.SegmentsProduced.Add(float64(segments))
}

// RecordTranscriptionFailure increments the transcription failure counter
func (m *Metrics) RecordTranscriptionFailure() {
	m.TranscriptionFailures.Inc()
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordBroadcast records a fan-out pass
func (m *Metrics) RecordBroadcast(delivered, dead int) {
	m.SegmentsBroadcast.Add(float64(delivered))
	m.DeadSubscribers.Add(float64(dead))
}

// SetSubscribers sets the current subscriber count
func (m *Metrics) SetSubscribers(count int) {
	m.Subscribers.Set(float64(count))
}

// RecordClientConnected increments the connected clients counter
func (m *Metrics) RecordClientConnected() {
	m.ClientsConnected.Inc()
}

// RecordClientDisconnected increments the disconnected clients counter
func (m *Metrics) RecordClientDisconnected() {
	m.ClientsDisconnected.Inc()
}

// RecordMessageReceived increments the received messages counter
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordMessageSent increments the sent messages counter
func (m *Metrics) RecordMessageSent() {
	m.MessagesSent.Inc()
}

// RecordExport records an audio export
func (m *Metrics) RecordExport(durationSeconds float64, sizeBytes int) {
	m.ExportRequests.Inc()
	m.ExportDuration.Observe(durationSeconds)
	m.ExportBytes.Observe(float64(sizeBytes))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

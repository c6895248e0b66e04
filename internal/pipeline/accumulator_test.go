package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bilal0876/live-transcription-service/internal/audio"
	"github.com/Bilal0876/live-transcription-service/internal/hub"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/protocol"
	"github.com/Bilal0876/live-transcription-service/internal/transcriber"
)

const (
	testWindowSamples  = 80000 // 5s at 16kHz
	testOverlapSamples = 32000 // 2s at 16kHz
	testBlockSize      = 4000
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry())
}

// recordingTranscriber captures the sample counts of each call so window
// boundaries can be asserted.
type recordingTranscriber struct {
	mu       sync.Mutex
	windows  []int
	segments []transcriber.Segment
	err      error
}

func (r *recordingTranscriber) Transcribe(_ context.Context, samples []float32) ([]transcriber.Segment, error) {
	r.mu.Lock()
	r.windows = append(r.windows, len(samples))
	err := r.err
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return r.segments, nil
}

func (r *recordingTranscriber) Close() error { return nil }

func (r *recordingTranscriber) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

func (r *recordingTranscriber) windowSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.windows))
	copy(out, r.windows)
	return out
}

func pushBlocks(queue *audio.BlockQueue, count, size int) {
	for i := 0; i < count; i++ {
		queue.Push(make([]float32, size))
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

func TestNoTranscriptionBelowWindow(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{}
	h := hub.New(testLogger())

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	// 10 blocks = 40000 samples, below the 80000-sample window
	pushBlocks(queue, 10, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return acc.GetStats().BufferedSamples == 10*testBlockSize
	})

	if trans.calls() != 0 {
		t.Errorf("Expected no transcription below the window size, got %d calls", trans.calls())
	}
}

func TestSingleWindowAtThreshold(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{}
	h := hub.New(testLogger())

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	// 20 blocks = exactly 80000 samples
	pushBlocks(queue, 20, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return trans.calls() == 1
	})

	sizes := trans.windowSizes()
	if sizes[0] != testWindowSamples {
		t.Errorf("Expected an %d-sample window, got %d", testWindowSamples, sizes[0])
	}

	// Exactly the overlap is retained after a window fires.
	waitFor(t, 2*time.Second, func() bool {
		return acc.GetStats().BufferedSamples == testOverlapSamples
	})

	stats := acc.GetStats()
	if stats.WindowsTranscribed != 1 {
		t.Errorf("Expected 1 window transcribed, got %d", stats.WindowsTranscribed)
	}
}

func TestOverlapCarriesIntoNextWindow(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{}
	h := hub.New(testLogger())

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	// First window: 20 blocks. Second window needs only 12 more blocks
	// because 32000 overlap samples carry over (32000 + 48000 = 80000).
	pushBlocks(queue, 32, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return trans.calls() == 2
	})

	sizes := trans.windowSizes()
	for i, size := range sizes {
		if size != testWindowSamples {
			t.Errorf("Window %d: expected %d samples, got %d", i, testWindowSamples, size)
		}
	}
}

func TestSegmentsBroadcastToHub(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{
		segments: []transcriber.Segment{
			{Start: 0.5, End: 2.0, Text: "hello there"},
			{Start: 2.0, End: 4.5, Text: "general greeting"},
		},
	}
	h := hub.New(testLogger())
	_, ch := h.Subscribe()

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	pushBlocks(queue, 20, testBlockSize)

	for i := 0; i < 2; i++ {
		select {
		case data := <-ch:
			var msg protocol.TranscriptionMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("Broadcast message is not valid JSON: %v", err)
			}
			if msg.Type != protocol.TypeTranscription {
				t.Errorf("Expected transcription message, got %s", msg.Type)
			}
			if msg.Text != trans.segments[i].Text {
				t.Errorf("Expected text '%s', got '%s'", trans.segments[i].Text, msg.Text)
			}
			if msg.Start != trans.segments[i].Start || msg.End != trans.segments[i].End {
				t.Errorf("Segment %d: unexpected offsets %v-%v", i, msg.Start, msg.End)
			}
			if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
				t.Errorf("Timestamp '%s' is not RFC3339: %v", msg.Timestamp, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Segment %d not broadcast within 2s", i)
		}
	}
}

func TestEmptySegmentsNotBroadcast(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{
		segments: []transcriber.Segment{
			{Start: 0, End: 1, Text: "   "},
			{Start: 1, End: 2, Text: ""},
		},
	}
	h := hub.New(testLogger())
	_, ch := h.Subscribe()

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	pushBlocks(queue, 20, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return trans.calls() == 1
	})

	select {
	case data := <-ch:
		t.Errorf("Blank segment was broadcast: %s", data)
	case <-time.After(200 * time.Millisecond):
	}

	if acc.GetStats().SegmentsPublished != 0 {
		t.Errorf("Expected 0 published segments, got %d", acc.GetStats().SegmentsPublished)
	}
}

func TestFailedWindowDroppedStreamContinues(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{err: errors.New("inference server down")}
	h := hub.New(testLogger())

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())
	defer acc.Stop()

	pushBlocks(queue, 20, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return acc.GetStats().Failures == 1
	})

	// The buffer is still trimmed to the overlap so it cannot grow
	// without bound while the backend is down.
	waitFor(t, 2*time.Second, func() bool {
		return acc.GetStats().BufferedSamples == testOverlapSamples
	})

	// Recovery: the next window transcribes again.
	trans.mu.Lock()
	trans.err = nil
	trans.mu.Unlock()

	pushBlocks(queue, 12, testBlockSize)

	waitFor(t, 2*time.Second, func() bool {
		return acc.GetStats().WindowsTranscribed == 1
	})
}

func TestStopWaitsForLoop(t *testing.T) {
	queue := audio.NewBlockQueue()
	trans := &recordingTranscriber{}
	h := hub.New(testLogger())

	acc := NewAccumulator(queue, trans, h, testWindowSamples, testOverlapSamples,
		testMetrics(), testLogger())
	acc.Start(context.Background())

	pushBlocks(queue, 5, testBlockSize)

	done := make(chan struct{})
	go func() {
		acc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within 2s")
	}

	if acc.GetStats().Running {
		t.Error("Accumulator should report not running after Stop")
	}
}

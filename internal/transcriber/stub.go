package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// StubTranscriber is an offline Transcriber for tests and development runs
// without an inference server. It returns one canned segment per call
// spanning the duration of the passed buffer.
type StubTranscriber struct {
	sampleRate int

	mu    sync.Mutex
	calls int

	// Segments overrides the canned output when set.
	Segments []Segment
	// Err is returned from every call when set.
	Err error
}

// NewStubTranscriber creates a stub transcriber for the given sample rate.
func NewStubTranscriber(sampleRate int) *StubTranscriber {
	return &StubTranscriber{sampleRate: sampleRate}
}

// Transcribe returns the configured segments, or a single placeholder
// segment covering the buffer.
func (s *StubTranscriber) Transcribe(_ context.Context, samples []float32) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyBuffer
	}

	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	if s.Segments != nil {
		out := make([]Segment, len(s.Segments))
		copy(out, s.Segments)
		return out, nil
	}

	duration := float64(len(samples)) / float64(s.sampleRate)
	return []Segment{
		{
			Start: 0,
			End:   duration,
			Text:  fmt.Sprintf("stub transcript %d", call),
		},
	}, nil
}

// Calls returns how many times Transcribe has been invoked.
func (s *StubTranscriber) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Close is a no-op.
func (s *StubTranscriber) Close() error {
	return nil
}

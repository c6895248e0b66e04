package transcriber

import (
	"context"
	"errors"
)

// ErrEmptyBuffer is returned when Transcribe is called with no samples.
var ErrEmptyBuffer = errors.New("cannot transcribe empty sample buffer")

// Segment is one timestamped unit of transcribed text. Start and End are
// seconds relative to the start of the buffer passed to Transcribe, not to
// the session; Start <= End.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcriber converts a buffer of mono float samples into transcript
// segments. Implementations are stateless across calls from the caller's
// perspective; the wrapped model may hold weights or internal state.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) ([]Segment, error)
	Close() error
}

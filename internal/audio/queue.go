package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Pop after Close once the queue is drained.
var ErrQueueClosed = errors.New("block queue closed")

// BlockQueue is an unbounded FIFO of audio blocks between the capture
// callback and the accumulator loop. Push never blocks and never drops:
// dropping a block here is equivalent to dropping audio, and making the
// capture callback wait causes device overruns. Depth is observable via
// Len so callers can export it as a metric.
type BlockQueue struct {
	mu     sync.Mutex
	blocks [][]float32
	notify chan struct{}
	closed bool
}

// NewBlockQueue creates an empty block queue.
func NewBlockQueue() *BlockQueue {
	return &BlockQueue{
		notify: make(chan struct{}, 1),
	}
}

// Push appends a block to the queue. It is safe to call from the capture
// callback: the critical section is a single append. Pushes after Close
// are discarded.
func (q *BlockQueue) Push(block []float32) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.blocks = append(q.blocks, block)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest block, blocking until a block is
// available, the context is cancelled, or the queue is closed and drained.
func (q *BlockQueue) Pop(ctx context.Context) ([]float32, error) {
	for {
		q.mu.Lock()
		if len(q.blocks) > 0 {
			block := q.blocks[0]
			q.blocks = q.blocks[1:]
			q.mu.Unlock()
			return block, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close marks the queue closed and wakes any blocked Pop. Blocks already
// queued remain poppable until drained.
func (q *BlockQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.notify)
}

// Len returns the current queue depth in blocks.
func (q *BlockQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.blocks)
}

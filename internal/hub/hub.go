package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultChannelBuffer = 64

// subscriber owns one delivery channel. The closed flag guards against
// sending on a channel that Unsubscribe has already closed.
type subscriber struct {
	id string
	ch chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend delivers without blocking. A full or closed channel fails the
// delivery; the publisher never waits on a slow subscriber.
func (s *subscriber) trySend(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub maintains the set of broadcast subscribers and delivers each
// published message to all of them. Delivery is best-effort per
// subscriber: a failed delivery marks the subscriber dead, and dead
// subscribers are removed after the full fan-out pass completes, never
// mid-iteration.
type Hub struct {
	logger        *slog.Logger
	channelBuffer int

	mu          sync.RWMutex
	subscribers map[string]*subscriber

	// Statistics
	published   uint64
	delivered   uint64
	removedDead uint64
}

// Stats represents hub statistics for monitoring
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"messages_published"`
	Delivered   uint64 `json:"messages_delivered"`
	RemovedDead uint64 `json:"dead_subscribers_removed"`
}

// New creates an empty broadcast hub
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:        logger,
		channelBuffer: defaultChannelBuffer,
		subscribers:   make(map[string]*subscriber),
	}
}

// Subscribe registers a new subscriber and returns its ID and delivery
// channel. The channel is buffered; a subscriber that stops draining it
// is removed on the next publish that finds the buffer full.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	sub := &subscriber{
		id: uuid.NewString(),
		ch: make(chan []byte, h.channelBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("Subscriber added",
		slog.String("subscriber_id", sub.id),
		slog.Int("total_subscribers", count),
	)

	return sub.id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel. It is
// idempotent: removing an unknown or already-removed ID is a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, exists := h.subscribers[id]
	if exists {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !exists {
		return
	}

	sub.close()

	h.logger.Info("Subscriber removed",
		slog.String("subscriber_id", id),
		slog.Int("total_subscribers", count),
	)
}

// Publish delivers the message to every currently-subscribed channel and
// returns how many deliveries succeeded and how many subscribers were
// removed for failing. Slow or dead subscribers never delay the others.
func (h *Hub) Publish(msg []byte) (delivered, removed int) {
	// Snapshot the subscriber set so the fan-out never iterates a map
	// that connect/disconnect is mutating.
	h.mu.RLock()
	snapshot := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	var dead []string
	for _, sub := range snapshot {
		if sub.trySend(msg) {
			delivered++
		} else {
			dead = append(dead, sub.id)
		}
	}

	for _, id := range dead {
		h.logger.Warn("Removing subscriber after failed delivery",
			slog.String("subscriber_id", id),
		)
		h.Unsubscribe(id)
	}
	removed = len(dead)

	h.mu.Lock()
	h.published++
	h.delivered += uint64(delivered)
	h.removedDead += uint64(removed)
	h.mu.Unlock()

	return delivered, removed
}

// Count returns the current number of subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{
		Subscribers: len(h.subscribers),
		Published:   h.published,
		Delivered:   h.delivered,
		RemovedDead: h.removedDead,
	}
}

// Close removes all subscribers, closing their channels
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

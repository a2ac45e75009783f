package hub

import (
	"log/slog"
	"sync"

	"github.com/atikulmunna/tailview/internal/model"
)

const subscriberBuffer = 1024

// Hub fans outbound display messages out to every subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.Message]struct{}
	dropped     int64
	closed      bool
	log         *slog.Logger
}

// New creates a Hub. A nil logger uses slog.Default.
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subscribers: make(map[chan model.Message]struct{}),
		log:         log,
	}
}

// Subscribe returns a buffered channel that receives every published message.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() <-chan model.Message {
	ch := make(chan model.Message, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (h *Hub) Unsubscribe(ch <-chan model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		if sub == ch {
			delete(h.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of messages dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Publish sends msg to all subscribers without blocking.
// If a subscriber's channel is full, the message is dropped for that subscriber.
func (h *Hub) Publish(msg model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			h.dropped++
			h.log.Warn("hub: dropped message for slow consumer", "type", msg.Type, "total_dropped", h.dropped)
		}
	}
}

// Close closes all subscriber channels. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan model.Message]struct{})
	h.closed = true
}

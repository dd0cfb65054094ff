// internal/server/feed.go
package server

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Message is one frame on the live feed
type Message struct {
	Type string      `json:"type"` // "result" or "stats"
	Data interface{} `json:"data"`
}

// Hub fans live feed frames out to websocket subscribers. Slow subscribers
// lose frames instead of blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	log         *logrus.Logger
}

// NewHub creates an empty hub
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan []byte]struct{}),
		log:         log,
	}
}

// Subscribe registers a subscriber. The cancel function must be called
// when the subscriber goes away. The channel is closed by cancel or Close.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Publish encodes msg once and offers it to every subscriber
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("Encode live feed frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			h.log.Warn("Dropped live feed frame for slow client")
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

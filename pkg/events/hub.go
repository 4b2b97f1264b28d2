package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

// Hub fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewHub() *Hub { return &Hub{subs: make(map[chan Event]struct{})} }

// Subscribe registers a new subscriber. After Close it returns a closed
// channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel so that readers return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	logrus.Debug("event hub closed")
}

func (h *Hub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("event", name).Errorf("failed to marshal event payload: %v", err)
		return
	}
	msg := Event{Name: name, Data: b}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			logrus.WithField("event", name).Debug("dropped event for slow subscriber")
		}
	}
}

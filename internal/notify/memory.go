package notify

import (
	"context"
	"sync"
)

// Hub is an in-process notifier for tests and single-node deployments.
// Subscribers receive events on a buffered channel; a subscriber that cannot
// keep up misses events rather than blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan string]struct{})}
}

// Subscribe registers interest in one audit's events. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(auditID string) (<-chan string, func()) {
	ch := make(chan string, 16)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[auditID] == nil {
		h.subs[auditID] = make(map[chan string]struct{})
	}
	h.subs[auditID][ch] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[auditID]; ok {
			if _, subscribed := set[ch]; subscribed {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, auditID)
				}
			}
		}
	}
	return ch, cancel
}

func (h *Hub) Notify(_ context.Context, auditID, event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[auditID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Package feed fans newly created orders out to the live order-history
// connections of their owner.
package feed

import (
	"sync"

	"PhoneStore/internal/models"
)

const bufferSize = 8

type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan *models.Order]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan *models.Order]struct{})}
}

// Subscribe registers a listener for userID. The returned cancel func must be
// called once the listener is done; it closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan *models.Order, func()) {
	ch := make(chan *models.Order, bufferSize)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan *models.Order]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// OrderCreated delivers order to its owner's listeners. Slow listeners drop
// the update rather than block reconciliation.
func (h *Hub) OrderCreated(order *models.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[order.UserID] {
		select {
		case ch <- order:
		default:
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

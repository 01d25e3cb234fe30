package app

import (
	"context"
	"sync"

	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/metrics"
	"github.com/google/uuid"
)

// EventKind names a live notification event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
)

// Event is pushed to every live connection of the notification's recipient.
type Event struct {
	Kind         EventKind           `json:"kind"`
	Notification domain.Notification `json:"notification"`
}

// Subscription is one live connection of a user.
type Subscription struct {
	ID     uuid.UUID
	UserID int64
	events chan Event
}

// Events yields pushes for this connection. It is closed on Detach.
func (s *Subscription) Events() <-chan Event { return s.events }

// Hub is the process-local registry of live connections keyed by user.
// Publishing never blocks: a full connection buffer loses its oldest event.
type Hub struct {
	mu      sync.RWMutex
	users   map[int64]map[uuid.UUID]*Subscription
	buffer  int
	metrics *metrics.Metrics
}

func NewHub(buffer int, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{users: make(map[int64]map[uuid.UUID]*Subscription), buffer: buffer, metrics: m}
}

// Attach registers a new connection for userID.
func (h *Hub) Attach(userID int64) *Subscription {
	sub := &Subscription{ID: uuid.New(), UserID: userID, events: make(chan Event, h.buffer)}

	h.mu.Lock()
	conns, ok := h.users[userID]
	if !ok {
		conns = make(map[uuid.UUID]*Subscription)
		h.users[userID] = conns
	}
	conns[sub.ID] = sub
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	return sub
}

// Detach removes the connection and closes its channel. Safe to call twice.
func (h *Hub) Detach(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.users[sub.UserID]
	if !ok {
		return
	}
	if _, ok := conns[sub.ID]; !ok {
		return
	}
	delete(conns, sub.ID)
	if len(conns) == 0 {
		delete(h.users, sub.UserID)
	}
	close(sub.events)
	h.metrics.ConnectionClosed()
}

// Publish hands ev to every connection of userID. Users without live
// connections are skipped.
func (h *Hub) Publish(_ context.Context, userID int64, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.users[userID] {
		select {
		case sub.events <- ev:
			h.metrics.PushObserved(string(ev.Kind), "delivered")
		default:
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- ev:
				h.metrics.PushObserved(string(ev.Kind), "dropped_oldest")
			default:
				h.metrics.PushObserved(string(ev.Kind), "dropped")
			}
		}
	}
	return nil
}

// Online reports how many live connections userID has.
func (h *Hub) Online(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Close detaches every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.users {
		for _, sub := range conns {
			close(sub.events)
			h.metrics.ConnectionClosed()
		}
		delete(h.users, userID)
	}
}

// Package realtime fans chat events out to live subscribers. Subscriptions
// are scoped to a single request's message log, mirroring the per-row filter
// the mobile client used on its realtime channel.
package realtime

import (
	"context"
	"sync"

	"errand-market/internal/models"
)

// Event types delivered on a subscription.
const (
	EventInsert = "insert"
	EventUpdate = "update"
)

// Event is one change to a request's message log.
type Event struct {
	Type    string         `json:"event_type"`
	Message models.Message `json:"message"`
}

// Subscriber receives events for one request. C is closed when the
// subscriber is removed from the hub.
type Subscriber struct {
	RequestID string
	C         chan Event
}

// Hub routes events to the subscribers of each request. Delivery order is
// best effort; consumers re-sort by message timestamp. A subscriber that
// stops draining its channel is dropped rather than allowed to block
// publishers.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber for the given request.
func (h *Hub) Subscribe(requestID string) *Subscriber {
	sub := &Subscriber{RequestID: requestID, C: make(chan Event, 32)}
	h.mu.Lock()
	room, ok := h.rooms[requestID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[requestID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sub.RequestID]
	if !ok {
		return
	}
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	close(sub.C)
	if len(room) == 0 {
		delete(h.rooms, sub.RequestID)
	}
}

// Publish delivers an event to every subscriber of the event's request.
// Subscribers with a full buffer are unsubscribed; a dead consumer must not
// stall the chat for everyone else.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	room := h.rooms[ev.Message.RequestID]
	subs := make([]*Subscriber, 0, len(room))
	for sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.C <- ev:
		default:
			h.Unsubscribe(sub)
		}
	}
}

// Run blocks until ctx is cancelled, then closes every subscription. Wired
// into the server's shutdown path.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	for _, room := range h.rooms {
		for sub := range room {
			delete(room, sub)
			close(sub.C)
		}
	}
	h.rooms = make(map[string]map[*Subscriber]struct{})
	h.mu.Unlock()
}

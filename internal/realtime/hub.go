// Package realtime fans vote-count change events out to every viewer of a
// setlist. Channels are process-local and carry no replay: clients read
// current state first, then subscribe for subsequent changes.
package realtime

import (
	"log/slog"
	"sync"
)

// Event is one vote-count change on a setlist song
type Event struct {
	SongID   string `json:"songId"`
	NewCount int    `json:"newCount"`
}

const subscriptionBuffer = 64

// Subscription is one subscriber's handle on a setlist channel. Close it
// when the owning connection goes away; the hub never closes it from
// underneath a healthy reader.
type Subscription struct {
	setlistID string
	events    chan Event
	hub       *Hub
	closeOnce sync.Once
}

// Events returns the ordered stream of change events for this subscriber
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from its channel and releases the event
// stream. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.unsubscribe(s)
		close(s.events)
	})
}

// Hub maintains per-setlist subscriber sets and delivers events to them
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe opens a channel scoped to the given setlist
func (h *Hub) Subscribe(setlistID string) *Subscription {
	sub := &Subscription{
		setlistID: setlistID,
		events:    make(chan Event, subscriptionBuffer),
		hub:       h,
	}

	h.mu.Lock()
	subscribers, ok := h.channels[setlistID]
	if !ok {
		subscribers = make(map[*Subscription]struct{})
		h.channels[setlistID] = subscribers
	}
	subscribers[sub] = struct{}{}
	total := len(subscribers)
	h.mu.Unlock()

	slog.Debug("realtime subscriber joined", "setlistID", setlistID, "subscribers", total)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.channels[sub.setlistID]
	if !ok {
		return
	}

	delete(subscribers, sub)
	if len(subscribers) == 0 {
		delete(h.channels, sub.setlistID)
	}
}

// Publish delivers an event to every subscriber of the setlist's channel.
// Delivery to a subscriber is in publish order; a subscriber whose buffer is
// full is skipped rather than allowed to block the vote ledger.
func (h *Hub) Publish(setlistID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.channels[setlistID] {
		select {
		case sub.events <- event:
		default:
			slog.Warn("dropping event for slow realtime subscriber",
				"setlistID", setlistID, "songID", event.SongID)
		}
	}
}

// SubscriberCount reports the number of open subscriptions for a setlist
func (h *Hub) SubscriberCount(setlistID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[setlistID])
}

// Package events fans out state-change notifications to connected
// observers. Delivery is best-effort at-most-once: a slow observer
// loses events rather than blocking a scheduler, and observers
// reconcile by re-fetching authoritative store state.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies an event kind on the wire.
type Type string

const (
	StatusUpdate     Type = "status_update"
	ScrapingProgress Type = "scraping_progress"
	SessionUpdate    Type = "session_update"
	EnrollmentUpdate Type = "enrollment_update"
)

// Event is one broadcast notification.
type Event struct {
	Type    Type           `json:"type"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload"`
}

// subscriberBuffer bounds how many undelivered events a subscriber may
// hold before the hub starts dropping for it.
const subscriberBuffer = 64

// Hub is the broadcast registry. Publish never blocks and never fails
// a mutation, whether or not anyone is listening.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers an observer and returns its event channel plus
// an unsubscribe function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers the event to every subscriber whose buffer has
// room. Full buffers drop; the observer catches up from a full
// re-fetch.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			slog.Debug("event dropped for slow subscriber", "subscriber", id, "type", event.Type)
		}
	}
}

// SubscriberCount returns how many observers are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// PublishSessionUpdate broadcasts a session status change.
func (h *Hub) PublishSessionUpdate(sessionID string, status string) {
	h.Publish(Event{
		Type: SessionUpdate,
		Payload: map[string]any{
			"session_id": sessionID,
			"status":     status,
		},
	})
}

// PublishScrapingProgress broadcasts scrape-loop progress for the
// active session.
func (h *Hub) PublishScrapingProgress(sessionID string, scraped, currentPage, total int, lastProspectName string) {
	h.Publish(Event{
		Type: ScrapingProgress,
		Payload: map[string]any{
			"session_id":            sessionID,
			"scraped_profiles":      scraped,
			"current_page":          currentPage,
			"total_prospects_count": total,
			"last_prospect_name":    lastProspectName,
		},
	})
}

// PublishStatusUpdate broadcasts a generic entity status change.
func (h *Hub) PublishStatusUpdate(entity, id string, status string) {
	h.Publish(Event{
		Type: StatusUpdate,
		Payload: map[string]any{
			"entity": entity,
			"id":     id,
			"status": status,
		},
	})
}

// PublishEnrollmentUpdate broadcasts an enrollment progress change.
func (h *Hub) PublishEnrollmentUpdate(enrollmentID string, step int, status string) {
	h.Publish(Event{
		Type: EnrollmentUpdate,
		Payload: map[string]any{
			"enrollment_id": enrollmentID,
			"current_step":  step,
			"status":        status,
		},
	})
}

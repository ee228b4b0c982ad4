package services

import (
	"sync"
	"time"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
)

// Learning event types
const (
	EventFeedbackRecorded = "feedback_recorded"
	EventLearningApplied  = "learning_applied"
	EventSafetyChanged    = "safety_changed"
	EventStatsDrift       = "stats_drift"
)

// LearningEvent is a real-time notification about the learning pipeline.
type LearningEvent struct {
	Type       string    `json:"type"`
	FeedbackID uint      `json:"feedback_id,omitempty"`
	ArtifactID uint      `json:"artifact_id,omitempty"`
	Rating     int       `json:"rating,omitempty"`
	Disabled   *bool     `json:"disabled,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	At         time.Time `json:"at"`
}

// EventHub fans learning events out to SSE subscribers. A nil hub drops
// every event.
type EventHub struct {
	clients map[string]chan LearningEvent
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]chan LearningEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *EventHub) Subscribe(clientID string) <-chan LearningEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan LearningEvent, 100)
	h.clients[clientID] = ch
	metrics.EventSubscribers.Set(float64(len(h.clients)))
	return ch
}

// Unsubscribe removes a client from the hub
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
		metrics.EventSubscribers.Set(float64(len(h.clients)))
	}
}

// Publish broadcasts an event to all connected clients. Slow clients miss
// events rather than block the publisher.
func (h *EventHub) Publish(event LearningEvent) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

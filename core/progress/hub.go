// Package progress fans workflow events out to live subscribers of a
// research request. Delivery is best-effort: there is no replay, and a
// subscriber that cannot keep up is dropped without affecting the rest.
package progress

import (
	"log/slog"
	"sync"

	"research-agent/core/models"
)

// Event types pushed over a subscription
const (
	EventConnection = "connection"
	EventProgress   = "progress"
	EventCompletion = "completion"
	EventPing       = "ping"
	EventPong       = "pong"
)

const subscriberBuffer = 16

// Event is the envelope sent to subscribers
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Subscriber receives events for one research request
type Subscriber struct {
	requestID string
	events    chan Event
}

// Events returns the subscriber's event stream. The channel is closed when
// the subscriber is dropped or unsubscribed.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Hub is the per-process subscriber registry, owned by the server and
// injected into both the transport layer and the orchestrator.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscriber]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers interest in a request's events. Only events broadcast
// after this call are delivered.
func (h *Hub) Subscribe(requestID string) *Subscriber {
	sub := &Subscriber{
		requestID: requestID,
		events:    make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[requestID] == nil {
		h.subs[requestID] = make(map[*Subscriber]struct{})
	}
	h.subs[requestID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its stream
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub)
}

// Publish broadcasts an event to every live subscriber of the request.
// Sends never block: a subscriber with a full buffer is dropped.
func (h *Hub) Publish(requestID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[requestID] {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("dropping slow progress subscriber", "request_id", requestID)
			h.drop(sub)
		}
	}
}

// drop must be called with the lock held
func (h *Hub) drop(sub *Subscriber) {
	set, ok := h.subs[sub.requestID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.requestID)
	}
	close(sub.events)
}

// ProgressEvent builds a stage progress event
func ProgressEvent(step models.WorkflowStep, status, message string, percent int, details map[string]interface{}) Event {
	if details == nil {
		details = map[string]interface{}{}
	}
	return Event{
		Type: EventProgress,
		Data: map[string]interface{}{
			"step":     string(step),
			"status":   status,
			"message":  message,
			"progress": percent,
			"details":  details,
		},
	}
}

// CompletionEvent builds the terminal event for a workflow
func CompletionEvent(success bool, results *models.ResearchResults, errMsg string) Event {
	data := map[string]interface{}{
		"success": success,
	}
	if results != nil {
		data["results"] = results
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	return Event{Type: EventCompletion, Data: data}
}

// ConnectionEvent builds the acknowledgement sent on subscribe
func ConnectionEvent(requestID string) Event {
	return Event{
		Type: EventConnection,
		Data: map[string]interface{}{
			"message":    "Connected to research request " + requestID,
			"request_id": requestID,
		},
	}
}

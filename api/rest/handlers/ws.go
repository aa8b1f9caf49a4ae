package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"research-agent/core/progress"
	"research-agent/core/repository"
)

// idleWindow bounds how long the server waits for client traffic before
// probing the connection with a ping event.
const idleWindow = 30 * time.Second

// WSHandler serves per-request progress subscriptions over WebSocket
type WSHandler struct {
	hub      *progress.Hub
	requests repository.RequestStore
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(hub *progress.Hub, requests repository.RequestStore, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		requests: requests,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe handles GET /ws/research/{id}. The client receives a connection
// acknowledgement immediately, then progress and completion events as the
// workflow runs. Events broadcast before the subscription are not replayed.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	if _, err := h.requests.GetRequest(r.Context(), requestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Research request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Storage error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "request_id", requestID, "error", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(requestID)
	defer h.hub.Unsubscribe(sub)

	if err := conn.WriteJSON(progress.ConnectionEvent(requestID)); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	incoming := h.readLoop(conn, done)

	idle := time.NewTimer(idleWindow)
	defer idle.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Dropped by the hub (slow consumer).
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}

		case msg, ok := <-incoming:
			if !ok {
				return
			}
			if msg.Type == progress.EventPing {
				if err := conn.WriteJSON(progress.Event{Type: progress.EventPong, Data: map[string]interface{}{}}); err != nil {
					return
				}
			}
			resetTimer(idle, idleWindow)

		case <-idle.C:
			if err := conn.WriteJSON(progress.Event{Type: progress.EventPing, Data: map[string]interface{}{}}); err != nil {
				return
			}
			idle.Reset(idleWindow)
		}
	}
}

// readLoop pumps client messages into a channel, closing it when the client
// disconnects or done is closed. Unparseable messages are ignored. The done
// escape keeps the pump from blocking forever on a send after the handler
// has stopped draining.
func (h *WSHandler) readLoop(conn *websocket.Conn, done <-chan struct{}) <-chan progress.Event {
	incoming := make(chan progress.Event)
	go func() {
		defer close(incoming)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event progress.Event
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			select {
			case incoming <- event:
			case <-done:
				return
			}
		}
	}()
	return incoming
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

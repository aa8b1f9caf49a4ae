package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-agent/api/rest/handlers"
	"research-agent/api/rest/routes"
	"research-agent/core/models"
	"research-agent/core/progress"
	"research-agent/core/repository"
)

func newWSServer(t *testing.T, store *repository.MemoryStore, hub *progress.Hub) *httptest.Server {
	t.Helper()
	logger := testLogger()
	research := handlers.NewResearchHandler(store, store, store, func(string) (string, error) {
		return "task-stub", nil
	}, logger)
	ws := handlers.NewWSHandler(hub, store, logger)

	r := mux.NewRouter()
	routes.SetupRoutes(r, research, ws)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, requestID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/research/" + requestID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) progress.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event progress.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestSubscribeSendsConnectionAck(t *testing.T) {
	store := repository.NewMemoryStore()
	hub := progress.NewHub(testLogger())
	server := newWSServer(t, store, hub)

	req, err := store.CreateRequest(context.Background(), "live updates")
	require.NoError(t, err)

	conn := dialWS(t, server, req.ID)
	ack := readEvent(t, conn)
	assert.Equal(t, progress.EventConnection, ack.Type)
	assert.Equal(t, req.ID, ack.Data["request_id"])
}

func TestSubscribeStreamsProgressToAllClients(t *testing.T) {
	store := repository.NewMemoryStore()
	hub := progress.NewHub(testLogger())
	server := newWSServer(t, store, hub)

	req, err := store.CreateRequest(context.Background(), "live updates")
	require.NoError(t, err)

	first := dialWS(t, server, req.ID)
	second := dialWS(t, server, req.ID)
	readEvent(t, first)
	readEvent(t, second)

	// The hub subscription is registered before the ack is written, so both
	// clients are live once the acks arrive.
	hub.Publish(req.ID, progress.ProgressEvent(models.StepDataGathering, models.LogStatusCompleted, "Successfully gathered 3 articles", 40, nil))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, progress.EventProgress, event.Type)
		assert.Equal(t, string(models.StepDataGathering), event.Data["step"])
		assert.Equal(t, "Successfully gathered 3 articles", event.Data["message"])
		assert.Equal(t, float64(40), event.Data["progress"])
	}
}

func TestSubscribeStreamsCompletion(t *testing.T) {
	store := repository.NewMemoryStore()
	hub := progress.NewHub(testLogger())
	server := newWSServer(t, store, hub)

	req, err := store.CreateRequest(context.Background(), "live updates")
	require.NoError(t, err)

	conn := dialWS(t, server, req.ID)
	readEvent(t, conn)

	hub.Publish(req.ID, progress.CompletionEvent(true, &models.ResearchResults{Topic: "live updates"}, ""))

	event := readEvent(t, conn)
	assert.Equal(t, progress.EventCompletion, event.Type)
	assert.Equal(t, true, event.Data["success"])
	require.Contains(t, event.Data, "results")
}

func TestSubscribePingPong(t *testing.T) {
	store := repository.NewMemoryStore()
	hub := progress.NewHub(testLogger())
	server := newWSServer(t, store, hub)

	req, err := store.CreateRequest(context.Background(), "ping pong")
	require.NoError(t, err)

	conn := dialWS(t, server, req.ID)
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(progress.Event{Type: progress.EventPing, Data: map[string]interface{}{}}))
	event := readEvent(t, conn)
	assert.Equal(t, progress.EventPong, event.Type)
}

func TestSubscribeUnknownRequest(t *testing.T) {
	store := repository.NewMemoryStore()
	hub := progress.NewHub(testLogger())
	server := newWSServer(t, store, hub)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/research/no-such-id"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

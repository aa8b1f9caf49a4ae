package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-agent/core/progress"
	"research-agent/core/repository"
)

// The read pump parks on an unbuffered send when a client message arrives
// while the handler is not draining. Closing done must release it so the
// pump goroutine does not outlive the handler.
func TestReadLoopStopsWithHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewWSHandler(progress.NewHub(logger), repository.NewMemoryStore(), logger)

	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	conn := <-conns
	defer conn.Close()

	done := make(chan struct{})
	incoming := h.readLoop(conn, done)

	require.NoError(t, client.WriteJSON(progress.Event{Type: progress.EventPing, Data: map[string]interface{}{}}))
	time.Sleep(50 * time.Millisecond)

	close(done)
	time.Sleep(50 * time.Millisecond)

	select {
	case _, open := <-incoming:
		assert.False(t, open, "pump should exit, not deliver, once done is closed")
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not exit")
	}
}

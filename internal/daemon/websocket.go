package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clipflow/internal/api"
	"clipflow/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to loopback; same-origin enforcement adds nothing.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// handleEvents streams session snapshots over a websocket. The client gets
// the current snapshot immediately, then one message per state change until
// it disconnects or the daemon shuts down.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.daemon.orch.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := s.daemon.orch.Subscribe(id)
	defer cancel()

	// Drain client frames so close handshakes and pongs are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(snap any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		return conn.WriteJSON(snap)
	}
	if err := write(api.Event{Timestamp: time.Now().UTC(), Session: snap}); err != nil {
		return
	}

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			if err := write(api.Event{Timestamp: time.Now().UTC(), Session: next}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

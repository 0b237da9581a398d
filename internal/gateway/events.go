package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// event is the wire shape fanned out to a user's connected devices.
type event struct {
	Kind     string `json:"kind"`
	ThreadID string `json:"thread_id,omitempty"`
}

// eventHub tracks websocket listeners per user and fans events out to
// them. Delivery is best effort: a slow or dead connection is dropped,
// never waited on.
type eventHub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newEventHub(logger *slog.Logger) *eventHub {
	return &eventHub{
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *eventHub) add(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *eventHub) remove(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// broadcast sends ev to every listener of the user.
func (h *eventHub) broadcast(userID string, ev event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			h.logger.Debug("event write failed; dropping listener", "user_id", userID, "error", err)
			_ = conn.Close(websocket.StatusGoingAway, "write failed")
		}
		cancel()
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.conns {
		for conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
	h.conns = make(map[string]map[*websocket.Conn]struct{})
}

// handleEvents upgrades the connection and keeps it registered until the
// client goes away. Listeners only receive; inbound frames are discarded.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}

		g.events.add(userID, conn)
		g.metrics.wsConns.Inc()
		defer func() {
			g.events.remove(userID, conn)
			g.metrics.wsConns.Dec()
		}()

		// Read loop exists only to observe the close frame.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

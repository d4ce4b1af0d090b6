// Package ws exposes the observer bus over websockets. Observers are
// read-only: they watch events and routing decisions, they never write.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mistakeknot/hivemind/internal/observer"
)

const writeTimeout = 5 * time.Second

// Hub tracks observer connections and relays bus notifications to them.
// Connections may filter on one agent id; unfiltered connections see
// everything.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]string // conn -> agent filter ("" = all)
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]string)}
}

// Run consumes the bus until it closes. Call in a goroutine.
func (h *Hub) Run(bus *observer.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()
	for n := range ch {
		h.broadcast(n)
	}
}

// Handler accepts observer connections on /ws/observers. An optional
// ?agent= query restricts the stream to notifications involving that agent.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := strings.TrimSpace(r.URL.Query().Get("agent"))
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		h.add(conn, filter)
		defer h.remove(conn)

		// Observers don't send anything; the read loop just detects close.
		ctx := r.Context()
		for {
			var v any
			if err := wsjson.Read(ctx, conn, &v); err != nil {
				return
			}
		}
	}
}

type connEntry struct {
	conn   *websocket.Conn
	filter string
}

func (h *Hub) broadcast(n observer.Notification) {
	entries := h.snapshot()
	for _, e := range entries {
		if e.filter != "" && !notificationInvolves(n, e.filter) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, e.conn, n)
		cancel()
		if err != nil {
			go func(e connEntry) {
				e.conn.Close(websocket.StatusGoingAway, "write error")
				h.remove(e.conn)
			}(e)
		}
	}
}

// notificationInvolves reports whether an agent appears anywhere in the
// notification: as sender, addressee, routed target, or skipped target.
func notificationInvolves(n observer.Notification, agentID string) bool {
	if n.Event.FromAgent == agentID || n.Event.ToAgent == agentID {
		return true
	}
	for _, id := range n.AgentIDs {
		if id == agentID {
			return true
		}
	}
	for _, skip := range n.Skipped {
		if skip.AgentID == agentID {
			return true
		}
	}
	return false
}

func (h *Hub) snapshot() []connEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]connEntry, 0, len(h.conns))
	for conn, filter := range h.conns {
		out = append(out, connEntry{conn: conn, filter: filter})
	}
	return out
}

func (h *Hub) add(conn *websocket.Conn, filter string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = filter
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

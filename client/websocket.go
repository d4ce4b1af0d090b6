// WebSocket support for streaming the observer feed.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Notification is one observer feed entry: the appended event plus the
// routing the dispatcher computed for it.
type Notification struct {
	Event    Event    `json:"event"`
	AgentIDs []string `json:"agent_ids,omitempty"`
	Skipped  []Skip   `json:"skipped,omitempty"`
}

type Skip struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// NotificationHandler is called for each notification received.
type NotificationHandler func(n Notification)

// Observer streams the server's observer feed over a websocket.
type Observer struct {
	baseURL   string
	agent     string
	reconnect bool

	mu       sync.RWMutex
	handlers []NotificationHandler
	conn     *websocket.Conn

	done chan struct{}
	once sync.Once
}

type ObserverOption func(*Observer)

// WithAgentFilter restricts the stream to notifications involving one
// agent.
func WithAgentFilter(agentID string) ObserverOption {
	return func(o *Observer) {
		o.agent = agentID
	}
}

// WithAutoReconnect enables reconnection with backoff on disconnect.
func WithAutoReconnect(enabled bool) ObserverOption {
	return func(o *Observer) {
		o.reconnect = enabled
	}
}

// NewObserver creates an observer for the given server base URL
// (http://host:port).
func NewObserver(baseURL string, opts ...ObserverOption) *Observer {
	o := &Observer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		reconnect: true,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnNotification registers a handler. Register before Start.
func (o *Observer) OnNotification(h NotificationHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, h)
}

// Start connects and reads the feed until ctx is cancelled or Close is
// called. Blocks; run in a goroutine.
func (o *Observer) Start(ctx context.Context) error {
	for {
		err := o.readLoop(ctx)
		select {
		case <-o.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !o.reconnect {
			return err
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return nil
		}
	}
}

func (o *Observer) readLoop(ctx context.Context) error {
	wsURL := o.wsURL()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	o.mu.Lock()
	o.conn = conn
	o.mu.Unlock()
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var n Notification
		if err := wsjson.Read(ctx, conn, &n); err != nil {
			return err
		}
		o.mu.RLock()
		handlers := o.handlers
		o.mu.RUnlock()
		for _, h := range handlers {
			h(n)
		}
	}
}

// Close stops the observer.
func (o *Observer) Close() {
	o.once.Do(func() { close(o.done) })
	o.mu.RLock()
	conn := o.conn
	o.mu.RUnlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (o *Observer) wsURL() string {
	base := o.baseURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	u := base + "/ws/observers"
	if o.agent != "" {
		u += "?agent=" + url.QueryEscape(o.agent)
	}
	return u
}

// Package ws implements the WebSocket adapter that mirrors task progress
// events to connected UI clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 5 * time.Second
	// sendBuffer is how many messages a client may fall behind before it is
	// dropped as too slow.
	sendBuffer = 64
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Agent   string          `json:"agent,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection. An empty agent receives events
// from every agent. Messages queue on send and are written by the
// connection's own writer goroutine.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
	agent  string
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
	// origins lists allowed Origin patterns; empty skips the check.
	origins []string
}

// NewHub creates a new WebSocket hub. allowedOrigins are host patterns
// accepted during the handshake.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		conns:   make(map[*conn]struct{}),
		origins: allowedOrigins,
	}
}

// HandleWS upgrades the request to a WebSocket. The optional "agent" query
// parameter restricts the connection to one agent's events.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: h.origins}
	if len(h.origins) == 0 {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, send: make(chan []byte, sendBuffer), cancel: cancel, agent: r.URL.Query().Get("agent")}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "agent", c.agent)

	go c.writeLoop(ctx, h)

	// Read loop detects disconnects and consumes pings.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// writeLoop drains c.send until the connection is removed, then closes the
// socket.
func (c *conn) writeLoop(ctx context.Context, h *Hub) {
	defer func() { _ = c.ws.Close(websocket.StatusNormalClosure, "") }()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "agent", c.agent, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// ServeHTTP lets the hub be mounted directly as a handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWS(w, r)
}

// Broadcast queues a message for every client subscribed to msg.Agent. It
// never waits on a client: one whose queue is full is disconnected.
func (h *Hub) Broadcast(_ context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	var slow []*conn
	for c := range h.conns {
		if c.agent != "" && c.agent != msg.Agent {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("websocket client too slow, disconnecting", "agent", c.agent)
		h.remove(c)
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "agent", c.agent)
	}
}

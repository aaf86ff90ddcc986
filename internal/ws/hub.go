package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pastyhq/pasty/internal/config"
	"github.com/pastyhq/pasty/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxFrameSize bounds inbound frames. Save payloads arrive over this
	// channel, so it must comfortably exceed the content length limit.
	maxFrameSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Service is the slice of the core the hub needs: the two text operations for
// socket-submitted requests plus the live count for broadcasts.
type Service interface {
	Save(ctx context.Context, content, origin string, now time.Time) (string, error)
	Retrieve(ctx context.Context, id string, now time.Time) (string, error)
	CurrentCount(ctx context.Context) (int, error)
}

// Hub manages WebSocket observer connections. Every observer receives the
// current number of stored texts immediately on connect and again on every
// Broadcast. Observers may also submit saves and retrievals over the same
// connection and probe liveness with a ping message.
type Hub struct {
	svc    Service
	limits *config.LiveLimits
	now    func() time.Time // injectable for deterministic tests

	mu      sync.Mutex
	clients map[*client]struct{}
}

// client represents one connected observer.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	origin string
}

// inbound is the envelope observers send to the hub.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	ID      string `json:"id,omitempty"`
}

// countUpdate is sent on connect and on every broadcast.
type countUpdate struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// pong answers an observer's ping.
type pong struct {
	Type              string `json:"type"`
	ServerTime        string `json:"server_time"`
	ActiveConnections int    `json:"active_connections"`
}

// opResult carries the outcome of a socket-submitted save or retrieve.
type opResult struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates a Hub over the given service and live boundary limits.
func New(svc Service, limits *config.LiveLimits) *Hub {
	return &Hub{
		svc:     svc,
		limits:  limits,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the
// observer. The first message queued for a new observer is always the count
// at connect time — registration and the initial send happen under the same
// lock broadcasts take, so a racing save cannot reorder them. Blocks until
// the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CurrentCount(r.Context())
	if err != nil {
		slog.Error("ws: count read on connect failed", "err", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
		origin: conn.RemoteAddr().String(),
	}

	initial, err := json.Marshal(countUpdate{Type: "count_update", Count: count})
	if err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	c.send <- initial // freshly made buffered channel, cannot block
	h.mu.Unlock()

	defer h.unregister(c)

	go c.writePump()
	h.readPump(r.Context(), c) // blocks until connection closes
}

// Broadcast queues the given live-text count for every connected observer.
// Per-observer delivery is FIFO; an observer that cannot keep up (full send
// buffer) is disconnected rather than allowed to stall the rest.
func (h *Hub) Broadcast(count int) {
	data, err := json.Marshal(countUpdate{Type: "count_update", Count: count})
	if err != nil {
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c)
		}
	}
	h.mu.Unlock()
}

// Count returns the number of currently connected observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// unregister removes the observer and stops further sends to it. Idempotent:
// removing an already-gone observer is a no-op.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// reply queues a message for a single observer. The membership check under
// the lock guards against racing an unregister that already closed the
// channel.
func (h *Hub) reply(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// readPump reads frames from the connection, dispatches observer requests,
// and detects disconnects. Blocks until the connection closes.
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.dispatch(ctx, c, msg)
	}
}

// dispatch handles one observer request.
func (h *Hub) dispatch(ctx context.Context, c *client, msg inbound) {
	switch msg.Type {
	case "ping":
		h.reply(c, pong{
			Type:              "pong",
			ServerTime:        h.now().UTC().Format(time.RFC3339),
			ActiveConnections: h.Count(),
		})

	case "save_text":
		if len(msg.Content) > h.limits.Get().MaxContentLength {
			h.reply(c, opResult{Type: "save_error", Error: "Text exceeds allowed length."})
			return
		}
		id, err := h.svc.Save(ctx, msg.Content, c.origin, h.now().UTC())
		if err != nil {
			slog.Error("ws: save failed", "origin", c.origin, "err", err)
			h.reply(c, opResult{Type: "save_error", Error: "An error occurred. Please try again."})
			return
		}
		h.reply(c, opResult{Type: "save_success", ID: id, Content: msg.Content})

	case "retrieve_text":
		content, err := h.svc.Retrieve(ctx, msg.ID, h.now().UTC())
		if errors.Is(err, store.ErrNotFound) {
			h.reply(c, opResult{Type: "retrieve_error", Error: "ID not found"})
			return
		}
		if err != nil {
			slog.Error("ws: retrieve failed", "id", msg.ID, "err", err)
			h.reply(c, opResult{Type: "retrieve_error", Error: "An error occurred. Please try again."})
			return
		}
		h.reply(c, opResult{Type: "retrieve_success", ID: msg.ID, Content: content})
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/exam-atlas/internal/snapshot"
)

// MessageSnapshot announces a newly published snapshot.
const MessageSnapshot = "snapshot"

const writeTimeout = 5 * time.Second

// Message is pushed to websocket clients.
type Message struct {
	Type     string            `json:"type"`
	Snapshot *snapshot.Summary `json:"snapshot,omitempty"`
}

// client is one connected websocket.
type client struct {
	send chan Message
}

// Hub fans messages out to connected dashboard clients.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) register(buffer int) *client {
	c := &client{send: make(chan Message, buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("dashboard client connected", "clients", n)
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("dashboard client disconnected", "clients", n)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients whose queue is full miss it.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("dropping message for slow dashboard client", "type", msg.Type)
		}
	}
}

// serve pumps queued messages to conn until the peer goes away.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, initial *Message) {
	c := h.register(8)
	defer h.unregister(c)

	// Only closes and pings are expected from the browser.
	ctx = conn.CloseRead(ctx)

	if initial != nil {
		if err := write(ctx, conn, *initial); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-c.send:
			if err := write(ctx, conn, msg); err != nil {
				slog.Debug("dashboard client write failed", "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

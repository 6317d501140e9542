package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchgrid/backend/internal/metrics"
)

// client is one WebSocket connection. Messages are queued on a buffered
// channel drained by writePump so the hub never blocks on a slow peer.
// The identity slot is set once at join time and read on every
// subsequent event from that connection.
type client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	// closed is guarded by hub.mu: set under the write lock when the
	// client leaves the hub, read under the read lock before every
	// channel send, so a send can never interleave with the close.
	closed bool

	mu       sync.Mutex
	userID   string
	userName string
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

func (c *client) setIdentity(id, name string) {
	c.mu.Lock()
	c.userID = id
	c.userName = name
	c.mu.Unlock()
}

// identity returns the join-time identity slot; ok is false until the
// connection has joined a session.
func (c *client) identity() (id, name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.userName, c.userID != ""
}

// Hub owns the set of live connections and fans events out to them.
// Delivery is best-effort: a client whose queue is full is disconnected
// rather than allowed to stall everyone else.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		metrics: m,
	}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, 64),
	}
	go c.writePump()

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(1)
	}
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.closed = true
		c.close()
	}
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.ConnectedClients.Add(-1)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo delivers a message to a single connection.
func (h *Hub) sendTo(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	h.deliver(c, data)
}

// broadcastAll delivers to every connection, the origin included.
func (h *Hub) broadcastAll(msg Message) {
	h.fanOut(msg, nil)
}

// broadcastOthers delivers to every connection except the origin.
func (h *Hub) broadcastOthers(msg Message, origin *client) {
	h.fanOut(msg, origin)
}

func (h *Hub) fanOut(msg Message, except *client) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, data)
	}
}

func (h *Hub) deliver(c *client, data []byte) {
	h.mu.RLock()
	if c.closed {
		h.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		// Client can't keep up, disconnect it.
		log.Printf("ws client too slow, disconnecting")
		if h.metrics != nil {
			h.metrics.MessagesDropped.Add(1)
		}
		h.remove(c)
	}
}

package ws

import (
	"sync"

	"graminstore-backend/internal/logger"

	"github.com/gorilla/websocket"
)

// Role distinguishes the two recipient namespaces in the hub.
type Role string

const (
	RoleMerchant Role = "merchant"
	RoleUser     Role = "user"
)

// Client wraps one live websocket connection. Writes are serialized
// through the client's mutex because both the reader goroutine (pong,
// orders_update replies) and the fan-out path write to the same
// connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send marshals v to JSON and writes it on the connection.
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub is the in-memory connection registry for push-style delivery of
// order events. Delivery is best-effort and at-most-once: a message sent
// while a recipient has zero open connections is lost, and a connection
// that errors during send is dropped from the registry.
type Hub struct {
	mu    sync.Mutex
	conns map[Role]map[uint][]*Client
}

func NewHub() *Hub {
	return &Hub{
		conns: map[Role]map[uint][]*Client{
			RoleMerchant: {},
			RoleUser:     {},
		},
	}
}

// Register adds a connection for a recipient.
func (h *Hub) Register(role Role, id uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[role][id] = append(h.conns[role][id], client)
}

// Unregister removes a connection for a recipient.
func (h *Hub) Unregister(role Role, id uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(role, id, client)
}

func (h *Hub) remove(role Role, id uint, client *Client) {
	clients := h.conns[role][id]
	for i, c := range clients {
		if c == client {
			h.conns[role][id] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.conns[role][id]) == 0 {
		delete(h.conns[role], id)
	}
}

// ConnectionCount returns the number of open connections for a
// recipient.
func (h *Hub) ConnectionCount(role Role, id uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[role][id])
}

// Deliver sends message to every open connection of the recipient.
// Connections that fail to accept the write are closed and removed.
func (h *Hub) Deliver(role Role, id uint, message interface{}) {
	h.mu.Lock()
	clients := append([]*Client(nil), h.conns[role][id]...)
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.Send(message); err != nil {
			logger.Get().WithError(err).WithField("recipient", id).
				Debug("dropping dead websocket connection")
			client.Close()

			h.mu.Lock()
			h.remove(role, id, client)
			h.mu.Unlock()
		}
	}
}

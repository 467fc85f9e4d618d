package ws

import (
	"sync"
)

// Hub tracks connected clients per user and delivers messages to them.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// users maps user ID to set of client IDs
	users map[string]map[string]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		users:   make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[string]struct{})
	}

	h.users[client.UserID][client.ID] = struct{}{}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ids, ok := h.users[client.UserID]; ok {
		delete(ids, client.ID)

		if len(ids) == 0 {
			delete(h.users, client.UserID)
		}
	}

	delete(h.clients, client.ID)
}

// SendToUser sends msg to every client of userID and returns how many
// clients accepted it.
func (h *Hub) SendToUser(userID string, msg Message) int {
	h.mu.RLock()

	targets := make([]*Client, 0, len(h.users[userID]))
	for id := range h.users[userID] {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}

	h.mu.RUnlock()

	delivered := 0

	for _, c := range targets {
		if err := c.Send(msg); err == nil {
			delivered++
		}
	}

	return delivered
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		// Send in goroutine to avoid blocking on slow clients
		go func(c *Client) {
			_ = c.Send(msg)
		}(client)
	}
}

// ClientCount returns the number of clients connected for a user.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID])
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

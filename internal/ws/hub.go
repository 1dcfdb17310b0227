package ws

import (
	"encoding/json"
	"sync"
)

// Event types pushed to dashboard tabs.
const (
	// EventLeadsRefetch tells every open leads table to fetch its current
	// filter again. It follows status updates and assignments.
	EventLeadsRefetch = "leads.refetch"
	// EventUserChanged carries the authoritative state of a toggled account.
	EventUserChanged = "users.changed"
)

// Event is the envelope of every pushed message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client is one open dashboard tab.
type Client struct {
	UserID int64
	Role   string
	Send   chan []byte
	Hub    *Hub
	mu     sync.Mutex
	closed bool
}

func NewClient(userID int64, role string) *Client {
	return &Client{UserID: userID, Role: role, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	close(c.Send)
}

// Hub maintains the set of open tabs and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// userID -> tabs (one user can have several)
	byUser map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// deliver drops the message for tabs whose buffer is full; they catch up on
// their next fetch.
func deliver(clients []*Client, data []byte) {
	for _, c := range clients {
		c.mu.Lock()
		if !c.closed {
			select {
			case c.Send <- data:
			default:
			}
		}
		c.mu.Unlock()
	}
}

func (h *Hub) BroadcastToUser(userID int64, ev Event) {
	data, _ := json.Marshal(ev)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	deliver(clients, data)
}

func (h *Hub) BroadcastAll(ev Event) {
	data, _ := json.Marshal(ev)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	deliver(clients, data)
}

// BroadcastToRoles sends ev to every tab whose user has one of roles.
func (h *Hub) BroadcastToRoles(ev Event, roles ...string) {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	data, _ := json.Marshal(ev)
	h.mu.RLock()
	var clients []*Client
	for c := range h.clients {
		if want[c.Role] {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	deliver(clients, data)
}

// DisconnectUser closes every open tab of userID. Their write pumps see the
// closed Send channel, send a close frame and drop the connection.
func (h *Hub) DisconnectUser(userID int64) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

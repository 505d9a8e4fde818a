package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message is a table change pushed to every subscribed client, e.g.
// {"type":"products_synced","entity":"products","action":"synced"}.
type Message struct {
	Type   string    `json:"type"`
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     int64     `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

func NewMessage(entity, action string, id int64) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
		At:     time.Now().UTC(),
	}
}

// Hub fans sync events out to connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c and closes its send channel. Repeated calls are safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Notify satisfies the gateway's change notifier.
func (h *Hub) Notify(entity, action string, id int64) {
	h.Broadcast(NewMessage(entity, action, id))
}

// Broadcast sends msg to every client subscribed to its entity. Slow
// clients miss messages rather than block the sender.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(msg.Entity) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropping message for slow client", "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package websocket

import (
	"context"
	"strings"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
)

// Client is one WebSocket subscriber. An empty entity set means all.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	entities map[string]bool
}

// NewClient creates a Client. entities restricts which tables it hears
// about; nil subscribes to everything.
func NewClient(hub *Hub, conn *ws.Conn, entities []string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if len(entities) > 0 {
		c.entities = make(map[string]bool, len(entities))
		for _, e := range entities {
			c.entities[e] = true
		}
	}
	return c
}

// ParseEntities splits a comma separated subscription list.
func ParseEntities(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Client) wants(entity string) bool {
	return c.entities == nil || c.entities[entity]
}

// Run registers the client and pumps messages until the connection closes.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards client input; the stream is one way.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

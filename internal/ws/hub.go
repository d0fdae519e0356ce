package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const wsRoutingKey = "ws_events.providers"

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client guards writes to one connection; gorilla connections allow a
// single concurrent writer.
type client struct {
	conn Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains active websocket subscriptions keyed by channel.
type Hub struct {
	channels map[string]map[Conn]*client
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[Conn]*client)}
}

// AddClient subscribes a connection to a channel.
func (h *Hub) AddClient(channel string, conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[Conn]*client)
	}
	h.channels[channel][conn] = &client{conn: conn, info: info}
}

// RemoveClient unsubscribes a connection.
func (h *Hub) RemoveClient(channel string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.channels[channel]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Subscribers returns the number of connections on a channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Publish writes event to every connection on channel and returns how many
// writes succeeded. Broken connections are closed and dropped.
func (h *Hub) Publish(channel string, event models.SocketEvent) int {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return 0
	}

	event.Channel = channel
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket encode error channel=%s: %v", channel, err)
		return 0
	}

	delivered := 0
	for _, c := range clients {
		if err := c.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			c.conn.Close()
			h.RemoveClient(channel, c.conn)
			h.publishWSError(c.info, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	if info.Provider.IsZero() {
		return
	}
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey,
		observability.WSEvent("ws_error", info.ConnID, info.Provider, info.DeviceID, info.IP, info.ConnectedAt, err.Error()), headers)
	observability.IncWSEvent(info.Provider.Alias, "ws_error")
}

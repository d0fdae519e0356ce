package brokers

import (
	"context"

	"messenger-service/internal/models"
)

// ChannelPublisher writes an event to a websocket channel.
type ChannelPublisher interface {
	Publish(channel string, event models.SocketEvent) int
}

// SocketBroker is the default broadcasting driver. Each audience member
// receives the event on its private channel; offline members are skipped.
type SocketBroker struct {
	hub ChannelPublisher
}

// NewSocketBroker constructs a SocketBroker over the websocket hub.
func NewSocketBroker(hub ChannelPublisher) *SocketBroker {
	return &SocketBroker{hub: hub}
}

func (b *SocketBroker) BroadcastEvent(ctx context.Context, event string, audience Audience, payload map[string]any) error {
	for _, ref := range audience {
		b.hub.Publish(ref.Channel(), models.SocketEvent{Type: event, Payload: payload})
	}
	return nil
}

package brokers

import (
	"context"
)

// JSONPublisher publishes JSON bodies to the message bus.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// CallEnvelope is the call signaling message consumed by the media
// service.
type CallEnvelope struct {
	Event      string         `json:"event"`
	Recipients Audience       `json:"recipients"`
	Payload    map[string]any `json:"payload"`
}

// CallBroker is the default calling driver.
type CallBroker struct {
	publisher JSONPublisher
}

// NewCallBroker constructs a CallBroker.
func NewCallBroker(publisher JSONPublisher) *CallBroker {
	return &CallBroker{publisher: publisher}
}

func (b *CallBroker) BroadcastEvent(ctx context.Context, event string, audience Audience, payload map[string]any) error {
	return b.publisher.PublishJSON(ctx, "calling."+event, CallEnvelope{
		Event:      event,
		Recipients: audience,
		Payload:    payload,
	}, map[string]string{"event": event})
}

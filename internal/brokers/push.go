package brokers

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoPublisher publishes protobuf bodies to the message bus.
type ProtoPublisher interface {
	PublishProto(ctx context.Context, routingKey string, msg proto.Message, headers map[string]string) error
}

// DeviceLookup reports whether an alias has push devices.
type DeviceLookup interface {
	HasDevices(alias string) bool
}

// PushBroker is the default push driver. It hands the event to the push
// gateway over RabbitMQ as a structpb.Struct, addressed only to audience
// members whose provider type owns devices.
type PushBroker struct {
	publisher ProtoPublisher
	devices   DeviceLookup
}

// NewPushBroker constructs a PushBroker.
func NewPushBroker(publisher ProtoPublisher, devices DeviceLookup) *PushBroker {
	return &PushBroker{publisher: publisher, devices: devices}
}

func (b *PushBroker) BroadcastEvent(ctx context.Context, event string, audience Audience, payload map[string]any) error {
	recipients := make([]any, 0, len(audience))
	for _, ref := range audience {
		if b.devices.HasDevices(ref.Alias) {
			recipients = append(recipients, map[string]any{"alias": ref.Alias, "id": ref.ID})
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	body, err := normalize(payload)
	if err != nil {
		return fmt.Errorf("push payload: %w", err)
	}
	msg, err := structpb.NewStruct(map[string]any{
		"event":      event,
		"recipients": recipients,
		"payload":    body,
	})
	if err != nil {
		return fmt.Errorf("push payload: %w", err)
	}
	return b.publisher.PublishProto(ctx, "push."+event, msg, map[string]string{"event": event})
}

// normalize turns arbitrary payload values (times, structs, typed slices)
// into the plain JSON shapes structpb accepts.
func normalize(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package observability

import (
	"time"

	"messenger-service/internal/models"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// WSEvent builds the envelope of a websocket lifecycle event.
func WSEvent(event, connID string, provider models.ProviderRef, deviceID, ip string, connectedAt time.Time, reason string) EventEnvelope {
	duration := int64(0)
	if !connectedAt.IsZero() {
		duration = time.Since(connectedAt).Milliseconds()
	}
	return EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"channel":     provider.Channel(),
				"event":       event,
				"conn_id":     connID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"provider_alias": provider.Alias,
				"provider_id":    provider.ID,
				"device_id":      deviceID,
				"ip":             ip,
			},
		},
	}
}

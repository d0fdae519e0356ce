package telemetry

import (
	"context"
	"log"
	"time"

	"messenger-service/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	ProviderAlias *string      `json:"provider_alias,omitempty"`
	ProviderID    *string      `json:"provider_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level    string `json:"level"`
	Text     string `json:"text"`
	ThreadID string `json:"thread_id,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit record. actor may be nil for system actions.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, actor *models.ProviderRef, threadID string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		Payload: AuditPayload{
			Level:    level,
			Text:     text,
			ThreadID: threadID,
		},
	}
	if actor != nil {
		alias, id := actor.Alias, actor.ID
		envelope.ProviderAlias = &alias
		envelope.ProviderID = &id
	}
	log.Printf("audit emit: level=%s request_id=%s actor=%v thread_id=%s text=%q", level, requestID, actor, threadID, text)

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

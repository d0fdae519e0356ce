// Package services holds the messenger core: permission-gated thread,
// participant and message operations that persist through the
// repositories and emit domain events to the broker dispatcher.
package services

import (
	"context"
	"log"
	"time"

	"messenger-service/internal/brokers"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

// Emitter accepts domain events for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, event brokers.Event)
}

// nowFunc is swapped in tests.
var nowFunc = time.Now

var evaluator permissions.Evaluator

// check runs the evaluator and counts denials.
func check(p *models.Participant, t models.Thread, a permissions.Action) error {
	if err := evaluator.Check(p, t, a); err != nil {
		observability.IncPermissionDenied(a.String())
		return err
	}
	return nil
}

// audience returns every live participant of the thread minus excluded.
func audience(ctx context.Context, participants repositories.ParticipantRepository, threadID string, excluded ...models.ProviderRef) (brokers.Audience, error) {
	ps, err := participants.ListParticipants(ctx, threadID, 0)
	if err != nil {
		return nil, err
	}
	return brokers.AudienceOf(ps).Without(excluded...), nil
}

// announce emits event to every participant of the thread except actor.
// Lookup failures are logged; the triggering change is already committed.
func announce(ctx context.Context, emitter Emitter, participants repositories.ParticipantRepository, threadID string, actor models.ProviderRef, event string, payload map[string]any, categories ...brokers.Category) {
	members, err := audience(ctx, participants, threadID, actor)
	if err != nil {
		log.Printf("audience lookup failed event=%s thread_id=%s err=%v", event, threadID, err)
		return
	}
	emitter.Emit(ctx, brokers.Event{
		Name:       event,
		ThreadID:   threadID,
		Audience:   members,
		Payload:    payload,
		Categories: categories,
	})
}

func systemMessage(threadID string, owner models.ProviderRef, kind models.MessageType, body string) *models.Message {
	return &models.Message{
		ThreadID:   threadID,
		OwnerAlias: owner.Alias,
		OwnerID:    owner.ID,
		Type:       kind,
		Body:       body,
	}
}

func messagePayload(m models.Message) map[string]any {
	payload := map[string]any{
		"id":           m.ID,
		"thread_id":    m.ThreadID,
		"owner_type":   m.OwnerAlias,
		"owner_id":     m.OwnerID,
		"type":         int(m.Type),
		"type_verbose": m.TypeVerbose(),
		"body":         m.Body,
		"created_at":   m.CreatedAt,
	}
	if m.ReplyToID != nil {
		payload["reply_to_id"] = *m.ReplyToID
		var reply map[string]any
		if m.ReplyTo != nil {
			reply = map[string]any{
				"id":         m.ReplyTo.ID,
				"owner_type": m.ReplyTo.OwnerAlias,
				"owner_id":   m.ReplyTo.OwnerID,
				"type":       int(m.ReplyTo.Type),
				"body":       m.ReplyTo.Body,
			}
		}
		payload["reply_to"] = reply
	}
	if m.TemporaryID != "" {
		payload["temporary_id"] = m.TemporaryID
	}
	return payload
}

func participantPayload(p models.Participant) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"thread_id":  p.ThreadID,
		"owner_type": p.OwnerAlias,
		"owner_id":   p.OwnerID,
		"admin":      p.Admin,
	}
}

func threadPayload(t models.Thread) map[string]any {
	return map[string]any{
		"thread_id":        t.ID,
		"type":             int(t.Kind),
		"subject":          t.Subject,
		"locked":           t.Locked,
		"add_participants": t.AddParticipants,
		"invitations":      t.Invitations,
		"calling":          t.Calling,
		"messaging":        t.Messaging,
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so audit records can be correlated with the
// originating request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Auditor records security relevant actions.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, actor *models.ProviderRef, threadID string)
}

type noopAuditor struct{}

func (noopAuditor) Emit(ctx context.Context, level, text, requestID string, actor *models.ProviderRef, threadID string) {
}

func auditorOrNoop(a Auditor) Auditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}

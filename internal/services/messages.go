package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"messenger-service/internal/config"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

// SendMessageInput is a message as submitted by a client.
type SendMessageInput struct {
	Type        models.MessageType
	Body        string
	ReplyToID   *string
	TemporaryID string
}

// MessagePipeline gates, stores and announces messages.
type MessagePipeline struct {
	messages     repositories.MessageRepository
	participants repositories.ParticipantRepository
	emitter      Emitter
	cfg          config.Config
}

// NewMessagePipeline constructs a MessagePipeline.
func NewMessagePipeline(messages repositories.MessageRepository, participants repositories.ParticipantRepository, emitter Emitter, cfg config.Config) *MessagePipeline {
	return &MessagePipeline{messages: messages, participants: participants, emitter: emitter, cfg: cfg}
}

// Send stores a message from sender and emits message.new. Delivery runs
// after the commit and never fails the call.
func (m *MessagePipeline) Send(ctx context.Context, thread models.Thread, sender *models.Participant, in SendMessageInput) (models.Message, error) {
	if err := check(sender, thread, permissions.SendMessage); err != nil {
		return models.Message{}, err
	}
	if thread.IsGroup() && !thread.Messaging && !sender.Admin {
		return models.Message{}, permissions.ErrForbidden
	}
	if err := m.validate(in); err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ThreadID:    thread.ID,
		OwnerAlias:  sender.OwnerAlias,
		OwnerID:     sender.OwnerID,
		Type:        in.Type,
		Body:        strings.TrimSpace(in.Body),
		TemporaryID: in.TemporaryID,
	}
	// Reply ids are stored as given; whether they resolve is decided when
	// the message is read.
	if in.ReplyToID != nil && *in.ReplyToID != "" {
		id := *in.ReplyToID
		msg.ReplyToID = &id
	}

	stored, err := m.messages.CreateMessage(ctx, msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("store message: %w", err)
	}
	stored.TemporaryID = in.TemporaryID
	stored.ReplyTo = m.resolveReply(ctx, thread.ID, stored.ReplyToID)
	observability.IncMessageStored(stored.TypeVerbose())

	announce(ctx, m.emitter, m.participants, thread.ID, stored.Owner(), models.EventNewMessage, messagePayload(stored))
	return stored, nil
}

// resolveReply looks the reply target up in the same thread. A miss, or a
// failed lookup, leaves the reply unresolved; the message is already stored.
func (m *MessagePipeline) resolveReply(ctx context.Context, threadID string, replyToID *string) *models.Message {
	if replyToID == nil {
		return nil
	}
	target, err := m.messages.GetMessage(ctx, threadID, *replyToID)
	if err != nil {
		if !errors.Is(err, repositories.ErrMessageNotFound) {
			log.Printf("reply lookup failed thread_id=%s reply_to_id=%s err=%v", threadID, *replyToID, err)
		}
		return nil
	}
	target.ReplyTo = nil
	return &target
}

func (m *MessagePipeline) validate(in SendMessageInput) error {
	if strings.TrimSpace(in.Body) == "" {
		return invalid("message", "required")
	}
	if !in.Type.UserSendable() {
		return invalid("type", "unsupported")
	}
	switch in.Type {
	case models.MessageDocument:
		if !m.cfg.Documents.Upload {
			return ErrFeatureDisabled
		}
	case models.MessageImage:
		if !m.cfg.Images.Upload {
			return ErrFeatureDisabled
		}
	}
	return nil
}

// Get returns one message with its reply resolved.
func (m *MessagePipeline) Get(ctx context.Context, thread models.Thread, reader *models.Participant, messageID string) (models.Message, error) {
	if err := check(reader, thread, permissions.Read); err != nil {
		return models.Message{}, err
	}
	return m.messages.GetMessage(ctx, thread.ID, messageID)
}

// List pages messages newest first. The first page uses the index size,
// later pages (before set) the page size.
func (m *MessagePipeline) List(ctx context.Context, thread models.Thread, reader *models.Participant, before string) ([]models.Message, error) {
	if err := check(reader, thread, permissions.Read); err != nil {
		return nil, err
	}
	limit := m.cfg.Collections.MessagesIndexCount
	if before != "" {
		limit = m.cfg.Collections.MessagesPageCount
	}
	return m.messages.ListMessages(ctx, thread.ID, before, limit)
}

// MarkRead records that reader has seen the thread up to now.
func (m *MessagePipeline) MarkRead(ctx context.Context, thread models.Thread, reader *models.Participant) error {
	if err := check(reader, thread, permissions.Read); err != nil {
		return err
	}
	return m.participants.MarkRead(ctx, reader.ID, nowFunc())
}

// Delete archives a message. Only its owner or a group admin may do so.
func (m *MessagePipeline) Delete(ctx context.Context, thread models.Thread, actor *models.Participant, messageID string) error {
	if err := check(actor, thread, permissions.Read); err != nil {
		return err
	}
	if thread.Locked {
		return permissions.ErrForbidden
	}
	msg, err := m.messages.GetMessage(ctx, thread.ID, messageID)
	if err != nil {
		return err
	}
	if msg.Owner() != actor.Owner() && !(thread.IsGroup() && actor.Admin) {
		return permissions.ErrForbidden
	}
	if err := m.messages.ArchiveMessage(ctx, thread.ID, msg.ID); err != nil {
		return fmt.Errorf("archive message: %w", err)
	}
	announce(ctx, m.emitter, m.participants, thread.ID, actor.Owner(), models.EventMessageArchived, map[string]any{
		"thread_id":  thread.ID,
		"message_id": msg.ID,
	})
	return nil
}

package services

import (
	"context"
	"fmt"

	"messenger-service/internal/brokers"
	"messenger-service/internal/config"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

// CallService starts calls. Media negotiation is left to the calling
// driver.
type CallService struct {
	messages     repositories.MessageRepository
	participants repositories.ParticipantRepository
	emitter      Emitter
	cfg          config.CallingConfig
}

// NewCallService constructs a CallService.
func NewCallService(messages repositories.MessageRepository, participants repositories.ParticipantRepository, emitter Emitter, cfg config.CallingConfig) *CallService {
	return &CallService{messages: messages, participants: participants, emitter: emitter, cfg: cfg}
}

// Start records a VIDEO_CALL system message and signals every other
// participant over the broadcast, push and calling categories.
func (s *CallService) Start(ctx context.Context, thread models.Thread, starter *models.Participant) (models.Message, error) {
	if !s.cfg.Enabled {
		return models.Message{}, ErrFeatureDisabled
	}
	if err := check(starter, thread, permissions.StartCall); err != nil {
		return models.Message{}, err
	}
	if !thread.Calling {
		return models.Message{}, permissions.ErrForbidden
	}

	msg, err := s.messages.CreateMessage(ctx, *systemMessage(thread.ID, starter.Owner(), models.MessageVideoCall, "call started"))
	if err != nil {
		return models.Message{}, fmt.Errorf("store call message: %w", err)
	}
	payload := messagePayload(msg)
	payload["call_id"] = msg.ID
	announce(ctx, s.emitter, s.participants, thread.ID, starter.Owner(), models.EventCallStarted, payload,
		brokers.Broadcasting, brokers.PushNotifications, brokers.Calling)
	return msg, nil
}

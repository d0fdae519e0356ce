package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"messenger-service/internal/brokers"
	"messenger-service/internal/config"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

// KnockService sends rate limited attention pings to a thread.
type KnockService struct {
	participants repositories.ParticipantRepository
	emitter      Emitter
	cfg          config.KnocksConfig
	recent       *cache.Cache
}

// NewKnockService constructs a KnockService.
func NewKnockService(participants repositories.ParticipantRepository, emitter Emitter, cfg config.KnocksConfig) *KnockService {
	return &KnockService{
		participants: participants,
		emitter:      emitter,
		cfg:          cfg,
		recent:       cache.New(cfg.Timeout, time.Minute),
	}
}

// knockKey scopes the timeout: one per group, one per sender in a
// private thread.
func knockKey(thread models.Thread, sender models.ProviderRef) string {
	if thread.IsGroup() {
		return "knock:" + thread.ID
	}
	return "knock:" + thread.ID + ":" + sender.String()
}

// Knock notifies every other participant. A second knock inside the
// timeout window returns ErrKnockTimeout.
func (s *KnockService) Knock(ctx context.Context, thread models.Thread, sender *models.Participant) error {
	if !s.cfg.Enabled {
		return ErrFeatureDisabled
	}
	if err := check(sender, thread, permissions.SendKnock); err != nil {
		return err
	}
	if s.cfg.Timeout > 0 {
		if err := s.recent.Add(knockKey(thread, sender.Owner()), true, s.cfg.Timeout); err != nil {
			return ErrKnockTimeout
		}
	}

	announce(ctx, s.emitter, s.participants, thread.ID, sender.Owner(), models.EventKnock, map[string]any{
		"thread_id":  thread.ID,
		"owner_type": sender.OwnerAlias,
		"owner_id":   sender.OwnerID,
	}, brokers.Broadcasting, brokers.PushNotifications)
	return nil
}

// Remaining reports how long until the sender may knock again.
func (s *KnockService) Remaining(thread models.Thread, sender models.ProviderRef) time.Duration {
	_, expires, ok := s.recent.GetWithExpiration(knockKey(thread, sender))
	if !ok || expires.IsZero() {
		return 0
	}
	if d := time.Until(expires); d > 0 {
		return d
	}
	return 0
}

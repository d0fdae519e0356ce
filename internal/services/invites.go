package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"messenger-service/internal/config"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
)

const inviteCodeLength = 10

// InviteService manages join codes for group threads.
type InviteService struct {
	invites      repositories.InviteRepository
	threads      repositories.ThreadRepository
	participants repositories.ParticipantRepository
	registry     *provider.Registry
	emitter      Emitter
	audit        Auditor
	cfg          config.InvitesConfig
}

// NewInviteService constructs an InviteService. audit may be nil.
func NewInviteService(
	invites repositories.InviteRepository,
	threads repositories.ThreadRepository,
	participants repositories.ParticipantRepository,
	registry *provider.Registry,
	emitter Emitter,
	audit Auditor,
	cfg config.InvitesConfig,
) *InviteService {
	return &InviteService{
		invites:      invites,
		threads:      threads,
		participants: participants,
		registry:     registry,
		emitter:      emitter,
		audit:        auditorOrNoop(audit),
		cfg:          cfg,
	}
}

// CreateInviteInput describes a new invite. MaxUse 0 is unlimited; a nil
// Expires never expires.
type CreateInviteInput struct {
	MaxUse  int
	Expires *time.Time
}

func (s *InviteService) gate(thread models.Thread, actor *models.Participant) error {
	if !s.cfg.Enabled {
		return ErrFeatureDisabled
	}
	if err := check(actor, thread, permissions.ManageInvites); err != nil {
		return err
	}
	if !thread.Invitations {
		return permissions.ErrForbidden
	}
	return nil
}

// Create stores a new invite while the thread is under its invite limit.
func (s *InviteService) Create(ctx context.Context, thread models.Thread, actor *models.Participant, in CreateInviteInput) (models.Invite, error) {
	if err := s.gate(thread, actor); err != nil {
		return models.Invite{}, err
	}
	errs := ValidationErrors{}
	if in.MaxUse < 0 {
		errs["max_use"] = "min"
	}
	if in.Expires != nil && !in.Expires.After(nowFunc()) {
		errs["expires"] = "future"
	}
	if len(errs) > 0 {
		return models.Invite{}, errs
	}

	invite, err := s.invites.CreateInvite(ctx, models.Invite{
		ThreadID:   thread.ID,
		OwnerAlias: actor.OwnerAlias,
		OwnerID:    actor.OwnerID,
		Code:       newInviteCode(),
		MaxUse:     in.MaxUse,
		ExpiresAt:  in.Expires,
	}, s.cfg.MaxPerThread)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteLimit) || errors.Is(err, repositories.ErrConflict) {
			return models.Invite{}, err
		}
		return models.Invite{}, fmt.Errorf("create invite: %w", err)
	}
	return invite, nil
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength])
}

// List returns the thread's active invites.
func (s *InviteService) List(ctx context.Context, thread models.Thread, actor *models.Participant) ([]models.Invite, error) {
	if err := s.gate(thread, actor); err != nil {
		return nil, err
	}
	return s.invites.ListInvites(ctx, thread.ID)
}

// Archive revokes an invite of the thread.
func (s *InviteService) Archive(ctx context.Context, thread models.Thread, actor *models.Participant, inviteID string) error {
	if !s.cfg.Enabled {
		return ErrFeatureDisabled
	}
	if err := check(actor, thread, permissions.ManageInvites); err != nil {
		return err
	}
	invite, err := s.invites.GetInvite(ctx, thread.ID, inviteID)
	if err != nil {
		return err
	}
	return s.invites.ArchiveInvite(ctx, invite.ID)
}

// Preview resolves an active invite code to its thread.
func (s *InviteService) Preview(ctx context.Context, code string) (models.Invite, models.Thread, error) {
	if !s.cfg.Enabled {
		return models.Invite{}, models.Thread{}, ErrFeatureDisabled
	}
	invite, err := s.invites.GetInviteByCode(ctx, code)
	if err != nil {
		return models.Invite{}, models.Thread{}, err
	}
	if !invite.Active(nowFunc()) {
		return models.Invite{}, models.Thread{}, repositories.ErrInviteInactive
	}
	thread, err := s.threads.GetThread(ctx, invite.ThreadID)
	if err != nil {
		return models.Invite{}, models.Thread{}, err
	}
	return invite, thread, nil
}

// Join adds joiner to the invite's thread.
func (s *InviteService) Join(ctx context.Context, code string, joiner models.ProviderRef) (models.Participant, error) {
	invite, thread, err := s.Preview(ctx, code)
	if err != nil {
		return models.Participant{}, err
	}
	if !thread.IsGroup() || thread.Locked || !thread.Invitations {
		return models.Participant{}, permissions.ErrForbidden
	}
	if !s.registry.Known(joiner.Alias) {
		return models.Participant{}, ErrCannotInteract
	}
	if _, err := s.participants.GetParticipant(ctx, thread.ID, joiner); err == nil {
		return models.Participant{}, repositories.ErrParticipantExists
	} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
		return models.Participant{}, err
	}

	system := systemMessage(thread.ID, joiner, models.MessageJoinedWithInvite, invite.Code)
	joined, err := s.invites.RedeemInvite(ctx, invite.ID, models.NewParticipant(thread.ID, joiner), system)
	if err != nil {
		return models.Participant{}, fmt.Errorf("redeem invite: %w", err)
	}

	s.audit.Emit(ctx, "INFO", "joined with invite", requestIDFrom(ctx), &joiner, thread.ID)
	announce(ctx, s.emitter, s.participants, thread.ID, joiner, models.EventParticipantAdded, participantPayload(joined))
	return joined, nil
}

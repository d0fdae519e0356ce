package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"messenger-service/internal/brokers"
	"messenger-service/internal/config"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
)

const maxSubjectLength = 255

// ThreadService manages thread lifecycle, settings and membership.
type ThreadService struct {
	threads      repositories.ThreadRepository
	participants repositories.ParticipantRepository
	providers    repositories.ProviderRepository
	registry     *provider.Registry
	resolver     *ParticipantResolver
	pipeline     *MessagePipeline
	emitter      Emitter
	audit        Auditor
	cfg          config.Config
}

// NewThreadService constructs a ThreadService. audit may be nil.
func NewThreadService(
	threads repositories.ThreadRepository,
	participants repositories.ParticipantRepository,
	providers repositories.ProviderRepository,
	registry *provider.Registry,
	resolver *ParticipantResolver,
	pipeline *MessagePipeline,
	emitter Emitter,
	audit Auditor,
	cfg config.Config,
) *ThreadService {
	return &ThreadService{
		threads:      threads,
		participants: participants,
		providers:    providers,
		registry:     registry,
		resolver:     resolver,
		pipeline:     pipeline,
		emitter:      emitter,
		audit:        auditorOrNoop(audit),
		cfg:          cfg,
	}
}

// Load fetches the thread and the requester's membership. The participant
// is nil, without error, when the requester is not a member.
func (s *ThreadService) Load(ctx context.Context, threadID string, requester models.ProviderRef) (models.Thread, *models.Participant, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return models.Thread{}, nil, err
	}
	p, err := s.participants.GetParticipant(ctx, thread.ID, requester)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return thread, nil, nil
	}
	if err != nil {
		return models.Thread{}, nil, err
	}
	return thread, &p, nil
}

// Get returns a thread the requester participates in.
func (s *ThreadService) Get(ctx context.Context, threadID string, requester models.ProviderRef) (models.Thread, *models.Participant, error) {
	thread, p, err := s.Load(ctx, threadID, requester)
	if err != nil {
		return models.Thread{}, nil, err
	}
	if err := check(p, thread, permissions.Read); err != nil {
		return models.Thread{}, nil, err
	}
	return thread, p, nil
}

// List pages the requester's threads by last activity.
func (s *ThreadService) List(ctx context.Context, requester models.ProviderRef, before *time.Time) ([]models.Thread, error) {
	limit := s.cfg.Collections.ThreadsIndexCount
	if before != nil {
		limit = s.cfg.Collections.ThreadsPageCount
	}
	return s.threads.ListThreadsForProvider(ctx, requester, before, limit)
}

// CreatePrivate opens a two-party thread, or returns the live one that
// already exists, and optionally sends a first message. created reports
// whether a new thread was stored.
func (s *ThreadService) CreatePrivate(ctx context.Context, requester, recipient models.ProviderRef, first *SendMessageInput) (thread models.Thread, created bool, err error) {
	if err := ValidateProviderRefs("recipient", []models.ProviderRef{recipient}); err != nil {
		return models.Thread{}, false, err
	}
	if requester == recipient {
		return models.Thread{}, false, invalid("recipient", "self")
	}
	if !s.registry.CanMessage(requester.Alias, recipient.Alias) {
		return models.Thread{}, false, ErrCannotInteract
	}
	if _, err := s.providers.FindProvider(ctx, recipient); err != nil {
		return models.Thread{}, false, err
	}

	thread, created, err = s.threads.OpenPrivateThread(ctx, models.Thread{
		Kind:            models.ThreadPrivate,
		AddParticipants: false,
		Invitations:     false,
		Calling:         true,
		Messaging:       true,
	}, privateParticipant(requester), privateParticipant(recipient))
	if err != nil {
		return models.Thread{}, false, fmt.Errorf("open private thread: %w", err)
	}

	if first != nil {
		sender, err := s.participants.GetParticipant(ctx, thread.ID, requester)
		if err != nil {
			return models.Thread{}, false, err
		}
		if _, err := s.pipeline.Send(ctx, thread, &sender, *first); err != nil {
			return thread, created, err
		}
	}
	return thread, created, nil
}

func privateParticipant(owner models.ProviderRef) models.Participant {
	p := models.NewParticipant("", owner)
	p.StartCalls = true
	return p
}

// CreateGroup stores a group with requester as admin. Candidates pass the
// same eligibility rules as later additions; ineligible ones are skipped.
func (s *ThreadService) CreateGroup(ctx context.Context, requester models.ProviderRef, subject string, candidates []models.ProviderRef) (models.Thread, []models.Participant, error) {
	subject = strings.TrimSpace(subject)
	errs := ValidationErrors{}
	if subject == "" {
		errs["subject"] = "required"
	} else if len(subject) > maxSubjectLength {
		errs["subject"] = "max"
	}
	if err := ValidateProviderRefs("providers", candidates); err != nil {
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			return models.Thread{}, nil, err
		}
		for k, v := range verrs {
			errs[k] = v
		}
	}
	if len(errs) > 0 {
		return models.Thread{}, nil, errs
	}

	eligible, err := s.resolver.Eligible(ctx, "", requester, candidates)
	if err != nil {
		return models.Thread{}, nil, err
	}
	members := []models.Participant{models.NewAdmin("", requester)}
	for _, ref := range eligible {
		members = append(members, models.NewParticipant("", ref))
	}

	thread, participants, err := s.threads.CreateThread(ctx, models.Thread{
		Kind:            models.ThreadGroup,
		Subject:         subject,
		AddParticipants: true,
		Invitations:     true,
		Calling:         true,
		Messaging:       true,
	}, members, systemMessage("", requester, models.MessageGroupCreated, subject))
	if err != nil {
		return models.Thread{}, nil, fmt.Errorf("create group: %w", err)
	}

	s.audit.Emit(ctx, "INFO", "group created", requestIDFrom(ctx), &requester, thread.ID)
	for _, p := range participants {
		if p.Owner() == requester {
			continue
		}
		s.emitter.Emit(ctx, brokers.Event{
			Name:     models.EventParticipantAdded,
			ThreadID: thread.ID,
			Audience: brokers.Audience{p.Owner()},
			Payload:  participantPayload(p),
		})
	}
	return thread, participants, nil
}

// AddParticipants runs candidates through the participant resolver.
func (s *ThreadService) AddParticipants(ctx context.Context, thread models.Thread, requester *models.Participant, candidates []models.ProviderRef) ([]models.Participant, error) {
	if len(candidates) == 0 {
		return nil, invalid("providers", "required")
	}
	if err := ValidateProviderRefs("providers", candidates); err != nil {
		return nil, err
	}
	return s.resolver.ResolveAdditions(ctx, thread, requester, candidates)
}

// Participants lists the members of a thread.
func (s *ThreadService) Participants(ctx context.Context, thread models.Thread, reader *models.Participant) ([]models.Participant, error) {
	if err := check(reader, thread, permissions.Read); err != nil {
		return nil, err
	}
	return s.participants.ListParticipants(ctx, thread.ID, s.cfg.Collections.ParticipantsIndexCount)
}

// UpdateSettings applies a partial settings change to a group.
func (s *ThreadService) UpdateSettings(ctx context.Context, thread models.Thread, actor *models.Participant, settings models.ThreadSettings) (models.Thread, error) {
	if err := check(actor, thread, permissions.ManageSettings); err != nil {
		return models.Thread{}, err
	}
	var system *models.Message
	if settings.Subject != nil {
		subject := strings.TrimSpace(*settings.Subject)
		if subject == "" {
			return models.Thread{}, invalid("subject", "required")
		}
		if len(subject) > maxSubjectLength {
			return models.Thread{}, invalid("subject", "max")
		}
		settings.Subject = &subject
		if subject != thread.Subject {
			system = systemMessage(thread.ID, actor.Owner(), models.MessageGroupRenamed, subject)
		}
	}

	settings.Apply(&thread)
	updated, err := s.threads.UpdateThread(ctx, thread, system)
	if err != nil {
		return models.Thread{}, fmt.Errorf("update thread: %w", err)
	}
	announce(ctx, s.emitter, s.participants, updated.ID, actor.Owner(), models.EventThreadSettings, threadPayload(updated), brokers.Broadcasting)
	return updated, nil
}

// SetLocked locks or unlocks a group. A locked thread is read only.
func (s *ThreadService) SetLocked(ctx context.Context, thread models.Thread, actor *models.Participant, locked bool) (models.Thread, error) {
	if err := check(actor, thread, permissions.ToggleLock); err != nil {
		return models.Thread{}, err
	}
	if thread.Locked == locked {
		return thread, nil
	}
	thread.Locked = locked
	updated, err := s.threads.UpdateThread(ctx, thread, nil)
	if err != nil {
		return models.Thread{}, fmt.Errorf("update thread: %w", err)
	}
	announce(ctx, s.emitter, s.participants, updated.ID, actor.Owner(), models.EventThreadSettings, threadPayload(updated), brokers.Broadcasting)
	return updated, nil
}

// Archive soft deletes a thread. Either party may archive a private
// thread; groups need settings rights.
func (s *ThreadService) Archive(ctx context.Context, thread models.Thread, actor *models.Participant) error {
	if thread.IsPrivate() {
		if err := check(actor, thread, permissions.Read); err != nil {
			return err
		}
		if thread.Locked {
			return permissions.ErrForbidden
		}
	} else if err := check(actor, thread, permissions.ManageSettings); err != nil {
		return err
	}
	members, err := audience(ctx, s.participants, thread.ID, actor.Owner())
	if err != nil {
		return err
	}
	if err := s.threads.ArchiveThread(ctx, thread.ID); err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}
	owner := actor.Owner()
	s.audit.Emit(ctx, "INFO", "thread archived", requestIDFrom(ctx), &owner, thread.ID)
	s.emitter.Emit(ctx, brokers.Event{
		Name:     models.EventThreadArchived,
		ThreadID: thread.ID,
		Audience: members,
		Payload:  map[string]any{"thread_id": thread.ID},
	})
	return nil
}

// RemoveParticipant removes another member from a group.
func (s *ThreadService) RemoveParticipant(ctx context.Context, thread models.Thread, actor *models.Participant, participantID string) error {
	if err := check(actor, thread, permissions.ManageParticipants); err != nil {
		return err
	}
	target, err := s.participants.GetParticipantByID(ctx, thread.ID, participantID)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return permissions.ErrForbidden
	}
	return s.remove(ctx, thread, actor.Owner(), target, models.MessageParticipantRemoved)
}

// Leave removes the actor from a group. The last admin cannot leave while
// other members remain.
func (s *ThreadService) Leave(ctx context.Context, thread models.Thread, actor *models.Participant) error {
	if err := check(actor, thread, permissions.Read); err != nil {
		return err
	}
	if !thread.IsGroup() || thread.Locked {
		return permissions.ErrForbidden
	}
	if actor.Admin {
		members, err := s.participants.ListParticipants(ctx, thread.ID, 0)
		if err != nil {
			return err
		}
		if len(members) > 1 && countAdmins(members) == 1 {
			return ErrLastAdmin
		}
	}
	return s.remove(ctx, thread, actor.Owner(), *actor, models.MessageParticipantLeft)
}

func (s *ThreadService) remove(ctx context.Context, thread models.Thread, actor models.ProviderRef, target models.Participant, kind models.MessageType) error {
	members, err := audience(ctx, s.participants, thread.ID, actor)
	if err != nil {
		return err
	}
	system := systemMessage(thread.ID, actor, kind, target.Owner().String())
	if err := s.participants.RemoveParticipant(ctx, target, system); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	s.emitter.Emit(ctx, brokers.Event{
		Name:     models.EventParticipantRemoved,
		ThreadID: thread.ID,
		Audience: members,
		Payload:  participantPayload(target),
	})
	return nil
}

// Promote grants admin rights to a member.
func (s *ThreadService) Promote(ctx context.Context, thread models.Thread, actor *models.Participant, participantID string) (models.Participant, error) {
	if err := check(actor, thread, permissions.ManageParticipants); err != nil {
		return models.Participant{}, err
	}
	target, err := s.participants.GetParticipantByID(ctx, thread.ID, participantID)
	if err != nil {
		return models.Participant{}, err
	}
	if target.Admin {
		return target, nil
	}
	promoted := models.NewAdmin(thread.ID, target.Owner())
	promoted.ID = target.ID
	return s.updateRole(ctx, thread, actor.Owner(), promoted, models.MessagePromotedAdmin, models.EventPromotedAdmin)
}

// Demote revokes admin rights. The last admin of a group cannot be
// demoted.
func (s *ThreadService) Demote(ctx context.Context, thread models.Thread, actor *models.Participant, participantID string) (models.Participant, error) {
	if err := check(actor, thread, permissions.ManageParticipants); err != nil {
		return models.Participant{}, err
	}
	target, err := s.participants.GetParticipantByID(ctx, thread.ID, participantID)
	if err != nil {
		return models.Participant{}, err
	}
	if !target.Admin {
		return target, nil
	}
	members, err := s.participants.ListParticipants(ctx, thread.ID, 0)
	if err != nil {
		return models.Participant{}, err
	}
	if countAdmins(members) <= 1 {
		return models.Participant{}, ErrLastAdmin
	}
	demoted := models.NewParticipant(thread.ID, target.Owner())
	demoted.ID = target.ID
	return s.updateRole(ctx, thread, actor.Owner(), demoted, models.MessageDemotedAdmin, models.EventDemotedAdmin)
}

func (s *ThreadService) updateRole(ctx context.Context, thread models.Thread, actor models.ProviderRef, target models.Participant, kind models.MessageType, event string) (models.Participant, error) {
	system := systemMessage(thread.ID, actor, kind, target.Owner().String())
	updated, err := s.participants.UpdateParticipant(ctx, target, system)
	if err != nil {
		return models.Participant{}, fmt.Errorf("update participant: %w", err)
	}
	announce(ctx, s.emitter, s.participants, thread.ID, actor, event, participantPayload(updated))
	return updated, nil
}

// UpdatePermissions changes the overrides of a non-admin member.
func (s *ThreadService) UpdatePermissions(ctx context.Context, thread models.Thread, actor *models.Participant, participantID string, perms models.ParticipantPermissions) (models.Participant, error) {
	if err := check(actor, thread, permissions.ManageParticipants); err != nil {
		return models.Participant{}, err
	}
	target, err := s.participants.GetParticipantByID(ctx, thread.ID, participantID)
	if err != nil {
		return models.Participant{}, err
	}
	if target.Admin {
		return target, nil
	}
	perms.Apply(&target)
	updated, err := s.participants.UpdateParticipant(ctx, target, nil)
	if err != nil {
		return models.Participant{}, fmt.Errorf("update participant: %w", err)
	}
	return updated, nil
}

func countAdmins(ps []models.Participant) int {
	n := 0
	for _, p := range ps {
		if p.Admin {
			n++
		}
	}
	return n
}

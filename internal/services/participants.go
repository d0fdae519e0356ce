package services

import (
	"context"
	"fmt"
	"strings"

	"messenger-service/internal/brokers"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
)

// ParticipantResolver filters candidate providers down to those that may
// join a thread and adds them in one transaction.
type ParticipantResolver struct {
	providers         repositories.ProviderRepository
	participants      repositories.ParticipantRepository
	friends           repositories.FriendRepository
	registry          *provider.Registry
	emitter           Emitter
	requireFriendship bool
}

// NewParticipantResolver constructs a ParticipantResolver.
func NewParticipantResolver(
	providers repositories.ProviderRepository,
	participants repositories.ParticipantRepository,
	friends repositories.FriendRepository,
	registry *provider.Registry,
	emitter Emitter,
	requireFriendship bool,
) *ParticipantResolver {
	return &ParticipantResolver{
		providers:         providers,
		participants:      participants,
		friends:           friends,
		registry:          registry,
		emitter:           emitter,
		requireFriendship: requireFriendship,
	}
}

// ResolveAdditions adds the eligible candidates to thread. Ineligible
// candidates are skipped silently; an empty result is a success.
func (r *ParticipantResolver) ResolveAdditions(ctx context.Context, thread models.Thread, requester *models.Participant, candidates []models.ProviderRef) ([]models.Participant, error) {
	if err := check(requester, thread, permissions.AddParticipants); err != nil {
		return nil, err
	}

	eligible, err := r.Eligible(ctx, thread.ID, requester.Owner(), candidates)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return []models.Participant{}, nil
	}

	batch := make([]models.Participant, 0, len(eligible))
	for _, ref := range eligible {
		batch = append(batch, models.NewParticipant(thread.ID, ref))
	}
	system := systemMessage(thread.ID, requester.Owner(), models.MessageParticipantsAdded, refList(eligible))
	added, err := r.participants.AddParticipants(ctx, thread.ID, batch, system)
	if err != nil {
		return nil, fmt.Errorf("add participants: %w", err)
	}

	r.announceAdded(ctx, thread.ID, requester.Owner(), added)
	return added, nil
}

// Eligible applies the candidate rules in order and keeps input order:
// known alias with an existing provider row, not the requester, not a
// duplicate, not already a participant, messageable from the requester's
// alias and, when friend gating applies, a mutual friend. threadID may be
// empty for a thread that does not exist yet.
func (r *ParticipantResolver) Eligible(ctx context.Context, threadID string, requester models.ProviderRef, candidates []models.ProviderRef) ([]models.ProviderRef, error) {
	seen := map[models.ProviderRef]bool{requester: true}
	shaped := make([]models.ProviderRef, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] || !r.registry.Known(c.Alias) {
			continue
		}
		seen[c] = true
		shaped = append(shaped, c)
	}
	if len(shaped) == 0 {
		return nil, nil
	}

	records, err := r.providers.FindProviders(ctx, shaped)
	if err != nil {
		return nil, fmt.Errorf("find providers: %w", err)
	}
	found := refSet(nil)
	for _, rec := range records {
		found[rec.Ref()] = true
	}

	existing := refSet(nil)
	if threadID != "" {
		owners, err := r.participants.ExistingOwners(ctx, threadID, shaped)
		if err != nil {
			return nil, fmt.Errorf("existing participants: %w", err)
		}
		existing = refSet(owners)
	}

	out := make([]models.ProviderRef, 0, len(shaped))
	for _, c := range shaped {
		if !found[c] || existing[c] || !r.registry.CanMessage(requester.Alias, c.Alias) {
			continue
		}
		out = append(out, c)
	}

	if len(out) > 0 && r.requireFriendship && r.registry.IsFriendable(requester.Alias) {
		mutual, err := r.friends.MutualFriends(ctx, requester, out)
		if err != nil {
			return nil, fmt.Errorf("mutual friends: %w", err)
		}
		friends := refSet(mutual)
		filtered := make([]models.ProviderRef, 0, len(out))
		for _, c := range out {
			if friends[c] {
				filtered = append(filtered, c)
			}
		}
		out = filtered
	}
	return out, nil
}

func (r *ParticipantResolver) announceAdded(ctx context.Context, threadID string, actor models.ProviderRef, added []models.Participant) {
	members, err := audience(ctx, r.participants, threadID, actor)
	if err != nil {
		// the additions are committed; fall back to notifying the new members
		members = brokers.AudienceOf(added)
	}
	for _, p := range added {
		r.emitter.Emit(ctx, brokers.Event{
			Name:     models.EventParticipantAdded,
			ThreadID: threadID,
			Audience: members,
			Payload:  participantPayload(p),
		})
	}
}

func refSet(refs []models.ProviderRef) map[models.ProviderRef]bool {
	set := make(map[models.ProviderRef]bool, len(refs))
	for _, ref := range refs {
		set[ref] = true
	}
	return set
}

func refList(refs []models.ProviderRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.String())
	}
	return strings.Join(parts, ",")
}

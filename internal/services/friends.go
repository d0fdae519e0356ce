package services

import (
	"context"
	"fmt"

	"messenger-service/internal/brokers"
	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
)

// FriendService manages the directed friendship graph and friend
// requests.
type FriendService struct {
	friends   repositories.FriendRepository
	providers repositories.ProviderRepository
	registry  *provider.Registry
	emitter   Emitter
}

// NewFriendService constructs a FriendService.
func NewFriendService(friends repositories.FriendRepository, providers repositories.ProviderRepository, registry *provider.Registry, emitter Emitter) *FriendService {
	return &FriendService{friends: friends, providers: providers, registry: registry, emitter: emitter}
}

// AreFriends is true only when both a -> b and b -> a exist.
func (s *FriendService) AreFriends(ctx context.Context, a, b models.ProviderRef) (bool, error) {
	return s.friends.AreFriends(ctx, a, b)
}

// List returns the owner's friends.
func (s *FriendService) List(ctx context.Context, owner models.ProviderRef) ([]models.Friend, error) {
	return s.friends.ListFriends(ctx, owner, 0)
}

// Show returns an edge owned by owner. Other providers are forbidden even
// when they are the party of the edge.
func (s *FriendService) Show(ctx context.Context, owner models.ProviderRef, friendID string) (models.Friend, error) {
	f, err := s.friends.GetFriend(ctx, friendID)
	if err != nil {
		return models.Friend{}, err
	}
	if f.Owner() != owner {
		return models.Friend{}, permissions.ErrForbidden
	}
	return f, nil
}

// Remove deletes an owned edge together with its inverse.
func (s *FriendService) Remove(ctx context.Context, owner models.ProviderRef, friendID string) error {
	f, err := s.Show(ctx, owner, friendID)
	if err != nil {
		return err
	}
	if err := s.friends.RemoveFriendship(ctx, f); err != nil {
		return fmt.Errorf("remove friendship: %w", err)
	}
	s.notify(ctx, models.EventFriendRemoved, f.Party(), map[string]any{
		"owner_type": f.OwnerAlias,
		"owner_id":   f.OwnerID,
	})
	return nil
}

// SendRequest creates a pending request from sender to recipient.
func (s *FriendService) SendRequest(ctx context.Context, sender, recipient models.ProviderRef) (models.PendingFriend, error) {
	if err := ValidateProviderRefs("recipient", []models.ProviderRef{recipient}); err != nil {
		return models.PendingFriend{}, err
	}
	if sender == recipient {
		return models.PendingFriend{}, invalid("recipient", "self")
	}
	if !s.registry.CanFriend(sender.Alias, recipient.Alias) {
		return models.PendingFriend{}, ErrCannotInteract
	}
	if _, err := s.providers.FindProvider(ctx, recipient); err != nil {
		return models.PendingFriend{}, err
	}
	exists, err := s.friends.RelationExists(ctx, sender, recipient)
	if err != nil {
		return models.PendingFriend{}, err
	}
	if exists {
		return models.PendingFriend{}, repositories.ErrFriendExists
	}

	pending, err := s.friends.CreatePending(ctx, sender, recipient)
	if err != nil {
		return models.PendingFriend{}, fmt.Errorf("create friend request: %w", err)
	}
	s.notify(ctx, models.EventFriendRequest, recipient, map[string]any{
		"id":          pending.ID,
		"sender_type": sender.Alias,
		"sender_id":   sender.ID,
	})
	return pending, nil
}

// AcceptRequest turns a request addressed to recipient into a mutual
// friendship and returns the recipient's edge.
func (s *FriendService) AcceptRequest(ctx context.Context, recipient models.ProviderRef, pendingID string) (models.Friend, error) {
	pending, err := s.friends.GetPending(ctx, pendingID)
	if err != nil {
		return models.Friend{}, err
	}
	if pending.Recipient() != recipient {
		return models.Friend{}, permissions.ErrForbidden
	}
	edge, err := s.friends.AcceptRequest(ctx, pending)
	if err != nil {
		return models.Friend{}, fmt.Errorf("accept friend request: %w", err)
	}
	s.notify(ctx, models.EventFriendApproved, pending.Sender(), map[string]any{
		"party_type": recipient.Alias,
		"party_id":   recipient.ID,
	})
	return edge, nil
}

// DenyRequest drops a request addressed to recipient.
func (s *FriendService) DenyRequest(ctx context.Context, recipient models.ProviderRef, pendingID string) error {
	pending, err := s.friends.GetPending(ctx, pendingID)
	if err != nil {
		return err
	}
	if pending.Recipient() != recipient {
		return permissions.ErrForbidden
	}
	return s.friends.DeletePending(ctx, pending.ID)
}

// CancelRequest withdraws a request sent by sender.
func (s *FriendService) CancelRequest(ctx context.Context, sender models.ProviderRef, pendingID string) error {
	pending, err := s.friends.GetPending(ctx, pendingID)
	if err != nil {
		return err
	}
	if pending.Sender() != sender {
		return permissions.ErrForbidden
	}
	return s.friends.DeletePending(ctx, pending.ID)
}

// Pending lists requests waiting on recipient.
func (s *FriendService) Pending(ctx context.Context, recipient models.ProviderRef) ([]models.PendingFriend, error) {
	return s.friends.ListPending(ctx, recipient)
}

// Sent lists requests sender is waiting on.
func (s *FriendService) Sent(ctx context.Context, sender models.ProviderRef) ([]models.PendingFriend, error) {
	return s.friends.ListSent(ctx, sender)
}

func (s *FriendService) notify(ctx context.Context, event string, to models.ProviderRef, payload map[string]any) {
	s.emitter.Emit(ctx, brokers.Event{
		Name:     event,
		ThreadID: to.String(),
		Audience: brokers.Audience{to},
		Payload:  payload,
	})
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

func friendEdge(id string, owner, party models.ProviderRef) models.Friend {
	return models.Friend{ID: id, OwnerAlias: owner.Alias, OwnerID: owner.ID, PartyAlias: party.Alias, PartyID: party.ID}
}

func (f *fixture) friendService() *FriendService {
	return NewFriendService(f.friends, f.providers, f.registry, f.emitter)
}

func TestFriendEdgeVisibleOnlyToOwner(t *testing.T) {
	f := newFixture()
	f.friends.On("GetFriend", mock.Anything, "e1").Return(friendEdge("e1", alice, bob), nil)

	edge, err := f.friendService().Show(context.Background(), alice, "e1")
	require.NoError(t, err)
	assert.Equal(t, bob, edge.Party())

	_, err = f.friendService().Show(context.Background(), bob, "e1")
	assert.ErrorIs(t, err, permissions.ErrForbidden)

	err = f.friendService().Remove(context.Background(), bob, "e1")
	assert.ErrorIs(t, err, permissions.ErrForbidden)
	f.friends.AssertNotCalled(t, "RemoveFriendship", mock.Anything, mock.Anything)
}

func TestRemoveFriendNotifiesParty(t *testing.T) {
	f := newFixture()
	edge := friendEdge("e1", alice, bob)
	f.friends.On("GetFriend", mock.Anything, "e1").Return(edge, nil)
	f.friends.On("RemoveFriendship", mock.Anything, edge).Return(nil)

	require.NoError(t, f.friendService().Remove(context.Background(), alice, "e1"))
	events := f.emitter.Named(models.EventFriendRemoved)
	require.Len(t, events, 1)
	assert.Equal(t, []models.ProviderRef{bob}, []models.ProviderRef(events[0].Audience))
}

func TestAreFriendsDelegatesToBothEdges(t *testing.T) {
	f := newFixture()
	f.friends.On("AreFriends", mock.Anything, alice, bob).Return(false, nil)

	ok, err := f.friendService().AreFriends(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendFriendRequest(t *testing.T) {
	f := newFixture()
	f.providers.On("FindProvider", mock.Anything, bob).Return(records(bob)[0], nil)
	f.friends.On("RelationExists", mock.Anything, alice, bob).Return(false, nil)
	f.friends.On("CreatePending", mock.Anything, alice, bob).Return(models.PendingFriend{
		ID: "r1", SenderAlias: "user", SenderID: "1", RecipientAlias: "user", RecipientID: "2",
	}, nil)

	pending, err := f.friendService().SendRequest(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.Equal(t, "r1", pending.ID)
	events := f.emitter.Named(models.EventFriendRequest)
	require.Len(t, events, 1)
	assert.Equal(t, []models.ProviderRef{bob}, []models.ProviderRef(events[0].Audience))
}

func TestSendFriendRequestRules(t *testing.T) {
	f := newFixture()

	_, err := f.friendService().SendRequest(context.Background(), alice, alice)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = f.friendService().SendRequest(context.Background(), alice, acme)
	assert.ErrorIs(t, err, ErrCannotInteract)

	f.providers.On("FindProvider", mock.Anything, bob).Return(records(bob)[0], nil)
	f.friends.On("RelationExists", mock.Anything, alice, bob).Return(true, nil)
	_, err = f.friendService().SendRequest(context.Background(), alice, bob)
	assert.ErrorIs(t, err, repositories.ErrFriendExists)
}

func TestAcceptFriendRequestOnlyByRecipient(t *testing.T) {
	f := newFixture()
	pending := models.PendingFriend{ID: "r1", SenderAlias: "user", SenderID: "1", RecipientAlias: "user", RecipientID: "2"}
	f.friends.On("GetPending", mock.Anything, "r1").Return(pending, nil)

	_, err := f.friendService().AcceptRequest(context.Background(), alice, "r1")
	assert.ErrorIs(t, err, permissions.ErrForbidden)

	f.friends.On("AcceptRequest", mock.Anything, pending).Return(friendEdge("e2", bob, alice), nil)
	edge, err := f.friendService().AcceptRequest(context.Background(), bob, "r1")
	require.NoError(t, err)
	assert.Equal(t, bob, edge.Owner())

	events := f.emitter.Named(models.EventFriendApproved)
	require.Len(t, events, 1)
	assert.Equal(t, []models.ProviderRef{alice}, []models.ProviderRef(events[0].Audience))
}

func TestCancelAndDenyFriendRequest(t *testing.T) {
	f := newFixture()
	pending := models.PendingFriend{ID: "r1", SenderAlias: "user", SenderID: "1", RecipientAlias: "user", RecipientID: "2"}
	f.friends.On("GetPending", mock.Anything, "r1").Return(pending, nil)
	f.friends.On("DeletePending", mock.Anything, "r1").Return(nil)

	assert.ErrorIs(t, f.friendService().CancelRequest(context.Background(), bob, "r1"), permissions.ErrForbidden)
	assert.ErrorIs(t, f.friendService().DenyRequest(context.Background(), alice, "r1"), permissions.ErrForbidden)
	require.NoError(t, f.friendService().CancelRequest(context.Background(), alice, "r1"))
	require.NoError(t, f.friendService().DenyRequest(context.Background(), bob, "r1"))
	f.friends.AssertNumberOfCalls(t, "DeletePending", 2)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
)

func TestSendLockedThreadForbiddenButReadable(t *testing.T) {
	f := newFixture()
	thread := groupThread("t1")
	thread.Locked = true
	sender := admin("p1", "t1", alice)

	_, err := f.pipeline().Send(context.Background(), thread, sender, SendMessageInput{Type: models.MessageText, Body: "hi"})
	assert.ErrorIs(t, err, permissions.ErrForbidden)
	f.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)

	f.messages.On("ListMessages", mock.Anything, "t1", "", 40).Return([]models.Message{{ID: "m1"}}, nil)
	msgs, err := f.pipeline().List(context.Background(), thread, sender, "")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSendStoresDanglingReplyVerbatim(t *testing.T) {
	f := newFixture()
	thread := privateThread("t1")
	sender := member("p1", "t1", alice)
	sender.StartCalls = true
	dangling := "3f1c7c1e-0000-4000-8000-000000000000"

	f.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.ReplyToID != nil && *m.ReplyToID == dangling && m.Body == "hi" && m.Owner() == alice
	})).Return(models.Message{ID: "m2", ThreadID: "t1", OwnerAlias: "user", OwnerID: "1", Body: "hi", ReplyToID: &dangling}, nil)
	f.messages.On("GetMessage", mock.Anything, "t1", dangling).Return(models.Message{}, repositories.ErrMessageNotFound)
	f.expectMembers("t1", *sender, *member("p2", "t1", bob))

	msg, err := f.pipeline().Send(context.Background(), thread, sender, SendMessageInput{
		Type:        models.MessageText,
		Body:        "  hi ",
		ReplyToID:   &dangling,
		TemporaryID: "tmp-1",
	})
	require.NoError(t, err)
	require.NotNil(t, msg.ReplyToID)
	assert.Equal(t, dangling, *msg.ReplyToID)
	assert.Nil(t, msg.ReplyTo)
	assert.Equal(t, "tmp-1", msg.TemporaryID)

	events := f.emitter.Named(models.EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, []models.ProviderRef{bob}, []models.ProviderRef(events[0].Audience))
	assert.Equal(t, "m2", events[0].Payload["id"])
	assert.Equal(t, dangling, events[0].Payload["reply_to_id"])
	assert.Equal(t, "tmp-1", events[0].Payload["temporary_id"])
	assert.Contains(t, events[0].Payload, "reply_to")
	assert.Nil(t, events[0].Payload["reply_to"])
}

func TestSendResolvesReplyInThread(t *testing.T) {
	f := newFixture()
	sender := member("p1", "t1", alice)
	targetID := "3f1c7c1e-0000-4000-8000-000000000001"
	earlier := "3f1c7c1e-0000-4000-8000-000000000002"
	target := models.Message{ID: targetID, ThreadID: "t1", OwnerAlias: "user", OwnerID: "2", Body: "first", ReplyToID: &earlier, ReplyTo: &models.Message{ID: earlier}}

	f.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(models.Message{ID: "m3", ThreadID: "t1", OwnerAlias: "user", OwnerID: "1", Body: "reply", ReplyToID: &targetID}, nil)
	f.messages.On("GetMessage", mock.Anything, "t1", targetID).Return(target, nil).Once()
	f.expectMembers("t1", *sender, *member("p2", "t1", bob))

	msg, err := f.pipeline().Send(context.Background(), privateThread("t1"), sender, SendMessageInput{
		Type:      models.MessageText,
		Body:      "reply",
		ReplyToID: &targetID,
	})
	require.NoError(t, err)
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, targetID, msg.ReplyTo.ID)
	assert.Equal(t, "first", msg.ReplyTo.Body)
	assert.Nil(t, msg.ReplyTo.ReplyTo)

	events := f.emitter.Named(models.EventNewMessage)
	require.Len(t, events, 1)
	reply, ok := events[0].Payload["reply_to"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, targetID, reply["id"])
	f.messages.AssertExpectations(t)
}

func TestSendReplyLookupFailureStillSends(t *testing.T) {
	f := newFixture()
	sender := member("p1", "t1", alice)
	targetID := "3f1c7c1e-0000-4000-8000-000000000001"

	f.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(models.Message{ID: "m4", ThreadID: "t1", ReplyToID: &targetID}, nil)
	f.messages.On("GetMessage", mock.Anything, "t1", targetID).Return(models.Message{}, errors.New("db down"))
	f.expectMembers("t1", *sender)

	msg, err := f.pipeline().Send(context.Background(), privateThread("t1"), sender, SendMessageInput{Type: models.MessageText, Body: "reply", ReplyToID: &targetID})
	require.NoError(t, err)
	assert.Equal(t, "m4", msg.ID)
	assert.Nil(t, msg.ReplyTo)
}

func TestSendSurvivesAudienceFailure(t *testing.T) {
	f := newFixture()
	sender := admin("p1", "t1", alice)
	f.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(models.Message{ID: "m1", ThreadID: "t1"}, nil)
	f.participants.On("ListParticipants", mock.Anything, "t1", 0).Return(nil, errors.New("db down"))

	_, err := f.pipeline().Send(context.Background(), groupThread("t1"), sender, SendMessageInput{Type: models.MessageText, Body: "hi"})
	require.NoError(t, err)
	assert.Empty(t, f.emitter.Events)
}

func TestSendMessagingToggleBlocksMembers(t *testing.T) {
	f := newFixture()
	thread := groupThread("t1")
	thread.Messaging = false

	_, err := f.pipeline().Send(context.Background(), thread, member("p2", "t1", bob), SendMessageInput{Type: models.MessageText, Body: "hi"})
	assert.ErrorIs(t, err, permissions.ErrForbidden)
}

func TestSendValidation(t *testing.T) {
	f := newFixture()
	sender := admin("p1", "t1", alice)

	_, err := f.pipeline().Send(context.Background(), groupThread("t1"), sender, SendMessageInput{Type: models.MessageText, Body: "   "})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "required", verrs["message"])

	_, err = f.pipeline().Send(context.Background(), groupThread("t1"), sender, SendMessageInput{Type: models.MessageGroupCreated, Body: "x"})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "unsupported", verrs["type"])
}

func TestSendUploadsDisabled(t *testing.T) {
	f := newFixture()
	f.cfg.Images.Upload = false

	_, err := f.pipeline().Send(context.Background(), groupThread("t1"), admin("p1", "t1", alice), SendMessageInput{Type: models.MessageImage, Body: "img.png"})
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestListUsesPageCountWhenPaging(t *testing.T) {
	f := newFixture()
	f.messages.On("ListMessages", mock.Anything, "t1", "m9", 25).Return([]models.Message{}, nil)

	_, err := f.pipeline().List(context.Background(), groupThread("t1"), member("p2", "t1", bob), "m9")
	require.NoError(t, err)
	f.messages.AssertExpectations(t)
}

func TestListNonMemberForbidden(t *testing.T) {
	f := newFixture()
	_, err := f.pipeline().List(context.Background(), groupThread("t1"), nil, "")
	assert.ErrorIs(t, err, permissions.ErrForbidden)
}

func TestDeleteMessageOwnership(t *testing.T) {
	f := newFixture()
	thread := groupThread("t1")
	f.messages.On("GetMessage", mock.Anything, "t1", "m1").Return(models.Message{ID: "m1", ThreadID: "t1", OwnerAlias: "user", OwnerID: "1"}, nil)

	err := f.pipeline().Delete(context.Background(), thread, member("p2", "t1", bob), "m1")
	assert.ErrorIs(t, err, permissions.ErrForbidden)

	f.messages.On("ArchiveMessage", mock.Anything, "t1", "m1").Return(nil)
	f.expectMembers("t1", *member("p1", "t1", alice), *admin("p3", "t1", doe))
	require.NoError(t, f.pipeline().Delete(context.Background(), thread, admin("p3", "t1", doe), "m1"))

	events := f.emitter.Named(models.EventMessageArchived)
	require.Len(t, events, 1)
	assert.Equal(t, []models.ProviderRef{alice}, []models.ProviderRef(events[0].Audience))
}

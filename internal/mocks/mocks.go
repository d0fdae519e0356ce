package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type ProviderRepositoryMock struct {
	mock.Mock
}

func (m *ProviderRepositoryMock) FindProvider(ctx context.Context, ref models.ProviderRef) (models.ProviderRecord, error) {
	args := m.Called(ctx, ref)
	var rec models.ProviderRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.ProviderRecord)
	}
	return rec, args.Error(1)
}

func (m *ProviderRepositoryMock) FindProviders(ctx context.Context, refs []models.ProviderRef) ([]models.ProviderRecord, error) {
	args := m.Called(ctx, refs)
	var recs []models.ProviderRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.ProviderRecord)
	}
	return recs, args.Error(1)
}

func (m *ProviderRepositoryMock) FindByToken(ctx context.Context, token string) (models.ProviderRecord, error) {
	args := m.Called(ctx, token)
	var rec models.ProviderRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.ProviderRecord)
	}
	return rec, args.Error(1)
}

func (m *ProviderRepositoryMock) Search(ctx context.Context, columns map[string][]string, query string, limit int) ([]models.ProviderRecord, error) {
	args := m.Called(ctx, columns, query, limit)
	var recs []models.ProviderRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.ProviderRecord)
	}
	return recs, args.Error(1)
}

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) CreateThread(ctx context.Context, thread models.Thread, participants []models.Participant, system *models.Message) (models.Thread, []models.Participant, error) {
	args := m.Called(ctx, thread, participants, system)
	var t models.Thread
	if val := args.Get(0); val != nil {
		t = val.(models.Thread)
	}
	var ps []models.Participant
	if val := args.Get(1); val != nil {
		ps = val.([]models.Participant)
	}
	return t, ps, args.Error(2)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID string) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var t models.Thread
	if val := args.Get(0); val != nil {
		t = val.(models.Thread)
	}
	return t, args.Error(1)
}

func (m *ThreadRepositoryMock) OpenPrivateThread(ctx context.Context, thread models.Thread, a, b models.Participant) (models.Thread, bool, error) {
	args := m.Called(ctx, thread, a, b)
	var t models.Thread
	if val := args.Get(0); val != nil {
		t = val.(models.Thread)
	}
	return t, args.Bool(1), args.Error(2)
}

func (m *ThreadRepositoryMock) ListThreadsForProvider(ctx context.Context, provider models.ProviderRef, before *time.Time, limit int) ([]models.Thread, error) {
	args := m.Called(ctx, provider, before, limit)
	var ts []models.Thread
	if val := args.Get(0); val != nil {
		ts = val.([]models.Thread)
	}
	return ts, args.Error(1)
}

func (m *ThreadRepositoryMock) UpdateThread(ctx context.Context, thread models.Thread, system *models.Message) (models.Thread, error) {
	args := m.Called(ctx, thread, system)
	var t models.Thread
	if val := args.Get(0); val != nil {
		t = val.(models.Thread)
	}
	return t, args.Error(1)
}

func (m *ThreadRepositoryMock) ArchiveThread(ctx context.Context, threadID string) error {
	args := m.Called(ctx, threadID)
	return args.Error(0)
}

type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) GetParticipant(ctx context.Context, threadID string, owner models.ProviderRef) (models.Participant, error) {
	args := m.Called(ctx, threadID, owner)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *ParticipantRepositoryMock) GetParticipantByID(ctx context.Context, threadID string, participantID string) (models.Participant, error) {
	args := m.Called(ctx, threadID, participantID)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *ParticipantRepositoryMock) ListParticipants(ctx context.Context, threadID string, limit int) ([]models.Participant, error) {
	args := m.Called(ctx, threadID, limit)
	var ps []models.Participant
	if val := args.Get(0); val != nil {
		ps = val.([]models.Participant)
	}
	return ps, args.Error(1)
}

func (m *ParticipantRepositoryMock) ExistingOwners(ctx context.Context, threadID string, refs []models.ProviderRef) ([]models.ProviderRef, error) {
	args := m.Called(ctx, threadID, refs)
	var out []models.ProviderRef
	if val := args.Get(0); val != nil {
		out = val.([]models.ProviderRef)
	}
	return out, args.Error(1)
}

func (m *ParticipantRepositoryMock) AddParticipants(ctx context.Context, threadID string, participants []models.Participant, system *models.Message) ([]models.Participant, error) {
	args := m.Called(ctx, threadID, participants, system)
	var ps []models.Participant
	if val := args.Get(0); val != nil {
		ps = val.([]models.Participant)
	}
	return ps, args.Error(1)
}

func (m *ParticipantRepositoryMock) UpdateParticipant(ctx context.Context, participant models.Participant, system *models.Message) (models.Participant, error) {
	args := m.Called(ctx, participant, system)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *ParticipantRepositoryMock) RemoveParticipant(ctx context.Context, participant models.Participant, system *models.Message) error {
	args := m.Called(ctx, participant, system)
	return args.Error(0)
}

func (m *ParticipantRepositoryMock) MarkRead(ctx context.Context, participantID string, at time.Time) error {
	args := m.Called(ctx, participantID, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, threadID string, messageID string) (models.Message, error) {
	args := m.Called(ctx, threadID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, threadID string, beforeID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, threadID, beforeID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ArchiveMessage(ctx context.Context, threadID string, messageID string) error {
	args := m.Called(ctx, threadID, messageID)
	return args.Error(0)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) GetFriend(ctx context.Context, friendID string) (models.Friend, error) {
	args := m.Called(ctx, friendID)
	var f models.Friend
	if val := args.Get(0); val != nil {
		f = val.(models.Friend)
	}
	return f, args.Error(1)
}

func (m *FriendRepositoryMock) ListFriends(ctx context.Context, owner models.ProviderRef, limit int) ([]models.Friend, error) {
	args := m.Called(ctx, owner, limit)
	var fs []models.Friend
	if val := args.Get(0); val != nil {
		fs = val.([]models.Friend)
	}
	return fs, args.Error(1)
}

func (m *FriendRepositoryMock) AreFriends(ctx context.Context, a, b models.ProviderRef) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepositoryMock) MutualFriends(ctx context.Context, owner models.ProviderRef, parties []models.ProviderRef) ([]models.ProviderRef, error) {
	args := m.Called(ctx, owner, parties)
	var out []models.ProviderRef
	if val := args.Get(0); val != nil {
		out = val.([]models.ProviderRef)
	}
	return out, args.Error(1)
}

func (m *FriendRepositoryMock) RemoveFriendship(ctx context.Context, friend models.Friend) error {
	args := m.Called(ctx, friend)
	return args.Error(0)
}

func (m *FriendRepositoryMock) AcceptRequest(ctx context.Context, pending models.PendingFriend) (models.Friend, error) {
	args := m.Called(ctx, pending)
	var f models.Friend
	if val := args.Get(0); val != nil {
		f = val.(models.Friend)
	}
	return f, args.Error(1)
}

func (m *FriendRepositoryMock) CreatePending(ctx context.Context, sender, recipient models.ProviderRef) (models.PendingFriend, error) {
	args := m.Called(ctx, sender, recipient)
	var p models.PendingFriend
	if val := args.Get(0); val != nil {
		p = val.(models.PendingFriend)
	}
	return p, args.Error(1)
}

func (m *FriendRepositoryMock) GetPending(ctx context.Context, pendingID string) (models.PendingFriend, error) {
	args := m.Called(ctx, pendingID)
	var p models.PendingFriend
	if val := args.Get(0); val != nil {
		p = val.(models.PendingFriend)
	}
	return p, args.Error(1)
}

func (m *FriendRepositoryMock) ListPending(ctx context.Context, recipient models.ProviderRef) ([]models.PendingFriend, error) {
	args := m.Called(ctx, recipient)
	var ps []models.PendingFriend
	if val := args.Get(0); val != nil {
		ps = val.([]models.PendingFriend)
	}
	return ps, args.Error(1)
}

func (m *FriendRepositoryMock) ListSent(ctx context.Context, sender models.ProviderRef) ([]models.PendingFriend, error) {
	args := m.Called(ctx, sender)
	var ps []models.PendingFriend
	if val := args.Get(0); val != nil {
		ps = val.([]models.PendingFriend)
	}
	return ps, args.Error(1)
}

func (m *FriendRepositoryMock) DeletePending(ctx context.Context, pendingID string) error {
	args := m.Called(ctx, pendingID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RelationExists(ctx context.Context, a, b models.ProviderRef) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type InviteRepositoryMock struct {
	mock.Mock
}

func (m *InviteRepositoryMock) CreateInvite(ctx context.Context, invite models.Invite, maxPerThread int) (models.Invite, error) {
	args := m.Called(ctx, invite, maxPerThread)
	var out models.Invite
	if val := args.Get(0); val != nil {
		out = val.(models.Invite)
	}
	return out, args.Error(1)
}

func (m *InviteRepositoryMock) ListInvites(ctx context.Context, threadID string) ([]models.Invite, error) {
	args := m.Called(ctx, threadID)
	var out []models.Invite
	if val := args.Get(0); val != nil {
		out = val.([]models.Invite)
	}
	return out, args.Error(1)
}

func (m *InviteRepositoryMock) GetInvite(ctx context.Context, threadID string, inviteID string) (models.Invite, error) {
	args := m.Called(ctx, threadID, inviteID)
	var out models.Invite
	if val := args.Get(0); val != nil {
		out = val.(models.Invite)
	}
	return out, args.Error(1)
}

func (m *InviteRepositoryMock) GetInviteByCode(ctx context.Context, code string) (models.Invite, error) {
	args := m.Called(ctx, code)
	var out models.Invite
	if val := args.Get(0); val != nil {
		out = val.(models.Invite)
	}
	return out, args.Error(1)
}

func (m *InviteRepositoryMock) ArchiveInvite(ctx context.Context, inviteID string) error {
	args := m.Called(ctx, inviteID)
	return args.Error(0)
}

func (m *InviteRepositoryMock) RedeemInvite(ctx context.Context, inviteID string, participant models.Participant, system *models.Message) (models.Participant, error) {
	args := m.Called(ctx, inviteID, participant, system)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *InviteRepositoryMock) ArchiveExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ repositories.ProviderRepository    = (*ProviderRepositoryMock)(nil)
	_ repositories.ThreadRepository      = (*ThreadRepositoryMock)(nil)
	_ repositories.ParticipantRepository = (*ParticipantRepositoryMock)(nil)
	_ repositories.MessageRepository     = (*MessageRepositoryMock)(nil)
	_ repositories.FriendRepository      = (*FriendRepositoryMock)(nil)
	_ repositories.InviteRepository      = (*InviteRepositoryMock)(nil)
)

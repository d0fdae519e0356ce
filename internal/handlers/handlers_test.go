package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/brokers"
	"messenger-service/internal/config"
	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
	"messenger-service/internal/services"
)

var (
	alice    = models.ProviderRef{Alias: "user", ID: "1"}
	bob      = models.ProviderRef{Alias: "user", ID: "2"}
	doe      = models.ProviderRef{Alias: "user", ID: "3"}
	stranger = models.ProviderRef{Alias: "user", ID: "4"}
)

type testEnv struct {
	providers    *mocks.ProviderRepositoryMock
	threads      *mocks.ThreadRepositoryMock
	participants *mocks.ParticipantRepositoryMock
	messages     *mocks.MessageRepositoryMock
	friends      *mocks.FriendRepositoryMock
	invites      *mocks.InviteRepositoryMock
	emitter      *mocks.EmitterRecorder
	handlers     Handlers
}

func newTestEnv() *testEnv {
	env := &testEnv{
		providers:    new(mocks.ProviderRepositoryMock),
		threads:      new(mocks.ThreadRepositoryMock),
		participants: new(mocks.ParticipantRepositoryMock),
		messages:     new(mocks.MessageRepositoryMock),
		friends:      new(mocks.FriendRepositoryMock),
		invites:      new(mocks.InviteRepositoryMock),
		emitter:      &mocks.EmitterRecorder{},
	}

	cfg := config.Config{
		Invites:      config.InvitesConfig{Enabled: true, MaxPerThread: 3},
		Knocks:       config.KnocksConfig{Enabled: true, Timeout: time.Minute},
		OnlineStatus: config.OnlineStatusConfig{Enabled: true, Lifetime: time.Minute},
		Calling:      config.CallingConfig{Enabled: true},
		Participants: config.ParticipantsConfig{RequireFriendship: true},
		Documents:    config.UploadConfig{Upload: true},
		Images:       config.UploadConfig{Upload: true},
		Collections:  config.CollectionsConfig{ThreadsIndexCount: 100, ThreadsPageCount: 25, ParticipantsIndexCount: 500, MessagesIndexCount: 40, MessagesPageCount: 25},
	}
	registry := provider.NewRegistry(provider.Definition{
		Alias: "user", Model: provider.User{},
		Searchable: true, Friendable: true, Devices: true,
		CanMessage: provider.AllowAll(), CanSearch: provider.AllowAll(), CanFriend: provider.AllowAll(),
	})

	resolver := services.NewParticipantResolver(env.providers, env.participants, env.friends, registry, env.emitter, true)
	pipeline := services.NewMessagePipeline(env.messages, env.participants, env.emitter, cfg)
	threads := services.NewThreadService(env.threads, env.participants, env.providers, registry, resolver, pipeline, env.emitter, nil, cfg)
	presence := services.NewPresenceService(cfg.OnlineStatus)

	env.handlers = Handlers{
		Threads:  NewThreadHandler(threads, presence),
		Messages: NewMessageHandler(threads, pipeline),
		Friends:  NewFriendHandler(services.NewFriendService(env.friends, env.providers, registry, env.emitter)),
		Invites:  NewInviteHandler(threads, services.NewInviteService(env.invites, env.threads, env.participants, registry, env.emitter, nil, cfg.Invites)),
		Interactions: NewInteractionHandler(threads,
			services.NewKnockService(env.participants, env.emitter, cfg.Knocks),
			services.NewCallService(env.messages, env.participants, env.emitter, cfg.Calling),
			presence,
			services.NewSearchService(env.providers, registry, 25),
		),
	}
	return env
}

// router authenticates every request as the given provider.
func (env *testEnv) router(as models.ProviderRef) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, func(c *gin.Context) {
		if !as.IsZero() {
			c.Set(middleware.ProviderContextKey, as)
		}
		c.Next()
	}, env.handlers)
	return r
}

func (env *testEnv) member(threadID string, p *models.Participant) {
	env.participants.On("GetParticipant", mock.Anything, threadID, p.Owner()).Return(*p, nil)
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func groupThread(id string) models.Thread {
	return models.Thread{ID: id, Kind: models.ThreadGroup, Subject: "crew", AddParticipants: true, Invitations: true, Calling: true, Messaging: true}
}

func participant(id, threadID string, owner models.ProviderRef, isAdmin bool) *models.Participant {
	p := models.NewParticipant(threadID, owner)
	if isAdmin {
		p = models.NewAdmin(threadID, owner)
	}
	p.ID = id
	return &p
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv()
	rec := serve(env.router(models.ProviderRef{}), http.MethodGet, "/threads", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddParticipantsScenario(t *testing.T) {
	env := newTestEnv()
	p1 := participant("p1", "t1", alice, true)
	p2 := participant("p2", "t1", bob, false)
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", p1)
	env.member("t1", p2)

	candidates := []models.ProviderRef{doe, stranger, bob}
	env.providers.On("FindProviders", mock.Anything, candidates).Return([]models.ProviderRecord{
		{Alias: "user", ID: "3"}, {Alias: "user", ID: "4"}, {Alias: "user", ID: "2"},
	}, nil)
	env.participants.On("ExistingOwners", mock.Anything, "t1", candidates).Return([]models.ProviderRef{bob}, nil)
	env.friends.On("MutualFriends", mock.Anything, alice, []models.ProviderRef{doe, stranger}).Return([]models.ProviderRef{doe}, nil)
	added := participant("p3", "t1", doe, false)
	env.participants.On("AddParticipants", mock.Anything, "t1", mock.Anything, mock.Anything).Return([]models.Participant{*added}, nil).Once()
	env.participants.On("ListParticipants", mock.Anything, "t1", 0).Return([]models.Participant{*p1, *p2, *added}, nil)

	body := `{"providers":[{"alias":"user","id":"3"},{"alias":"user","id":"4"},{"alias":"user","id":"2"}]}`
	rec := serve(env.router(alice), http.MethodPost, "/threads/t1/participants", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Participants []models.Participant `json:"participants"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Participants, 1)
	assert.Equal(t, doe, resp.Participants[0].Owner())

	rec = serve(env.router(bob), http.MethodPost, "/threads/t1/participants", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	env.participants.AssertNumberOfCalls(t, "AddParticipants", 1)
}

func TestAddParticipantsValidationIsIndexed(t *testing.T) {
	env := newTestEnv()
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", participant("p1", "t1", alice, true))

	rec := serve(env.router(alice), http.MethodPost, "/threads/t1/participants", `{"providers":[{"alias":"user","id":"3"},{"alias":"user"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, map[string]string{"providers.1.id": "required"}, resp.Errors)
}

func TestAddParticipantsRequiresProviders(t *testing.T) {
	env := newTestEnv()
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", participant("p1", "t1", alice, true))

	for _, body := range []string{`{}`, `{"providers":[]}`} {
		rec := serve(env.router(alice), http.MethodPost, "/threads/t1/participants", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.JSONEq(t, `{"errors":{"providers":"required"}}`, rec.Body.String())
	}
	env.participants.AssertNotCalled(t, "AddParticipants", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageReturnsResolvedReply(t *testing.T) {
	env := newTestEnv()
	sender := participant("p1", "t1", alice, false)
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", sender)
	env.participants.On("ListParticipants", mock.Anything, "t1", 0).Return([]models.Participant{*sender}, nil)

	targetID := "0b7e0000-0000-4000-8000-000000000002"
	env.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(models.Message{
		ID: "m9", ThreadID: "t1", OwnerAlias: "user", OwnerID: "1", Body: "reply", ReplyToID: &targetID,
	}, nil)
	env.messages.On("GetMessage", mock.Anything, "t1", targetID).Return(models.Message{
		ID: targetID, ThreadID: "t1", OwnerAlias: "user", OwnerID: "2", Body: "first",
	}, nil)

	rec := serve(env.router(alice), http.MethodPost, "/threads/t1/messages", `{"message":"reply","type":0,"reply_to_id":"`+targetID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message struct {
			ReplyToID string `json:"reply_to_id"`
			ReplyTo   *struct {
				ID string `json:"id"`
			} `json:"reply_to"`
		} `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, targetID, resp.Message.ReplyToID)
	require.NotNil(t, resp.Message.ReplyTo)
	assert.Equal(t, targetID, resp.Message.ReplyTo.ID)
}

func TestLockedThreadRejectsMessagesButAllowsReads(t *testing.T) {
	env := newTestEnv()
	locked := groupThread("t1")
	locked.Locked = true
	env.threads.On("GetThread", mock.Anything, "t1").Return(locked, nil)
	env.member("t1", participant("p1", "t1", alice, true))
	env.messages.On("ListMessages", mock.Anything, "t1", "", 40).Return([]models.Message{}, nil)

	rec := serve(env.router(alice), http.MethodPost, "/threads/t1/messages", `{"message":"hi","type":0}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(env.router(alice), http.MethodGet, "/threads/t1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestNonMemberForbiddenMissingThreadNotFound(t *testing.T) {
	env := newTestEnv()
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.threads.On("GetThread", mock.Anything, "nope").Return(models.Thread{}, repositories.ErrThreadNotFound)
	env.participants.On("GetParticipant", mock.Anything, "t1", stranger).Return(models.Participant{}, repositories.ErrParticipantNotFound)

	assert.Equal(t, http.StatusForbidden, serve(env.router(stranger), http.MethodGet, "/threads/t1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(env.router(stranger), http.MethodGet, "/threads/nope", "").Code)
}

func TestShowMessageWithDanglingReply(t *testing.T) {
	env := newTestEnv()
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", participant("p1", "t1", alice, false))
	dangling := "0b7e0000-0000-4000-8000-000000000001"
	env.messages.On("GetMessage", mock.Anything, "t1", "m1").Return(models.Message{
		ID: "m1", ThreadID: "t1", OwnerAlias: "user", OwnerID: "1", Body: "hi", ReplyToID: &dangling,
	}, nil)

	rec := serve(env.router(alice), http.MethodGet, "/threads/t1/messages/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message map[string]any `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, dangling, resp.Message["reply_to_id"])
	assert.Contains(t, resp.Message, "reply_to")
	assert.Nil(t, resp.Message["reply_to"])
}

func TestInfrastructureFailureIsRetryable(t *testing.T) {
	env := newTestEnv()
	env.threads.On("ListThreadsForProvider", mock.Anything, alice, (*time.Time)(nil), 100).Return(nil, assert.AnError)

	rec := serve(env.router(alice), http.MethodGet, "/threads", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListThreadsRejectsBadCursor(t *testing.T) {
	env := newTestEnv()
	rec := serve(env.router(alice), http.MethodGet, "/threads?before=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFriendEdgeForbiddenForParty(t *testing.T) {
	env := newTestEnv()
	env.friends.On("GetFriend", mock.Anything, "e1").Return(models.Friend{ID: "e1", OwnerAlias: "user", OwnerID: "1", PartyAlias: "user", PartyID: "2"}, nil)
	env.friends.On("GetFriend", mock.Anything, "missing").Return(models.Friend{}, repositories.ErrFriendNotFound)

	r := env.router(bob)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/friends/e1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/friends/e1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/friends/missing", "").Code)
	assert.Equal(t, http.StatusOK, serve(env.router(alice), http.MethodGet, "/friends/e1", "").Code)
	env.friends.AssertNotCalled(t, "RemoveFriendship", mock.Anything, mock.Anything)
}

func TestSendFriendRequestConflict(t *testing.T) {
	env := newTestEnv()
	env.providers.On("FindProvider", mock.Anything, bob).Return(models.ProviderRecord{Alias: "user", ID: "2"}, nil)
	env.friends.On("RelationExists", mock.Anything, alice, bob).Return(true, nil)

	rec := serve(env.router(alice), http.MethodPost, "/sent-friends", `{"recipient_alias":"user","recipient_id":"2"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestKnockTimeoutIsTooManyRequests(t *testing.T) {
	env := newTestEnv()
	p1 := participant("p1", "t1", alice, true)
	env.threads.On("GetThread", mock.Anything, "t1").Return(groupThread("t1"), nil)
	env.member("t1", p1)
	env.participants.On("ListParticipants", mock.Anything, "t1", 0).Return([]models.Participant{*p1}, nil)

	r := env.router(alice)
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/threads/t1/knock", "").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/threads/t1/knock", "").Code)
}

func TestHeartbeatAndStatus(t *testing.T) {
	env := newTestEnv()
	require.Equal(t, http.StatusOK, serve(env.router(alice), http.MethodPost, "/heartbeat", `{"away":true}`).Code)

	rec := serve(env.router(bob), http.MethodGet, "/providers/user/1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online_status":2,"online_status_verbose":"away"}`, rec.Body.String())
}

func TestJoinInactiveInvite(t *testing.T) {
	env := newTestEnv()
	past := time.Now().Add(-time.Minute)
	env.invites.On("GetInviteByCode", mock.Anything, "OLD").Return(models.Invite{ID: "i1", ThreadID: "t1", ExpiresAt: &past}, nil)

	rec := serve(env.router(doe), http.MethodPost, "/join/OLD", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type fakeDrivers map[brokers.Category]string

func (f fakeDrivers) Driver(c brokers.Category) string { return f[c] }

type recordingAuditor struct {
	actors []*models.ProviderRef
}

func (a *recordingAuditor) Emit(_ context.Context, _, _, _ string, actor *models.ProviderRef, _ string) {
	a.actors = append(a.actors, actor)
}

func TestDebugRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	disabled := gin.New()
	RegisterDebugRoutes(disabled, &recordingAuditor{}, fakeDrivers{}, false)
	require.Equal(t, http.StatusNotFound, serve(disabled, http.MethodGet, "/debug/brokers", "").Code)

	auditor := &recordingAuditor{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ProviderContextKey, alice)
	})
	RegisterDebugRoutes(r, auditor, fakeDrivers{
		brokers.Broadcasting:      "socket",
		brokers.PushNotifications: "null",
		brokers.Calling:           "janus",
	}, true)

	rec := serve(r, http.MethodGet, "/debug/brokers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Drivers map[string]string `json:"drivers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "socket", resp.Drivers[string(brokers.Broadcasting)])
	assert.Equal(t, "null", resp.Drivers[string(brokers.PushNotifications)])
	assert.Len(t, resp.Drivers, len(brokers.Categories))

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/debug/audit-test", "").Code)
	require.Len(t, auditor.actors, 1)
	assert.Equal(t, alice, *auditor.actors[0])
}

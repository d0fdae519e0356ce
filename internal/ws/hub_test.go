package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	failErr error
	closed  bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}

	hub.AddClient("private-messenger.user.1", conn, ConnInfo{})
	assert.Equal(t, 1, hub.Subscribers("private-messenger.user.1"))

	hub.RemoveClient("private-messenger.user.1", conn)
	assert.Equal(t, 0, hub.Subscribers("private-messenger.user.1"))
	assert.Empty(t, hub.channels)
}

func TestHubPublishWritesToChannelOnly(t *testing.T) {
	hub := NewHub()
	alice := &fakeConn{}
	bob := &fakeConn{}
	hub.AddClient("private-messenger.user.1", alice, ConnInfo{})
	hub.AddClient("private-messenger.user.2", bob, ConnInfo{})

	n := hub.Publish("private-messenger.user.1", models.SocketEvent{Type: models.EventNewMessage, Payload: map[string]any{"body": "hi"}})

	assert.Equal(t, 1, n)
	require.Len(t, alice.frames, 1)
	assert.Contains(t, string(alice.frames[0]), `"channel":"private-messenger.user.1"`)
	assert.Empty(t, bob.frames)
}

func TestHubPublishDropsBrokenConnections(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{failErr: errors.New("broken pipe")}
	info := ConnInfo{Provider: models.ProviderRef{Alias: "user", ID: "1"}}
	hub.AddClient("private-messenger.user.1", broken, info)

	n := hub.Publish("private-messenger.user.1", models.SocketEvent{Type: models.EventKnock})

	assert.Equal(t, 0, n)
	assert.True(t, broken.closed)
	assert.Equal(t, 0, hub.Subscribers("private-messenger.user.1"))
}

type stubAuth struct {
	record models.ProviderRecord
}

func (s stubAuth) FindByToken(ctx context.Context, token string) (models.ProviderRecord, error) {
	if token != "secret" {
		return models.ProviderRecord{}, errors.New("unknown token")
	}
	return s.record, nil
}

type recordingPresence struct {
	mu    sync.Mutex
	calls []bool
}

func (p *recordingPresence) Touch(provider models.ProviderRef, away bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, away)
}

func (p *recordingPresence) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type knownAliases map[string]bool

func (k knownAliases) Known(alias string) bool { return k[alias] }

func TestWebSocketHandlerRejectsUnregisteredAlias(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	presence := &recordingPresence{}
	handler := NewWebSocketHandler(hub, stubAuth{record: models.ProviderRecord{Alias: "robot", ID: "9"}}, knownAliases{"user": true}, presence)
	router := gin.New()
	router.GET("/ws", handler.Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=secret", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, hub.Subscribers("private-messenger.robot.9"))
	assert.Zero(t, presence.count())
}

func TestWebSocketHandlerRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebSocketHandler(NewHub(), stubAuth{}, knownAliases{"user": true}, nil)
	router.GET("/ws", handler.Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketHandlerSubscribesAndTracksHeartbeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	presence := &recordingPresence{}
	handler := NewWebSocketHandler(hub, stubAuth{record: models.ProviderRecord{Alias: "user", ID: "9"}}, knownAliases{"user": true}, presence)
	router := gin.New()
	router.GET("/ws", handler.Handle)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	channel := "private-messenger.user.9"
	require.Eventually(t, func() bool { return hub.Subscribers(channel) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, presence.count())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat","away":true}`)))
	require.Eventually(t, func() bool { return presence.count() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(channel, models.SocketEvent{Type: models.EventKnock})
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), models.EventKnock)
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Authenticator resolves an API token to its provider.
type Authenticator interface {
	FindByToken(ctx context.Context, token string) (models.ProviderRecord, error)
}

// AliasCheck reports whether a provider alias is registered.
type AliasCheck interface {
	Known(alias string) bool
}

// PresenceTracker records that a provider is connected.
type PresenceTracker interface {
	Touch(provider models.ProviderRef, away bool)
}

// clientFrame is what clients send over the socket. Only heartbeats are
// understood; everything else is ignored.
type clientFrame struct {
	Type string `json:"type"`
	Away bool   `json:"away"`
}

// WebSocketHandler subscribes an authenticated provider to its private
// channel.
type WebSocketHandler struct {
	hub      *Hub
	auth     Authenticator
	aliases  AliasCheck
	presence PresenceTracker
}

// NewWebSocketHandler constructs a WebSocketHandler. presence may be nil.
func NewWebSocketHandler(hub *Hub, auth Authenticator, aliases AliasCheck, presence PresenceTracker) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, auth: auth, aliases: aliases, presence: presence}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	record, err := h.auth.FindByToken(c.Request.Context(), token)
	if err != nil || !h.aliases.Known(record.Alias) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	provider := record.Ref()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		Provider:    provider,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	channel := provider.Channel()
	h.hub.AddClient(channel, conn, info)
	h.touch(provider, false)

	headers := observability.BuildHeaders(requestID, traceID)
	observability.IncWSActive(provider.Alias)
	observability.IncWSEvent(provider.Alias, "ws_connect")
	_ = observability.PublishEvent(ctx, wsRoutingKey,
		observability.WSEvent("ws_connect", info.ConnID, provider, info.DeviceID, info.IP, time.Time{}, ""), headers)

	bg := context.WithoutCancel(ctx)
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(channel, conn)
			observability.DecWSActive(provider.Alias)
			observability.IncWSEvent(provider.Alias, "ws_disconnect")
			_ = observability.PublishEvent(bg, wsRoutingKey,
				observability.WSEvent("ws_disconnect", info.ConnID, provider, info.DeviceID, info.IP, info.ConnectedAt, closeReason), headers)
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(provider.Alias, "ws_error")
					_ = observability.PublishEvent(bg, wsRoutingKey,
						observability.WSEvent("ws_error", info.ConnID, provider, info.DeviceID, info.IP, info.ConnectedAt, closeReason), headers)
				}
				return
			}
			h.handleFrame(provider, data)
		}
	}()
}

func (h *WebSocketHandler) handleFrame(provider models.ProviderRef, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}
	if frame.Type == "heartbeat" {
		h.touch(provider, frame.Away)
	}
}

func (h *WebSocketHandler) touch(provider models.ProviderRef, away bool) {
	if h.presence != nil {
		h.presence.Touch(provider, away)
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

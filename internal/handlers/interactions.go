package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// InteractionHandler covers knocks, calls, presence and provider search.
type InteractionHandler struct {
	threads  *services.ThreadService
	knocks   *services.KnockService
	calls    *services.CallService
	presence *services.PresenceService
	search   *services.SearchService
}

// NewInteractionHandler builds an InteractionHandler.
func NewInteractionHandler(threads *services.ThreadService, knocks *services.KnockService, calls *services.CallService, presence *services.PresenceService, search *services.SearchService) *InteractionHandler {
	return &InteractionHandler{threads: threads, knocks: knocks, calls: calls, presence: presence, search: search}
}

func (h *InteractionHandler) Knock(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.knocks.Knock(requestContext(c), thread, participant); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InteractionHandler) StartCall(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	msg, err := h.calls.Start(requestContext(c), thread, participant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"call_id": msg.ID, "message": msg})
}

// Heartbeat refreshes the caller's online status.
func (h *InteractionHandler) Heartbeat(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	var req struct {
		Away bool `json:"away"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.presence.Touch(provider, req.Away)
	status := h.presence.Status(provider)
	c.JSON(http.StatusOK, gin.H{"online_status": status, "online_status_verbose": status.String()})
}

// ProviderStatus reports another provider's online status.
func (h *InteractionHandler) ProviderStatus(c *gin.Context) {
	if _, ok := currentProvider(c); !ok {
		return
	}
	status := h.presence.Status(models.ProviderRef{Alias: c.Param("alias"), ID: c.Param("id")})
	c.JSON(http.StatusOK, gin.H{"online_status": status, "online_status_verbose": status.String()})
}

// Search finds providers by ?q across the aliases the caller may search.
func (h *InteractionHandler) Search(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	found, err := h.search.Search(requestContext(c), provider, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": found})
}

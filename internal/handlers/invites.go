package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// InviteHandler serves group invite endpoints.
type InviteHandler struct {
	threads *services.ThreadService
	invites *services.InviteService
}

// NewInviteHandler builds an InviteHandler.
func NewInviteHandler(threads *services.ThreadService, invites *services.InviteService) *InviteHandler {
	return &InviteHandler{threads: threads, invites: invites}
}

func (h *InviteHandler) ListInvites(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	invites, err := h.invites.List(requestContext(c), thread, participant)
	if err != nil {
		respondError(c, err)
		return
	}
	if invites == nil {
		invites = []models.Invite{}
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// CreateInvite issues a join code. max_use 0 is unlimited.
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	var req struct {
		MaxUse  int        `json:"max_use"`
		Expires *time.Time `json:"expires"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invite, err := h.invites.Create(requestContext(c), thread, participant, services.CreateInviteInput{MaxUse: req.MaxUse, Expires: req.Expires})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite": invite})
}

func (h *InviteHandler) ArchiveInvite(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.invites.Archive(requestContext(c), thread, participant, c.Param("invite_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewInvite shows the group behind an active code.
func (h *InviteHandler) PreviewInvite(c *gin.Context) {
	invite, thread, err := h.invites.Preview(requestContext(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":      invite.Code,
		"thread_id": thread.ID,
		"subject":   thread.Subject,
		"expires":   invite.ExpiresAt,
	})
}

// JoinWithInvite redeems a code for the caller.
func (h *InviteHandler) JoinWithInvite(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	participant, err := h.invites.Join(requestContext(c), c.Param("code"), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participant": participant})
}

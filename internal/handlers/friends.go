package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// FriendHandler serves friendship and friend request endpoints.
type FriendHandler struct {
	friends *services.FriendService
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(friends *services.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	friends, err := h.friends.List(requestContext(c), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ShowFriend returns an edge the caller owns.
func (h *FriendHandler) ShowFriend(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	friend, err := h.friends.Show(requestContext(c), provider, c.Param("friend_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friend": friend})
}

// RemoveFriend ends the friendship in both directions.
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	if err := h.friends.Remove(requestContext(c), provider, c.Param("friend_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) ListPending(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	pending, err := h.friends.Pending(requestContext(c), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	if pending == nil {
		pending = []models.PendingFriend{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (h *FriendHandler) ListSent(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	sent, err := h.friends.Sent(requestContext(c), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	if sent == nil {
		sent = []models.PendingFriend{}
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// SendRequest asks a provider to become friends.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	var req struct {
		RecipientAlias string `json:"recipient_alias"`
		RecipientID    string `json:"recipient_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pending, err := h.friends.SendRequest(requestContext(c), provider, models.ProviderRef{Alias: req.RecipientAlias, ID: req.RecipientID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sent": pending})
}

func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	friend, err := h.friends.AcceptRequest(requestContext(c), provider, c.Param("pending_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friend": friend})
}

func (h *FriendHandler) DenyRequest(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	if err := h.friends.DenyRequest(requestContext(c), provider, c.Param("pending_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) CancelRequest(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	if err := h.friends.CancelRequest(requestContext(c), provider, c.Param("sent_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/permissions"
	"messenger-service/internal/repositories"
	"messenger-service/internal/services"
)

var notFoundErrors = []error{
	repositories.ErrProviderNotFound,
	repositories.ErrThreadNotFound,
	repositories.ErrParticipantNotFound,
	repositories.ErrMessageNotFound,
	repositories.ErrFriendNotFound,
	repositories.ErrPendingFriendNotFound,
	repositories.ErrInviteNotFound,
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps service errors onto HTTP statuses. Anything unknown is
// treated as an infrastructure failure the client may retry.
func respondError(c *gin.Context, err error) {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "errors": verrs})
	case isAny(err, permissions.ErrForbidden, services.ErrCannotInteract, services.ErrFeatureDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case isAny(err, notFoundErrors...):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case isAny(err, repositories.ErrParticipantExists, repositories.ErrFriendExists, repositories.ErrInviteLimit, repositories.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrKnockTimeout):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case isAny(err, services.ErrLastAdmin, repositories.ErrInviteInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("request failed request_id=%s method=%s path=%s err=%v", requestIDFromContext(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	}
}

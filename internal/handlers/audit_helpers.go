package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// requestContext carries the request id into the services for auditing.
func requestContext(c *gin.Context) context.Context {
	return services.WithRequestID(c.Request.Context(), requestIDFromContext(c))
}

// currentProvider aborts with 401 when no provider was authenticated.
func currentProvider(c *gin.Context) (models.ProviderRef, bool) {
	ref, ok := middleware.ProviderFromContext(c)
	if !ok || ref.IsZero() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return models.ProviderRef{}, false
	}
	return ref, true
}

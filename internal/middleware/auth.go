package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// ProviderContextKey holds the authenticated models.ProviderRef.
const ProviderContextKey = "provider"

// TokenLookup resolves an API token to the provider that owns it.
type TokenLookup interface {
	FindByToken(ctx context.Context, token string) (models.ProviderRecord, error)
}

// AliasCheck reports whether an alias is registered.
type AliasCheck interface {
	Known(alias string) bool
}

// AuthMiddleware validates the bearer token against the provider table.
// Tokens of providers whose alias is not registered are rejected.
func AuthMiddleware(tokens TokenLookup, aliases AliasCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		record, err := tokens.FindByToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, repositories.ErrProviderNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "failed to validate token"})
			return
		}
		if aliases != nil && !aliases.Known(record.Alias) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "provider type not registered"})
			return
		}

		c.Set(ProviderContextKey, record.Ref())
		c.Next()
	}
}

// ProviderFromContext returns the authenticated provider, if any.
func ProviderFromContext(c *gin.Context) (models.ProviderRef, bool) {
	val, ok := c.Get(ProviderContextKey)
	if !ok {
		return models.ProviderRef{}, false
	}
	ref, ok := val.(models.ProviderRef)
	return ref, ok
}

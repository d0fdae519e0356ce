package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/brokers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// DriverReporter exposes the driver each broker category resolved to.
type DriverReporter interface {
	Driver(c brokers.Category) string
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, auditor services.Auditor, drivers DriverReporter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if auditor == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		var actor *models.ProviderRef
		if ref, ok := middleware.ProviderFromContext(c); ok {
			actor = &ref
		}
		auditor.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), actor, "")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/brokers", func(c *gin.Context) {
		if drivers == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dispatcher not configured"})
			return
		}
		resp := gin.H{}
		for _, cat := range brokers.Categories {
			resp[string(cat)] = drivers.Driver(cat)
		}
		c.JSON(http.StatusOK, gin.H{"drivers": resp})
	})
}

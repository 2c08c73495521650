package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/telemetry"
	"team-chat-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, registry *ws.Registry, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/presence", func(c *gin.Context) {
		if registry == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registry not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"connections": registry.Len(),
			"online":      registry.ListOnline(),
		})
	})
}

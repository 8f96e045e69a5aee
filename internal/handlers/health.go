package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthCheck returns service liveness plus a coarse queue reading.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "hunter-service",
		"uptimeSeconds": int(time.Since(startTime).Seconds()),
		"queueDepth":    h.queue.Len(),
	})
}

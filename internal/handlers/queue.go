package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetQueue returns the current working set in priority order.
func (h *Handler) GetQueue(c *gin.Context) {
	tasks := h.queue.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"depth": len(tasks),
		"tasks": tasks,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMetrics returns the engine's operator-facing metrics snapshot.
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Snapshot())
}

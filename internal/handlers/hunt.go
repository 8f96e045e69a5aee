package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerCycle runs one orchestrator cycle immediately. The normal adaptive
// schedule continues on its own; this is for operators poking the engine.
func (h *Handler) TriggerCycle(c *gin.Context) {
	h.orch.RunCycle(c.Request.Context())

	snap := h.orch.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"queueDepth":      snap.QueueDepth,
		"tasksCompleted":  snap.TasksCompleted,
		"tasksSuccessful": snap.TasksSuccessful,
		"tasksFailed":     snap.TasksFailed,
	})
}

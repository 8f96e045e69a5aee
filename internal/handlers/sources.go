package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// sourceStatus is the per-source row returned by ListSources.
type sourceStatus struct {
	Name         string  `json:"name"`
	Enabled      bool    `json:"enabled"`
	Priority     int     `json:"priority"`
	HealthScore  float64 `json:"healthScore"`
	Successes    int     `json:"successes"`
	Failures     int     `json:"failures"`
	BreakerState string  `json:"breakerState"`
}

// ListSources returns every registered source with its health and breaker
// state.
func (h *Handler) ListSources(c *gin.Context) {
	breakers := make(map[string]string)
	for _, b := range h.hunter.BreakerSnapshots() {
		breakers[b.Source] = b.State
	}
	health := h.hunter.HealthSnapshots()

	out := make([]sourceStatus, 0)
	for _, name := range h.registry.List() {
		src, _ := h.registry.Get(name)
		row := sourceStatus{
			Name:         name,
			Enabled:      src.Enabled,
			Priority:     src.Priority,
			BreakerState: breakers[name],
		}
		if row.BreakerState == "" {
			row.BreakerState = "closed"
		}
		if hl, ok := health[name]; ok {
			row.HealthScore = hl.Score
			row.Successes = hl.SuccessCount
			row.Failures = hl.FailureCount
		} else {
			row.HealthScore = 50
		}
		out = append(out, row)
	}

	c.JSON(http.StatusOK, gin.H{"sources": out})
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetSourceEnabled flips a source on or off at runtime.
func (h *Handler) SetSourceEnabled(c *gin.Context) {
	name := c.Param("name")

	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.registry.SetEnabled(name, req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info().Str("source", name).Bool("enabled", req.Enabled).Msg("Source toggled")
	c.JSON(http.StatusOK, gin.H{"name": name, "enabled": req.Enabled})
}

// Package handlers implements the operator HTTP API.
package handlers

import (
	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/hunter"
	"github.com/scavenger/hunter-service/internal/orchestrator"
	"github.com/scavenger/hunter-service/internal/queue"
	"github.com/scavenger/hunter-service/internal/sources"
)

// Handler carries the shared components the API surfaces.
type Handler struct {
	orch     *orchestrator.Orchestrator
	hunter   *hunter.Hunter
	queue    *queue.Queue
	registry *sources.Registry
	logger   zerolog.Logger
}

// New creates the API handler.
func New(orch *orchestrator.Orchestrator, h *hunter.Hunter, q *queue.Queue, registry *sources.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		orch:     orch,
		hunter:   h,
		queue:    q,
		registry: registry,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

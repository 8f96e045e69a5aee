package types

import "time"

// SourceHealth tracks the rolling health of one marketplace source.
// The score drives discovery ordering: healthier sources are hunted first.
type SourceHealth struct {
	Score           float64   `json:"score"` // 0-100
	SuccessCount    int       `json:"successCount"`
	FailureCount    int       `json:"failureCount"`
	TotalTasksFound int       `json:"totalTasksFound"`
	LastUpdate      time.Time `json:"lastUpdate"`
}

// NewSourceHealth returns a health record starting at a neutral score.
func NewSourceHealth() *SourceHealth {
	return &SourceHealth{Score: 50}
}

// RecordSuccess bumps the score by 2 (capped at 100) and accounts for the
// tasks the hunt produced.
func (h *SourceHealth) RecordSuccess(tasksFound int, now time.Time) {
	h.Score += 2
	if h.Score > 100 {
		h.Score = 100
	}
	h.SuccessCount++
	h.TotalTasksFound += tasksFound
	h.LastUpdate = now
}

// RecordFailure drops the score by 5 (floored at 0).
func (h *SourceHealth) RecordFailure(now time.Time) {
	h.Score -= 5
	if h.Score < 0 {
		h.Score = 0
	}
	h.FailureCount++
	h.LastUpdate = now
}

// RecordAuthFailure drops the score by 5 (floored at 0) without counting a
// hunt failure. A credentials problem sinks the source in the discovery
// ordering but is not an outage.
func (h *SourceHealth) RecordAuthFailure(now time.Time) {
	h.Score -= 5
	if h.Score < 0 {
		h.Score = 0
	}
	h.LastUpdate = now
}

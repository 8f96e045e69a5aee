package orchestrator

import (
	"time"

	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/resilience"
)

// MetricsSnapshot is the operator-facing view of the engine's state.
type MetricsSnapshot struct {
	TasksCompleted  int     `json:"tasksCompleted"`
	TasksSuccessful int     `json:"tasksSuccessful"`
	TasksFailed     int     `json:"tasksFailed"`
	TasksSuspicious int     `json:"tasksSuspicious"`
	TotalEarnings   float64 `json:"totalEarnings"`
	PacedBreaks     int     `json:"pacedBreaks"`
	AutomationRate  float64 `json:"automationRate"`

	QueueDepth      int           `json:"queueDepth"`
	CurrentInterval time.Duration `json:"currentIntervalNs"`

	Breakers     []resilience.Snapshot `json:"breakers"`
	AntiDetect   antidetect.Snapshot   `json:"antiDetect"`
	RecentDone   []HistoryEntry        `json:"recentCompleted"`
	RecentFailed []HistoryEntry        `json:"recentFailed"`
}

// Snapshot assembles the metrics snapshot consumed by the operator API.
func (o *Orchestrator) Snapshot() MetricsSnapshot {
	o.mu.Lock()
	snap := MetricsSnapshot{
		TasksCompleted:  o.tasksCompleted,
		TasksSuccessful: o.tasksSuccessful,
		TasksFailed:     o.tasksFailed,
		TasksSuspicious: o.tasksSuspicious,
		TotalEarnings:   o.totalEarnings,
		PacedBreaks:     o.pacedBreakCount,
		AutomationRate:  o.automationRate,
		CurrentInterval: o.currentInterval,
		RecentDone:      append([]HistoryEntry(nil), o.completedHistory...),
		RecentFailed:    append([]HistoryEntry(nil), o.failedHistory...),
	}
	o.mu.Unlock()

	snap.QueueDepth = o.queue.Len()
	snap.Breakers = o.hunter.BreakerSnapshots()
	snap.AntiDetect = o.governor.Snapshot()
	return snap
}

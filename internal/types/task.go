package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// DiscoveryMethod records how a task candidate was obtained from a source.
type DiscoveryMethod string

const (
	DiscoveryAPI    DiscoveryMethod = "api"
	DiscoveryScrape DiscoveryMethod = "scrape"
)

// Category is the closed task taxonomy used by the scoring engine.
type Category string

const (
	CategorySearch    Category = "search_tasks"
	CategoryWebsite   Category = "website_review"
	CategorySocial    Category = "social_content"
	CategoryDataEntry Category = "data_entry"
	CategorySurvey    Category = "survey"
	CategoryVideo     Category = "video_tasks"
	CategorySignup    Category = "signup_tasks"
	CategoryWriting   Category = "writing_tasks"
	CategoryGeneral   Category = "general"
)

// Categories lists every known category, most specific first.
func Categories() []Category {
	return []Category{
		CategorySearch, CategoryWebsite, CategorySocial, CategoryDataEntry,
		CategorySurvey, CategoryVideo, CategorySignup, CategoryWriting,
		CategoryGeneral,
	}
}

// ScoreBreakdown holds the individual signals behind a composite score.
// All values are on a 0-100 scale.
type ScoreBreakdown struct {
	SuccessRate   float64 `json:"successRate"`
	Profitability float64 `json:"profitability"`
	Automation    float64 `json:"automation"`
	Ease          float64 `json:"ease"`
	Reliability   float64 `json:"reliability"`
	LearningBonus float64 `json:"learningBonus"`
	Total         float64 `json:"total"`
}

// Task is the canonical task record produced by the normalizer.
type Task struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          Category        `json:"category"`
	Reward            float64         `json:"reward"`
	EstimatedDuration int             `json:"estimatedDuration"` // seconds
	Deadline          time.Time       `json:"deadline"`
	SourceName        string          `json:"sourceName"`
	DiscoveryMethod   DiscoveryMethod `json:"discoveryMethod"`
	RawPayload        json.RawMessage `json:"rawPayload,omitempty"`

	PriorityScore  float64         `json:"priorityScore"`
	SmartScore     float64         `json:"smartScore"`
	ScoreBreakdown *ScoreBreakdown `json:"scoreBreakdown,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`

	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Transition moves the task to a new status, enforcing the
// queued -> active -> completed|failed state machine. Terminal states are
// immutable.
func (t *Task) Transition(next TaskStatus) error {
	allowed := map[TaskStatus][]TaskStatus{
		StatusQueued: {StatusActive},
		StatusActive: {StatusCompleted, StatusFailed},
	}
	for _, s := range allowed[t.Status] {
		if s == next {
			t.Status = next
			return nil
		}
	}
	return fmt.Errorf("invalid task status transition %s -> %s", t.Status, next)
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Age returns how long ago the task was discovered.
func (t *Task) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// HourlyRate returns the implied hourly earnings of the task.
func (t *Task) HourlyRate() float64 {
	if t.EstimatedDuration <= 0 {
		return 0
	}
	return t.Reward / (float64(t.EstimatedDuration) / 3600.0)
}

// RawTask is an unnormalized candidate as extracted from a source response.
type RawTask struct {
	SourceName string
	Method     DiscoveryMethod
	Payload    map[string]any
}

// ExecutionResult is what the execution backend reports for one dispatch.
type ExecutionResult struct {
	Success         bool    `json:"success"`
	Reward          float64 `json:"reward"`
	ExecutionTimeMs int64   `json:"executionTimeMs"`
	Error           string  `json:"error,omitempty"`
}

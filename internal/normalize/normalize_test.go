package normalize

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scavenger/hunter-service/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n := New(DefaultConfig(), zerolog.Nop())
	n.SetClock(func() time.Time { return testNow })
	return n
}

func rawTask(payload map[string]any) types.RawTask {
	return types.RawTask{SourceName: "microworkers", Method: types.DiscoveryAPI, Payload: payload}
}

func TestNormalizeFieldAlternates(t *testing.T) {
	n := testNormalizer(t)

	task, ok := n.Normalize(rawTask(map[string]any{
		"name":             "Review our landing page",
		"details":          "Open the page and leave feedback",
		"payment":          "$1.50",
		"duration_minutes": float64(10),
		"job_id":           "J-77",
	}))
	require.True(t, ok)

	assert.Equal(t, "microworkers:J-77", task.ID)
	assert.Equal(t, "Review our landing page", task.Title)
	assert.Equal(t, "Open the page and leave feedback", task.Description)
	assert.InDelta(t, 1.5, task.Reward, 0.001)
	assert.Equal(t, 600, task.EstimatedDuration)
	assert.Equal(t, types.StatusQueued, task.Status)
	assert.Equal(t, testNow, task.CreatedAt)
	assert.NotEmpty(t, task.RawPayload)
}

func TestNormalizeDropsInvalid(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing title", map[string]any{"reward": 1.0}},
		{"title too short", map[string]any{"title": "ab", "reward": 1.0}},
		{"reward at floor", map[string]any{"title": "Do a search", "reward": 0.01}},
		{"reward below floor", map[string]any{"title": "Do a search", "reward": 0.005}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := n.Normalize(rawTask(tt.payload))
			assert.False(t, ok)
		})
	}
}

func TestNormalizeRewardParsing(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		name     string
		payload  map[string]any
		expected float64
	}{
		{"plain number", map[string]any{"title": "A search task", "reward": 0.75}, 0.75},
		{"currency string", map[string]any{"title": "A search task", "payment": "€0,40"}, 0.40},
		{"amount object", map[string]any{"title": "A search task", "payment": map[string]any{"amount": 2.5}}, 2.5},
		{"missing reward defaults", map[string]any{"title": "A search task"}, 0.05},
		{"unparseable falls back to default", map[string]any{"title": "A search task", "reward": "a lot"}, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, ok := n.Normalize(rawTask(tt.payload))
			require.True(t, ok)
			assert.InDelta(t, tt.expected, task.Reward, 0.001)
		})
	}
}

func TestNormalizeDurationParsing(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		name     string
		payload  map[string]any
		expected int
	}{
		{"minute-labelled key", map[string]any{"title": "A search task", "reward": 1.0, "minutes": float64(5)}, 300},
		{"small unlabelled value is minutes", map[string]any{"title": "A search task", "reward": 1.0, "duration": float64(90)}, 5400},
		{"large value is seconds", map[string]any{"title": "A search task", "reward": 1.0, "estimated_duration": float64(300)}, 300},
		{"mid-size value stays seconds", map[string]any{"title": "A search task", "reward": 1.0, "estimated_duration": float64(130)}, 130},
		{"tiny value floored at minimum", map[string]any{"title": "A search task", "reward": 1.0, "duration": 0.5}, 60},
		{"missing uses default", map[string]any{"title": "A search task", "reward": 1.0}, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, ok := n.Normalize(rawTask(tt.payload))
			require.True(t, ok)
			assert.Equal(t, tt.expected, task.EstimatedDuration)
		})
	}
}

func TestNormalizeDeadline(t *testing.T) {
	n := testNormalizer(t)

	t.Run("rfc3339", func(t *testing.T) {
		task, ok := n.Normalize(rawTask(map[string]any{
			"title": "A search task", "reward": 1.0, "expires_at": "2026-03-02T10:00:00Z",
		}))
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), task.Deadline)
	})

	t.Run("unix seconds", func(t *testing.T) {
		exp := testNow.Add(2 * time.Hour)
		task, ok := n.Normalize(rawTask(map[string]any{
			"title": "A search task", "reward": 1.0, "deadline": float64(exp.Unix()),
		}))
		require.True(t, ok)
		assert.Equal(t, exp.Unix(), task.Deadline.Unix())
	})

	t.Run("missing defaults to a day out", func(t *testing.T) {
		task, ok := n.Normalize(rawTask(map[string]any{"title": "A search task", "reward": 1.0}))
		require.True(t, ok)
		assert.Equal(t, testNow.Add(24*time.Hour), task.Deadline)
	})
}

func TestNormalizeCategoryInference(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		title    string
		expected types.Category
	}{
		{"Google search for our brand", types.CategorySearch},
		{"Watch a youtube clip", types.CategoryVideo},
		{"Follow us on instagram", types.CategorySocial},
		{"Fill out a short questionnaire", types.CategorySurvey},
		{"Create account on our portal", types.CategorySignup},
		{"Something unclassifiable", types.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			task, ok := n.Normalize(rawTask(map[string]any{"title": tt.title, "reward": 1.0}))
			require.True(t, ok)
			assert.Equal(t, tt.expected, task.Category)
		})
	}
}

func TestNormalizeIDFallbackSlug(t *testing.T) {
	n := testNormalizer(t)

	task, ok := n.Normalize(rawTask(map[string]any{"title": "Rate My App!", "reward": 1.0}))
	require.True(t, ok)
	assert.Equal(t, "microworkers:rate-my-app-", task.ID)
}

func TestNormalizeAllSkipsBadCandidates(t *testing.T) {
	n := testNormalizer(t)

	out := n.NormalizeAll([]types.RawTask{
		rawTask(map[string]any{"title": "Good search task", "reward": 1.0}),
		rawTask(map[string]any{"title": "x", "reward": 1.0}),
		rawTask(map[string]any{"title": "Worthless", "reward": 0.001}),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Good search task", out[0].Title)
}

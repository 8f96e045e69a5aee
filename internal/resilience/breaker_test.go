package resilience

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(t *testing.T) (*Breaker, *time.Time) {
	t.Helper()
	b := NewBreaker("microworkers", DefaultBreakerConfig(), zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return now })
	return b, &now
}

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := testBreaker(t)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.IsAvailable())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(t)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "failure %d should not open yet", i+1)
	}
	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.IsAvailable())
	assert.Equal(t, 5, b.FailureCount())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := testBreaker(t)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	assert.Equal(t, 0, b.FailureCount())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	b, now := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.IsAvailable())

	*now = now.Add(5*time.Minute + time.Second)

	assert.True(t, b.IsAvailable())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesAfterTrialBudget(t *testing.T) {
	b, now := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(6 * time.Minute)
	require.True(t, b.IsAvailable())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.FailureCount())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, now := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(6 * time.Minute)
	require.True(t, b.IsAvailable())

	b.RecordSuccess()
	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.IsAvailable())

	// The open timeout restarts from the half-open failure.
	*now = now.Add(6 * time.Minute)
	assert.True(t, b.IsAvailable())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerSnapshot(t *testing.T) {
	b, _ := testBreaker(t)
	b.RecordFailure()

	snap := b.Snapshot()
	assert.Equal(t, "microworkers", snap.Source)
	assert.Equal(t, "closed", snap.State)
	assert.Equal(t, 1, snap.FailureCount)
	assert.False(t, snap.LastFailure.IsZero())
}

func TestBreakerStateString(t *testing.T) {
	tests := []struct {
		state    BreakerState
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{BreakerState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

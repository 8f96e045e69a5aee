package antidetect

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGovernor(t *testing.T, cfg Config) (*Governor, *time.Time) {
	t.Helper()
	g := NewGovernor(cfg, zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.SetClock(func() time.Time { return now })
	g.SetRand(rand.New(rand.NewSource(1)))
	return g, &now
}

func TestGovernorHourlyLimitBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerHourLimit = 3
	cfg.PerMinuteLimit = 100
	cfg.BurstLimit = 100
	g, _ := testGovernor(t, cfg)

	for i := 0; i < 3; i++ {
		require.True(t, g.CanProceed(), "request %d should fit the budget", i+1)
		g.RecordRequest()
	}
	assert.False(t, g.CanProceed())
}

func TestGovernorHourWindowRolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerHourLimit = 2
	cfg.PerMinuteLimit = 100
	cfg.BurstLimit = 100
	g, now := testGovernor(t, cfg)

	g.RecordRequest()
	g.RecordRequest()
	require.False(t, g.CanProceed())

	*now = now.Add(61 * time.Minute)
	assert.True(t, g.CanProceed())
	assert.Equal(t, 0, g.Snapshot().RequestsThisHour)
}

func TestGovernorMinuteWindowRolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerMinuteLimit = 2
	cfg.BurstLimit = 100
	g, now := testGovernor(t, cfg)

	g.RecordRequest()
	g.RecordRequest()
	require.False(t, g.CanProceed())

	*now = now.Add(61 * time.Second)
	assert.True(t, g.CanProceed())
}

func TestGovernorBurstCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurstLimit = 3
	cfg.Cooldown = 45 * time.Second
	cfg.PerMinuteLimit = 100
	g, now := testGovernor(t, cfg)

	for i := 0; i < 3; i++ {
		g.RecordRequest()
	}
	assert.False(t, g.CanProceed(), "burst budget spent, inside cooldown")

	*now = now.Add(46 * time.Second)
	assert.True(t, g.CanProceed(), "crossing the cooldown ends the burst")

	// The burst counter was reset by the crossing.
	g.RecordRequest()
	assert.True(t, g.CanProceed())
}

func TestGovernorWaitTimeBounds(t *testing.T) {
	cfg := DefaultConfig()
	g, _ := testGovernor(t, cfg)

	lo := time.Duration(float64(cfg.MinDelay) * (1 - cfg.JitterFraction))
	hi := time.Duration(float64(cfg.MaxDelay) * (1 + cfg.JitterFraction))
	for i := 0; i < 200; i++ {
		d := g.WaitTime()
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
}

func TestGovernorAdaptiveInterval(t *testing.T) {
	base := 90 * time.Second

	t.Run("unpressured returns base", func(t *testing.T) {
		g, _ := testGovernor(t, DefaultConfig())
		assert.Equal(t, base, g.AdaptiveInterval(base))
	})

	t.Run("heavy usage stretches by half", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PerHourLimit = 10
		cfg.PerMinuteLimit = 100
		cfg.BurstLimit = 100
		g, _ := testGovernor(t, cfg)
		for i := 0; i < 9; i++ {
			g.RecordRequest()
		}
		assert.Equal(t, time.Duration(float64(base)*1.5), g.AdaptiveInterval(base))
	})

	t.Run("blocked floors at five minutes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PerHourLimit = 1
		cfg.PerMinuteLimit = 100
		cfg.BurstLimit = 100
		g, _ := testGovernor(t, cfg)
		g.RecordRequest()
		assert.Equal(t, 5*time.Minute, g.AdaptiveInterval(base))
	})

	t.Run("blocked doubles long bases", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PerHourLimit = 1
		cfg.PerMinuteLimit = 100
		cfg.BurstLimit = 100
		g, _ := testGovernor(t, cfg)
		g.RecordRequest()
		assert.Equal(t, 8*time.Minute, g.AdaptiveInterval(4*time.Minute))
	})
}

func TestGovernorAdaptiveIntervalMinutePressureSurvivesHourRollover(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurstLimit = 100
	g, now := testGovernor(t, cfg)

	// Fill the minute budget just before the hour window expires.
	*now = now.Add(59*time.Minute + 30*time.Second)
	for i := 0; i < cfg.PerMinuteLimit; i++ {
		g.RecordRequest()
	}

	// The hour window has lapsed but the minute budget still binds.
	*now = now.Add(50 * time.Second)
	assert.Equal(t, 5*time.Minute, g.AdaptiveInterval(90*time.Second))
}

func TestGovernorAdaptiveIntervalIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurstLimit = 3
	cfg.PerMinuteLimit = 100
	g, _ := testGovernor(t, cfg)

	for i := 0; i < 3; i++ {
		g.RecordRequest()
	}
	before := g.Snapshot()

	first := g.AdaptiveInterval(90 * time.Second)
	second := g.AdaptiveInterval(90 * time.Second)

	assert.Equal(t, first, second)
	assert.Equal(t, before, g.Snapshot(), "computing the interval must not mutate counters")
}

func TestGovernorSnapshot(t *testing.T) {
	g, _ := testGovernor(t, DefaultConfig())
	g.RecordRequest()
	g.RecordRequest()

	snap := g.Snapshot()
	assert.Equal(t, 2, snap.RequestsThisHour)
	assert.Equal(t, 2, snap.RequestsThisMinute)
	assert.Equal(t, 2, snap.ConsecutiveRequests)
	assert.Equal(t, 40, snap.PerHourLimit)
}

// Package antidetect paces outbound marketplace requests so the aggregate
// traffic profile stays under per-hour and per-minute budgets and never shows
// a fixed-interval fingerprint.
package antidetect

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the governor's rate and pacing budgets.
type Config struct {
	PerHourLimit   int
	PerMinuteLimit int
	BurstLimit     int
	Cooldown       time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// DefaultConfig returns the default anti-detection budgets.
func DefaultConfig() Config {
	return Config{
		PerHourLimit:   40,
		PerMinuteLimit: 8,
		BurstLimit:     3,
		Cooldown:       45 * time.Second,
		MinDelay:       2 * time.Second,
		MaxDelay:       8 * time.Second,
		JitterFraction: 0.25,
	}
}

// Governor is the process-wide request pacer. Exactly one instance governs
// all sources; discovery is sequential by design so this is the single
// authority over the outbound request rate.
type Governor struct {
	mu sync.Mutex

	config Config
	logger zerolog.Logger

	requestsThisHour    int
	requestsThisMinute  int
	consecutiveRequests int
	lastRequestTime     time.Time
	hourWindowStart     time.Time
	minuteWindowStart   time.Time

	now  func() time.Time
	rand *rand.Rand
}

// NewGovernor creates a governor with the given budgets.
func NewGovernor(config Config, logger zerolog.Logger) *Governor {
	if config.PerHourLimit <= 0 {
		config = DefaultConfig()
	}
	now := time.Now()
	return &Governor{
		config:            config,
		logger:            logger.With().Str("component", "antidetect").Logger(),
		hourWindowStart:   now,
		minuteWindowStart: now,
		now:               time.Now,
		rand:              rand.New(rand.NewSource(now.UnixNano())),
	}
}

// SetClock overrides the governor's clock. Intended for tests.
func (g *Governor) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	g.hourWindowStart = now()
	g.minuteWindowStart = now()
}

// SetRand overrides the governor's random source. Intended for tests.
func (g *Governor) SetRand(r *rand.Rand) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rand = r
}

// resetWindows rolls the sliding windows forward. Caller must hold g.mu.
func (g *Governor) resetWindows(now time.Time) {
	if now.Sub(g.hourWindowStart) > time.Hour {
		g.requestsThisHour = 0
		g.hourWindowStart = now
	}
	if now.Sub(g.minuteWindowStart) > time.Minute {
		g.requestsThisMinute = 0
		g.minuteWindowStart = now
	}
}

// CanProceed reports whether a new outbound request fits the budgets.
func (g *Governor) CanProceed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.resetWindows(now)

	if g.requestsThisHour >= g.config.PerHourLimit {
		return false
	}
	if g.requestsThisMinute >= g.config.PerMinuteLimit {
		return false
	}
	if g.consecutiveRequests >= g.config.BurstLimit {
		if now.Sub(g.lastRequestTime) < g.config.Cooldown {
			return false
		}
		// Crossing the cooldown boundary ends the burst.
		g.consecutiveRequests = 0
	}
	return true
}

// RecordRequest accounts for one outbound request.
func (g *Governor) RecordRequest() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.resetWindows(now)

	g.requestsThisHour++
	g.requestsThisMinute++
	g.consecutiveRequests++
	g.lastRequestTime = now
}

// WaitTime draws a pacing delay uniformly from [MinDelay, MaxDelay],
// perturbed by the jitter fraction so successive delays never repeat.
func (g *Governor) WaitTime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	span := g.config.MaxDelay - g.config.MinDelay
	base := g.config.MinDelay
	if span > 0 {
		base += time.Duration(g.rand.Int63n(int64(span)))
	}
	jitter := (g.rand.Float64()*2 - 1) * g.config.JitterFraction
	d := time.Duration(float64(base) * (1 + jitter))
	if d < 0 {
		d = 0
	}
	return d
}

// AdaptiveInterval computes the orchestrator's next cycle delay from the
// current rate-limit pressure. It is idempotent for unchanged state.
func (g *Governor) AdaptiveInterval(base time.Duration) time.Duration {
	g.mu.Lock()
	blocked := !g.canProceedLocked()
	usage := 0.0
	if g.config.PerHourLimit > 0 {
		usage = float64(g.requestsThisHour) / float64(g.config.PerHourLimit)
	}
	g.mu.Unlock()

	if blocked {
		doubled := 2 * base
		if doubled < 5*time.Minute {
			return 5 * time.Minute
		}
		return doubled
	}
	if usage > 0.8 {
		return time.Duration(float64(base) * 1.5)
	}
	return base
}

// canProceedLocked mirrors CanProceed without mutating window or burst
// state: each budget is ignored only when its own window has expired.
// Caller must hold g.mu.
func (g *Governor) canProceedLocked() bool {
	now := g.now()
	if now.Sub(g.hourWindowStart) <= time.Hour && g.requestsThisHour >= g.config.PerHourLimit {
		return false
	}
	if now.Sub(g.minuteWindowStart) <= time.Minute && g.requestsThisMinute >= g.config.PerMinuteLimit {
		return false
	}
	if g.consecutiveRequests >= g.config.BurstLimit && now.Sub(g.lastRequestTime) < g.config.Cooldown {
		return false
	}
	return true
}

// Snapshot captures the governor counters for the metrics surface.
type Snapshot struct {
	RequestsThisHour    int       `json:"requestsThisHour"`
	RequestsThisMinute  int       `json:"requestsThisMinute"`
	ConsecutiveRequests int       `json:"consecutiveRequests"`
	LastRequest         time.Time `json:"lastRequest,omitempty"`
	PerHourLimit        int       `json:"perHourLimit"`
	PerMinuteLimit      int       `json:"perMinuteLimit"`
}

// Snapshot returns a point-in-time view of the governor counters.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		RequestsThisHour:    g.requestsThisHour,
		RequestsThisMinute:  g.requestsThisMinute,
		ConsecutiveRequests: g.consecutiveRequests,
		LastRequest:         g.lastRequestTime,
		PerHourLimit:        g.config.PerHourLimit,
		PerMinuteLimit:      g.config.PerMinuteLimit,
	}
}

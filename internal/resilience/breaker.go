// Package resilience guards unhealthy marketplace sources with per-source
// circuit breakers so a degraded upstream is skipped instead of hammered.
package resilience

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BreakerState represents the state of the circuit breaker.
type BreakerState int

const (
	// StateClosed allows hunts to pass through.
	StateClosed BreakerState = iota

	// StateOpen skips the source entirely.
	StateOpen

	// StateHalfOpen allows trial hunts to check whether the source recovered.
	StateHalfOpen
)

// String returns the string representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of whole-hunt failures before opening.
	FailureThreshold int

	// OpenTimeout is how long an open breaker waits before a half-open trial.
	OpenTimeout time.Duration

	// HalfOpenTrialBudget is the number of consecutive successful hunts
	// required in half-open state to close the breaker.
	HalfOpenTrialBudget int
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		OpenTimeout:         5 * time.Minute,
		HalfOpenTrialBudget: 3,
	}
}

// Breaker implements the circuit breaker pattern for one source.
//
// A failure is recorded only at whole-hunt granularity: a single 401 or 404
// while probing endpoints does not trip it, only a hunt that ends with zero
// tasks and an error does.
type Breaker struct {
	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int // meaningful only in half-open state
	lastFailureTime time.Time
	config          BreakerConfig
	logger          zerolog.Logger
	source          string
	now             func() time.Time
}

// NewBreaker creates a circuit breaker for the named source.
func NewBreaker(source string, config BreakerConfig, logger zerolog.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config = DefaultBreakerConfig()
	}
	return &Breaker{
		state:  StateClosed,
		config: config,
		logger: logger.With().Str("component", "breaker").Str("source", source).Logger(),
		source: source,
		now:    time.Now,
	}
}

// SetClock overrides the breaker's clock. Intended for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// IsAvailable reports whether the source may be hunted. It has no side
// effects except the time-based open -> half-open transition.
func (b *Breaker) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) > b.config.OpenTimeout {
			b.state = StateHalfOpen
			b.successCount = 0
			b.logger.Info().Msg("Breaker transitioning to half-open")
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a hunt that produced tasks.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.HalfOpenTrialBudget {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			b.logger.Info().Msg("Breaker closed after successful recovery")
		}
	}
}

// RecordFailure records a hunt that errored with zero tasks.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
			b.logger.Warn().
				Int("failure_count", b.failureCount).
				Dur("open_timeout", b.config.OpenTimeout).
				Msg("Breaker opened after repeated hunt failures")
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successCount = 0
		b.logger.Warn().Msg("Breaker re-opened after failure in half-open state")
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Snapshot captures the breaker state for the metrics surface.
type Snapshot struct {
	Source       string    `json:"source"`
	State        string    `json:"state"`
	FailureCount int       `json:"failureCount"`
	LastFailure  time.Time `json:"lastFailure,omitempty"`
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Source:       b.source,
		State:        b.state.String(),
		FailureCount: b.failureCount,
		LastFailure:  b.lastFailureTime,
	}
}

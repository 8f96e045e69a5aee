// Package security holds the heuristic validation applied before any task is
// handed to the execution backend, plus the startup-time token and address
// checks.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/scavenger/hunter-service/internal/types"
)

// Config tunes the dispatch pre-check.
type Config struct {
	RewardCeiling float64       // rewards above this are treated as bait
	MaxDuration   time.Duration // tasks longer than this are rejected
}

// DefaultConfig returns the default sanity limits.
func DefaultConfig() Config {
	return Config{
		RewardCeiling: 100,
		MaxDuration:   24 * time.Hour,
	}
}

// RejectionError marks a task that failed the fail-closed pre-check.
type RejectionError struct {
	TaskID string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("task %s rejected: %s", e.TaskID, e.Reason)
}

// sensitivePatterns flag instructions that fish for credentials or secrets.
// Anything matching is rejected regardless of score.
var sensitivePatterns = []string{
	"password", "passphrase", "seed phrase", "private key", "recovery phrase",
	"credit card", "cvv", "card number", "bank login", "ssn",
	"social security", "2fa code", "verification code", "wallet backup",
}

// Validator runs the heuristic checks.
type Validator struct {
	config Config
}

// NewValidator creates a validator.
func NewValidator(config Config) *Validator {
	if config.RewardCeiling <= 0 {
		config = DefaultConfig()
	}
	return &Validator{config: config}
}

// PreCheck rejects tasks that look like scams or traps before dispatch.
// Rejection is fail-closed: when in doubt, the task does not run.
func (v *Validator) PreCheck(task *types.Task) error {
	if task.Reward > v.config.RewardCeiling {
		return &RejectionError{TaskID: task.ID, Reason: fmt.Sprintf("reward %.2f above sanity ceiling", task.Reward)}
	}
	if time.Duration(task.EstimatedDuration)*time.Second > v.config.MaxDuration {
		return &RejectionError{TaskID: task.ID, Reason: "duration exceeds 24h"}
	}

	text := strings.ToLower(task.Title + " " + task.Description)
	for _, p := range sensitivePatterns {
		if strings.Contains(text, p) {
			return &RejectionError{TaskID: task.ID, Reason: "instructions request sensitive data: " + p}
		}
	}
	return nil
}

// weakTokens are credentials that show up in every leaked-config corpus.
var weakTokens = map[string]bool{
	"changeme": true, "secret": true, "password": true, "test": true,
	"admin": true, "token": true, "apikey": true, "12345678": true,
}

// IsWeakToken reports whether a configured credential is too guessable to
// trust: short, a known placeholder, or a single repeated character.
func IsWeakToken(token string) bool {
	t := strings.TrimSpace(strings.ToLower(token))
	if len(t) < 16 {
		return true
	}
	if weakTokens[t] {
		return true
	}
	first := t[0]
	for i := 1; i < len(t); i++ {
		if t[i] != first {
			return false
		}
	}
	return true
}

var (
	btcAddressRe = regexp.MustCompile(`^(bc1[02-9ac-hj-np-z]{11,87}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`)
	ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// IsValidAddress heuristically checks a payout address format (BTC or ETH).
// Format-level only; no checksum or on-chain validation.
func IsValidAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	return btcAddressRe.MatchString(addr) || ethAddressRe.MatchString(addr)
}

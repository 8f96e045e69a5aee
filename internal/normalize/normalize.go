// Package normalize maps heterogeneous raw marketplace payloads into
// canonical Task records. Providers disagree on field names, units, and
// types, so every canonical field resolves through an ordered list of
// alternates.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/types"
)

// Config tunes the normalizer's floors and defaults.
type Config struct {
	MinReward       float64 // tasks at or below this are dropped
	DefaultReward   float64 // assumed when no reward field resolves
	MinDurationSec  int
	DefaultDuration int // seconds, when no duration field resolves
	MinTitleLen     int
}

// DefaultConfig returns the default normalizer settings.
func DefaultConfig() Config {
	return Config{
		MinReward:       0.01,
		DefaultReward:   0.05,
		MinDurationSec:  60,
		DefaultDuration: 300,
		MinTitleLen:     3,
	}
}

// Field alternates, in resolution order. First present wins.
var (
	titleKeys    = []string{"title", "name", "task_title", "taskName", "job_title", "subject", "campaign_title"}
	descKeys     = []string{"description", "desc", "details", "instructions", "task_description", "summary"}
	rewardKeys   = []string{"reward", "payment", "amount", "price", "payout", "compensation", "pay"}
	durationKeys = []string{"estimated_duration", "duration", "estimated_time", "time_required", "eta", "minutes", "duration_minutes", "time_to_complete"}
	deadlineKeys = []string{"deadline", "expires_at", "expiry", "expiration", "ends_at", "valid_until"}
	idKeys       = []string{"id", "task_id", "job_id", "campaign_id", "uid", "slug"}
)

// categoryKeywords maps taxonomy buckets to the title/description keywords
// that imply them. Checked in Categories() order, first hit wins.
var categoryKeywords = map[types.Category][]string{
	types.CategorySearch:    {"search", "google", "find", "lookup", "query"},
	types.CategoryWebsite:   {"website", "visit", "review site", "browse", "page", "click"},
	types.CategorySocial:    {"instagram", "facebook", "twitter", "tiktok", "like", "follow", "share", "social"},
	types.CategoryDataEntry: {"data entry", "typing", "transcribe", "copy paste", "spreadsheet"},
	types.CategorySurvey:    {"survey", "questionnaire", "opinion", "poll"},
	types.CategoryVideo:     {"video", "youtube", "watch", "stream"},
	types.CategorySignup:    {"signup", "sign up", "register", "create account", "join"},
	types.CategoryWriting:   {"write", "article", "blog", "content", "essay", "review product"},
}

// Normalizer converts raw candidates into validated tasks.
type Normalizer struct {
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a normalizer.
func New(config Config, logger zerolog.Logger) *Normalizer {
	if config.MinDurationSec <= 0 {
		config = DefaultConfig()
	}
	return &Normalizer{
		config: config,
		logger: logger.With().Str("component", "normalizer").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the normalizer's clock. Intended for tests.
func (n *Normalizer) SetClock(now func() time.Time) { n.now = now }

// NormalizeAll converts a batch, silently dropping malformed candidates.
func (n *Normalizer) NormalizeAll(raw []types.RawTask) []*types.Task {
	out := make([]*types.Task, 0, len(raw))
	for _, r := range raw {
		task, ok := n.Normalize(r)
		if !ok {
			continue
		}
		out = append(out, task)
	}
	return out
}

// Normalize converts one raw candidate. The second return is false when the
// candidate fails validation (missing title, reward at or under the floor).
func (n *Normalizer) Normalize(raw types.RawTask) (*types.Task, bool) {
	title := strings.TrimSpace(firstString(raw.Payload, titleKeys))
	if len(title) < n.config.MinTitleLen {
		return nil, false
	}

	reward := n.resolveReward(raw.Payload)
	if reward <= n.config.MinReward {
		return nil, false
	}

	now := n.now()
	task := &types.Task{
		ID:                fmt.Sprintf("%s:%s", raw.SourceName, n.resolveID(raw.Payload, title)),
		Title:             title,
		Description:       strings.TrimSpace(firstString(raw.Payload, descKeys)),
		Category:          n.inferCategory(title, firstString(raw.Payload, descKeys)),
		Reward:            reward,
		EstimatedDuration: n.resolveDuration(raw.Payload),
		Deadline:          n.resolveDeadline(raw.Payload, now),
		SourceName:        raw.SourceName,
		DiscoveryMethod:   raw.Method,
		Status:            types.StatusQueued,
		CreatedAt:         now,
	}

	if payload, err := json.Marshal(raw.Payload); err == nil {
		task.RawPayload = payload
	}

	return task, true
}

// resolveID finds a provider id or derives a stable fallback from the title.
func (n *Normalizer) resolveID(payload map[string]any, title string) string {
	for _, key := range idKeys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, slug)
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug
}

// resolveReward accepts numeric values, currency-laden numeric strings, and
// {amount: ...} objects, defaulting to the configured minimum.
func (n *Normalizer) resolveReward(payload map[string]any) float64 {
	for _, key := range rewardKeys {
		v, ok := payload[key]
		if !ok {
			continue
		}
		if amount, ok := parseAmount(v); ok {
			return amount
		}
	}
	return n.config.DefaultReward
}

func parseAmount(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.Trim(cleaned, "$€£ ")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f, true
		}
	case map[string]any:
		if amount, ok := val["amount"]; ok {
			return parseAmount(amount)
		}
	}
	return 0, false
}

// resolveDuration coerces minute- or second-labelled values into seconds,
// floored at the configured minimum.
func (n *Normalizer) resolveDuration(payload map[string]any) int {
	for _, key := range durationKeys {
		v, ok := payload[key]
		if !ok {
			continue
		}
		num, ok := parseAmount(v)
		if !ok || num <= 0 {
			continue
		}
		seconds := int(num)
		if isMinuteKey(key) {
			seconds = int(num * 60)
		} else if num <= 120 {
			// Small unlabelled values are almost always minutes; nobody
			// advertises a 90-second task as "90".
			seconds = int(num * 60)
		}
		if seconds < n.config.MinDurationSec {
			seconds = n.config.MinDurationSec
		}
		return seconds
	}
	return n.config.DefaultDuration
}

func isMinuteKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "min") || key == "eta"
}

// resolveDeadline parses common timestamp shapes, defaulting to 24h out.
func (n *Normalizer) resolveDeadline(payload map[string]any, now time.Time) time.Time {
	for _, key := range deadlineKeys {
		v, ok := payload[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, val); err == nil {
					return t
				}
			}
		case float64:
			// Unix seconds.
			if val > 1e9 {
				return time.Unix(int64(val), 0)
			}
		}
	}
	return now.Add(24 * time.Hour)
}

// inferCategory keyword-matches against the fixed taxonomy.
func (n *Normalizer) inferCategory(title, description string) types.Category {
	haystack := strings.ToLower(title + " " + description)
	for _, cat := range types.Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(haystack, kw) {
				return cat
			}
		}
	}
	return types.CategoryGeneral
}

// firstString returns the first non-empty string value among the keys.
func firstString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

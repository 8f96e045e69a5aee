// Package scoring computes the composite desirability score for discovered
// tasks and learns per-cohort success rates from dispatch outcomes.
package scoring

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/types"
)

// Weights are the fixed signal weights of the composite score.
type Weights struct {
	SuccessRate   float64
	Profitability float64
	Automation    float64
	Ease          float64
	Reliability   float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		SuccessRate:   0.30,
		Profitability: 0.25,
		Automation:    0.20,
		Ease:          0.15,
		Reliability:   0.10,
	}
}

// Config tunes the scoring engine.
type Config struct {
	Weights         Weights
	HistoryCap      int     // bounded FIFO outcome history
	MinCohortSize   int     // samples before a learned rate replaces the default
	RewardThreshold float64 // ease bonus boundary
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		HistoryCap:      500,
		MinCohortSize:   3,
		RewardThreshold: 0.5,
	}
}

// Analysis is the scoring engine's verdict on one task.
type Analysis struct {
	TotalScore              float64              `json:"totalScore"`
	Breakdown               types.ScoreBreakdown `json:"breakdown"`
	Recommendation          string               `json:"recommendation"`
	AutomationLevel         float64              `json:"automationLevel"`
	EstimatedCompletionTime int                  `json:"estimatedCompletionTime"` // seconds
	ProfitPerHour           float64              `json:"profitPerHour"`
}

// Outcome is one historical dispatch result used for learning.
type Outcome struct {
	SourceName string
	Category   types.Category
	Reward     float64
	Success    bool
	At         time.Time
}

// categoryDefaults are the static success-rate priors used until a cohort has
// enough samples.
var categoryDefaults = map[types.Category]float64{
	types.CategorySearch:    75,
	types.CategoryWebsite:   70,
	types.CategorySocial:    50,
	types.CategoryDataEntry: 60,
	types.CategorySurvey:    55,
	types.CategoryVideo:     65,
	types.CategorySignup:    45,
	types.CategoryWriting:   35,
	types.CategoryGeneral:   50,
}

// sourceReliability are static per-source reliability bases.
var sourceReliability = map[string]float64{
	"microworkers": 70,
	"clickworker":  75,
	"rapidworkers": 55,
	"picoworkers":  50,
}

// Automation keyword tiers. An impossible keyword forces zero; otherwise the
// highest matching tier wins.
var (
	impossibleKeywords = []string{"captcha", "phone verification", "sms verification", "id verification", "selfie", "video call", "kyc"}
	highAutoKeywords   = []string{"search", "click", "visit", "view", "browse", "open link"}
	mediumAutoKeywords = []string{"signup", "register", "download", "install", "vote", "subscribe", "follow"}
	lowAutoKeywords    = []string{"write", "review", "comment", "describe", "record", "screenshot"}
)

// Ease keywords: easy hits lower the difficulty accumulator, hard hits raise
// it; the accumulator is inverted into the ease signal.
var (
	easyKeywords = []string{"simple", "easy", "quick", "basic", "just"}
	hardKeywords = []string{"complex", "detailed", "advanced", "creative", "original", "unique"}
)

// Engine scores tasks and folds dispatch outcomes back into cohort rates.
type Engine struct {
	mu      sync.Mutex
	config  Config
	history []Outcome
	// rates caches learned success percentages per cohort key once the
	// cohort reaches MinCohortSize.
	rates  map[string]cohortRate
	logger zerolog.Logger
	now    func() time.Time
}

type cohortRate struct {
	rate    float64 // 0-100
	samples int
}

// NewEngine creates a scoring engine.
func NewEngine(config Config, logger zerolog.Logger) *Engine {
	if config.HistoryCap <= 0 {
		config = DefaultConfig()
	}
	return &Engine{
		config: config,
		rates:  make(map[string]cohortRate),
		logger: logger.With().Str("component", "scoring").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the engine's clock. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func sourceCohortKey(source string, cat types.Category) string {
	return source + "|" + string(cat)
}

// rewardBand buckets rewards so tasks of similar pay share a fallback cohort.
func rewardBand(reward float64) string {
	switch {
	case reward >= 1.0:
		return "high"
	case reward >= 0.25:
		return "mid"
	default:
		return "low"
	}
}

func categoryCohortKey(cat types.Category, reward float64) string {
	return string(cat) + "|" + rewardBand(reward)
}

// Analyze computes the composite score for a task.
func (e *Engine) Analyze(task *types.Task) *Analysis {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.config.Weights
	text := strings.ToLower(task.Title + " " + task.Description)

	successRate, learned := e.successRateLocked(task)
	profitability := profitabilityScore(task.HourlyRate())
	automation := automationScore(text)
	ease := e.easeScore(text, task)
	reliability := e.reliabilityScore(task)
	bonus := e.learningBonusLocked(task, learned)

	total := successRate*w.SuccessRate +
		profitability*w.Profitability +
		automation*w.Automation +
		ease*w.Ease +
		reliability*w.Reliability +
		bonus
	total = clamp(total, 0, 100)

	return &Analysis{
		TotalScore: total,
		Breakdown: types.ScoreBreakdown{
			SuccessRate:   successRate,
			Profitability: profitability,
			Automation:    automation,
			Ease:          ease,
			Reliability:   reliability,
			LearningBonus: bonus,
			Total:         total,
		},
		Recommendation:          Recommendation(total),
		AutomationLevel:         automation,
		EstimatedCompletionTime: task.EstimatedDuration,
		ProfitPerHour:           task.HourlyRate(),
	}
}

// Recommendation buckets a total score into an action hint.
func Recommendation(total float64) string {
	switch {
	case total >= 85:
		return "execute immediately"
	case total >= 70:
		return "high priority"
	case total >= 55:
		return "consider"
	case total >= 40:
		return "low priority"
	default:
		return "skip"
	}
}

// successRateLocked returns the learned cohort rate when enough samples
// exist, otherwise the static category default. Caller must hold e.mu.
func (e *Engine) successRateLocked(task *types.Task) (rate float64, learned bool) {
	if r, ok := e.rates[sourceCohortKey(task.SourceName, task.Category)]; ok && r.samples >= e.config.MinCohortSize {
		return r.rate, true
	}
	if r, ok := e.rates[categoryCohortKey(task.Category, task.Reward)]; ok && r.samples >= e.config.MinCohortSize {
		return r.rate, true
	}
	if d, ok := categoryDefaults[task.Category]; ok {
		return d, false
	}
	return categoryDefaults[types.CategoryGeneral], false
}

// profitabilityScore buckets the implied hourly rate against fixed tiers.
func profitabilityScore(hourly float64) float64 {
	switch {
	case hourly >= 15:
		return 100
	case hourly >= 10:
		return 85
	case hourly >= 5:
		return 70
	case hourly >= 3:
		return 55
	case hourly >= 2:
		return 40
	case hourly >= 1:
		return 25
	default:
		return 10
	}
}

// automationScore classifies how automatable the task text looks.
func automationScore(text string) float64 {
	for _, kw := range impossibleKeywords {
		if strings.Contains(text, kw) {
			return 0
		}
	}
	for _, kw := range highAutoKeywords {
		if strings.Contains(text, kw) {
			return 95
		}
	}
	for _, kw := range mediumAutoKeywords {
		if strings.Contains(text, kw) {
			return 70
		}
	}
	for _, kw := range lowAutoKeywords {
		if strings.Contains(text, kw) {
			return 45
		}
	}
	return 35
}

// easeScore accumulates difficulty hints and inverts them: high output means
// an easy task.
func (e *Engine) easeScore(text string, task *types.Task) float64 {
	difficulty := 50.0
	for _, kw := range easyKeywords {
		if strings.Contains(text, kw) {
			difficulty -= 10
		}
	}
	for _, kw := range hardKeywords {
		if strings.Contains(text, kw) {
			difficulty += 15
		}
	}
	if task.EstimatedDuration > 30*60 {
		difficulty += 20
	} else if task.EstimatedDuration < 5*60 {
		difficulty -= 15
	}
	if task.Reward >= e.config.RewardThreshold {
		difficulty += 25
	} else {
		difficulty -= 10
	}
	return 100 - clamp(difficulty, 0, 100)
}

// reliabilityScore rates the source, nudged by discovery method and task age.
func (e *Engine) reliabilityScore(task *types.Task) float64 {
	base, ok := sourceReliability[task.SourceName]
	if !ok {
		base = 50
	}
	if task.DiscoveryMethod == types.DiscoveryScrape {
		// Listings visible on the public page tend to be real jobs, unlike
		// stale API campaign entries.
		base += 5
	}
	if task.Age(e.now()) < 5*time.Minute {
		base -= 5
	}
	return clamp(base, 0, 100)
}

// learningBonusLocked grants 0/5/10/15 extra points once a cohort has
// history. Caller must hold e.mu.
func (e *Engine) learningBonusLocked(task *types.Task, learned bool) float64 {
	if !learned {
		return 0
	}
	r, ok := e.rates[sourceCohortKey(task.SourceName, task.Category)]
	if !ok || r.samples < e.config.MinCohortSize {
		r, ok = e.rates[categoryCohortKey(task.Category, task.Reward)]
		if !ok {
			return 0
		}
	}
	switch {
	case r.samples >= 10 && r.rate >= 80:
		return 15
	case r.samples >= 5 && r.rate >= 60:
		return 10
	default:
		return 5
	}
}

// LearnFromOutcome appends a dispatch outcome to the bounded history and
// recomputes the affected cohort rates.
func (e *Engine) LearnFromOutcome(task *types.Task, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, Outcome{
		SourceName: task.SourceName,
		Category:   task.Category,
		Reward:     task.Reward,
		Success:    success,
		At:         e.now(),
	})
	if len(e.history) > e.config.HistoryCap {
		e.history = e.history[len(e.history)-e.config.HistoryCap:]
	}

	e.recomputeLocked(sourceCohortKey(task.SourceName, task.Category), func(o Outcome) bool {
		return o.SourceName == task.SourceName && o.Category == task.Category
	})
	e.recomputeLocked(categoryCohortKey(task.Category, task.Reward), func(o Outcome) bool {
		return o.Category == task.Category && rewardBand(o.Reward) == rewardBand(task.Reward)
	})
}

func (e *Engine) recomputeLocked(key string, match func(Outcome) bool) {
	var total, won int
	for _, o := range e.history {
		if match(o) {
			total++
			if o.Success {
				won++
			}
		}
	}
	if total < e.config.MinCohortSize {
		delete(e.rates, key)
		return
	}
	e.rates[key] = cohortRate{
		rate:    100 * float64(won) / float64(total),
		samples: total,
	}
}

// HistoryLen returns the current outcome history length.
func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// CohortRate exposes a learned rate for diagnostics.
func (e *Engine) CohortRate(source string, cat types.Category) (float64, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rates[sourceCohortKey(source, cat)]
	return r.rate, r.samples, ok
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Package orchestrator drives the main discovery-and-dispatch cycle: drain
// the queue, feed the execution backend, refill from the hunter when the
// working set runs low, and reschedule itself on the adaptive interval.
package orchestrator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/archive"
	"github.com/scavenger/hunter-service/internal/backend"
	"github.com/scavenger/hunter-service/internal/dedup"
	"github.com/scavenger/hunter-service/internal/normalize"
	"github.com/scavenger/hunter-service/internal/queue"
	"github.com/scavenger/hunter-service/internal/resilience"
	"github.com/scavenger/hunter-service/internal/scoring"
	"github.com/scavenger/hunter-service/internal/security"
	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/types"
)

// Discoverer is the slice of the hunter the orchestrator needs. Narrowed to
// an interface so tests can stub discovery.
type Discoverer interface {
	HuntAll(ctx context.Context) []types.RawTask
	BreakerSnapshots() []resilience.Snapshot
}

// Config tunes the orchestrator cycle.
type Config struct {
	BaseInterval  time.Duration
	LowWaterMark  int
	TopK          int
	SkipThreshold float64 // smart scores below this never enter the queue
	HistoryCap    int     // bounded completed/failed history length
}

// DefaultConfig returns the default cycle settings.
func DefaultConfig() Config {
	return Config{
		BaseInterval:  90 * time.Second,
		LowWaterMark:  5,
		TopK:          dedup.DefaultTopK,
		SkipThreshold: 60,
		HistoryCap:    100,
	}
}

// categoryWeights feed the initial priority ordering; categories the backend
// handles well rank higher.
var categoryWeights = map[types.Category]float64{
	types.CategorySearch:    3,
	types.CategoryWebsite:   2.5,
	types.CategoryDataEntry: 2,
	types.CategorySurvey:    2,
	types.CategorySocial:    1.5,
	types.CategoryVideo:     1.5,
	types.CategorySignup:    1,
	types.CategoryWriting:   0.5,
	types.CategoryGeneral:   1,
}

// HistoryEntry is one completed or failed dispatch kept for the operator
// surface.
type HistoryEntry struct {
	TaskID     string    `json:"taskId"`
	Title      string    `json:"title"`
	SourceName string    `json:"sourceName"`
	Reward     float64   `json:"reward"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Orchestrator owns the cycle loop and all outcome bookkeeping.
type Orchestrator struct {
	config    Config
	queue     *queue.Queue
	hunter    Discoverer
	normal    *normalize.Normalizer
	engine    *scoring.Engine
	validator *security.Validator
	governor  *antidetect.Governor
	registry  *sources.Registry
	backend   backend.ExecutionBackend
	seen      *dedup.SeenStore
	archive   *archive.Archive
	metrics   *MetricsRecorder
	logger    zerolog.Logger
	now       func() time.Time

	mu               sync.Mutex
	tasksCompleted   int
	tasksSuccessful  int
	tasksFailed      int
	tasksSuspicious  int
	totalEarnings    float64
	pacedBreakCount  int
	automationRate   float64
	currentInterval  time.Duration
	completedHistory []HistoryEntry
	failedHistory    []HistoryEntry

	timer  *time.Timer
	stopCh chan struct{}
	stopMu sync.Mutex
	done   chan struct{}
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Queue     *queue.Queue
	Hunter    Discoverer
	Normal    *normalize.Normalizer
	Engine    *scoring.Engine
	Validator *security.Validator
	Governor  *antidetect.Governor
	Registry  *sources.Registry
	Backend   backend.ExecutionBackend
	Seen      *dedup.SeenStore
	Archive   *archive.Archive
}

// New creates an orchestrator. Every shared component is passed in
// explicitly; nothing here is ambient, so tests construct isolated instances.
func New(config Config, deps Deps, logger zerolog.Logger) *Orchestrator {
	if config.BaseInterval <= 0 {
		config = DefaultConfig()
	}
	return &Orchestrator{
		config:          config,
		queue:           deps.Queue,
		hunter:          deps.Hunter,
		normal:          deps.Normal,
		engine:          deps.Engine,
		validator:       deps.Validator,
		governor:        deps.Governor,
		registry:        deps.Registry,
		backend:         deps.Backend,
		seen:            deps.Seen,
		archive:         deps.Archive,
		metrics:         NewMetricsRecorder(),
		logger:          logger.With().Str("component", "orchestrator").Logger(),
		now:             time.Now,
		currentInterval: config.BaseInterval,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// SetClock overrides the orchestrator's clock. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

// clockNow reads the clock without racing SetClock. Code already holding
// o.mu calls o.now directly.
func (o *Orchestrator) clockNow() time.Time {
	o.mu.Lock()
	now := o.now
	o.mu.Unlock()
	return now()
}

// Start launches the cycle loop. The first cycle runs immediately; each
// subsequent one is scheduled by a cancellable single-shot timer so a slow
// cycle can never overlap the next.
func (o *Orchestrator) Start(ctx context.Context) {
	o.timer = time.NewTimer(0)
	go o.loop(ctx)
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			o.timer.Stop()
			return
		case <-o.stopCh:
			o.timer.Stop()
			return
		case <-o.timer.C:
		}

		o.RunCycle(ctx)

		next := o.governor.AdaptiveInterval(o.config.BaseInterval)
		o.mu.Lock()
		o.currentInterval = next
		o.mu.Unlock()
		o.metrics.RecordAdaptiveInterval(next)
		o.timer.Reset(next)
	}
}

// Stop cancels the pending reschedule and waits for the loop to exit.
func (o *Orchestrator) Stop() {
	if o.timer == nil {
		return // never started
	}
	o.stopMu.Lock()
	select {
	case <-o.stopCh:
	default:
		close(o.stopCh)
	}
	o.stopMu.Unlock()
	<-o.done
	o.logger.Info().Msg("Orchestrator stopped")
}

// RunCycle executes one cycle. Every step is isolated: a bad cycle logs and
// moves on, it never halts subsequent cycles.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	start := o.clockNow()
	cycleID := uuid.New()
	log := o.logger.With().Str("cycle_id", cycleID.String()).Logger()

	defer func() {
		o.metrics.RecordCycle(o.clockNow().Sub(start))
		o.updateDerived()
	}()

	// A blocked governor means no new discovery traffic: drain one queued
	// task if present and take a paced break.
	if !o.governor.CanProceed() {
		o.mu.Lock()
		o.pacedBreakCount++
		o.mu.Unlock()
		o.metrics.RecordPacedBreak()
		log.Info().Msg("Rate pressure high, taking paced break")

		if task := o.queue.Dequeue(); task != nil {
			o.dispatch(ctx, cycleID, task)
		}
		return
	}

	if task := o.queue.Dequeue(); task != nil {
		o.dispatch(ctx, cycleID, task)
	}

	if o.queue.Len() < o.config.LowWaterMark {
		o.refill(ctx, log)
	}
}

// dispatch hands one task to the execution backend and folds the outcome
// back into the learner, the history, and the archive. Neither path returns
// an error: dispatch failures are bookkeeping, not cycle failures.
func (o *Orchestrator) dispatch(ctx context.Context, cycleID uuid.UUID, task *types.Task) {
	log := o.logger.With().Str("task_id", task.ID).Str("source", task.SourceName).Logger()

	if err := o.validator.PreCheck(task); err != nil {
		o.mu.Lock()
		o.tasksSuspicious++
		o.mu.Unlock()
		o.metrics.RecordDispatch("rejected", 0)
		o.metrics.RecordSuspicious()
		log.Warn().Err(err).Msg("Task failed security pre-check, dropped")
		return
	}

	if err := task.Transition(types.StatusActive); err != nil {
		log.Error().Err(err).Msg("Task in unexpected state, dropped")
		return
	}
	task.Attempts++

	result, err := o.backend.Execute(ctx, task)
	if err != nil || result == nil || !result.Success {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		} else if result != nil {
			errMsg = result.Error
		}
		if result == nil {
			result = &types.ExecutionResult{Success: false, Error: errMsg}
		}
		o.recordFailure(ctx, cycleID, task, result, errMsg)
		log.Warn().Str("error", errMsg).Msg("Task execution failed")
		return
	}

	o.recordSuccess(ctx, cycleID, task, result)
	log.Info().Float64("reward", result.Reward).Msg("Task completed")
}

func (o *Orchestrator) recordSuccess(ctx context.Context, cycleID uuid.UUID, task *types.Task, result *types.ExecutionResult) {
	_ = task.Transition(types.StatusCompleted)

	earned := result.Reward
	if earned <= 0 {
		earned = task.Reward
	}

	o.mu.Lock()
	o.tasksCompleted++
	o.tasksSuccessful++
	o.totalEarnings += earned
	o.completedHistory = appendBounded(o.completedHistory, HistoryEntry{
		TaskID: task.ID, Title: task.Title, SourceName: task.SourceName,
		Reward: earned, Success: true, At: o.now(),
	}, o.config.HistoryCap)
	o.mu.Unlock()

	o.metrics.RecordDispatch("success", earned)
	o.engine.LearnFromOutcome(task, true)
	o.seen.Mark(ctx, dedup.Fingerprint(task))
	o.archive.RecordOutcome(ctx, cycleID, task, result)
}

func (o *Orchestrator) recordFailure(ctx context.Context, cycleID uuid.UUID, task *types.Task, result *types.ExecutionResult, errMsg string) {
	_ = task.Transition(types.StatusFailed)

	o.mu.Lock()
	o.tasksCompleted++
	o.tasksFailed++
	o.failedHistory = appendBounded(o.failedHistory, HistoryEntry{
		TaskID: task.ID, Title: task.Title, SourceName: task.SourceName,
		Reward: task.Reward, Success: false, Error: errMsg, At: o.now(),
	}, o.config.HistoryCap)
	o.mu.Unlock()

	o.metrics.RecordDispatch("failure", 0)
	o.engine.LearnFromOutcome(task, false)
	o.seen.Mark(ctx, dedup.Fingerprint(task))
	o.archive.RecordOutcome(ctx, cycleID, task, result)
}

// refill runs the full discovery pipeline and merges survivors into the
// queue: hunt, normalize, security-screen, score, threshold, dedup,
// truncate, then re-sort by priority.
func (o *Orchestrator) refill(ctx context.Context, log zerolog.Logger) {
	raw := o.hunter.HuntAll(ctx)
	if len(raw) == 0 {
		log.Debug().Msg("Refill found no candidates")
		return
	}

	candidates := o.normal.NormalizeAll(raw)
	perSource := make(map[string]map[types.DiscoveryMethod]int)
	for _, t := range candidates {
		if perSource[t.SourceName] == nil {
			perSource[t.SourceName] = make(map[types.DiscoveryMethod]int)
		}
		perSource[t.SourceName][t.DiscoveryMethod]++
	}
	for src, methods := range perSource {
		for method, n := range methods {
			o.metrics.RecordDiscovered(src, string(method), n)
		}
	}

	scored := make([]*types.Task, 0, len(candidates))
	for _, task := range candidates {
		if err := o.validator.PreCheck(task); err != nil {
			o.mu.Lock()
			o.tasksSuspicious++
			o.mu.Unlock()
			o.metrics.RecordSuspicious()
			continue
		}

		analysis := o.engine.Analyze(task)
		task.SmartScore = analysis.TotalScore
		task.ScoreBreakdown = &analysis.Breakdown
		task.Recommendation = analysis.Recommendation
		if task.SmartScore < o.config.SkipThreshold {
			continue
		}
		scored = append(scored, task)
	}

	unique := dedup.TopK(dedup.Collapse(scored), o.config.TopK)

	fresh := unique[:0:0]
	for _, task := range unique {
		if o.seen.Seen(ctx, dedup.Fingerprint(task)) {
			continue
		}
		task.PriorityScore = o.PriorityScore(task)
		fresh = append(fresh, task)
	}

	accepted := o.queue.Merge(fresh)
	o.queue.Resort()
	log.Info().
		Int("raw", len(raw)).
		Int("scored", len(scored)).
		Int("accepted", accepted).
		Int("queue_len", o.queue.Len()).
		Msg("Queue refilled")
}

// PriorityScore computes the initial ordering score, independent of the
// smart score.
func (o *Orchestrator) PriorityScore(task *types.Task) float64 {
	score := task.Reward * 100

	duration := math.Min(float64(task.EstimatedDuration), 3600)
	score += (3600 - duration) / 10

	if src, ok := o.registry.Get(task.SourceName); ok {
		score += float64(src.Priority) * 10
	}
	score += categoryWeights[task.Category] * 15

	if task.Deadline.Sub(o.clockNow()) < 24*time.Hour {
		score += 50
	}
	if task.DiscoveryMethod == types.DiscoveryScrape {
		score += 25
	}
	if o.backend.CanExecute(task) {
		score += 40
	}
	return score
}

// updateDerived refreshes the gauges and derived metrics after each cycle.
func (o *Orchestrator) updateDerived() {
	o.metrics.RecordQueueDepth(o.queue.Len())

	govSnap := o.governor.Snapshot()
	o.metrics.RecordHourlyRequests(govSnap.RequestsThisHour)

	for _, b := range o.hunter.BreakerSnapshots() {
		state := 0
		switch b.State {
		case "open":
			state = 1
		case "half-open":
			state = 2
		}
		o.metrics.RecordBreakerState(b.Source, state)
	}

	// Automation rate: share of queued work the backend should handle
	// without human-like interaction.
	var sum float64
	snapshot := o.queue.Snapshot()
	for _, t := range snapshot {
		if t.ScoreBreakdown != nil {
			sum += t.ScoreBreakdown.Automation
		}
	}
	o.mu.Lock()
	if len(snapshot) > 0 {
		o.automationRate = sum / float64(len(snapshot)) / 100
	} else {
		o.automationRate = 0
	}
	o.mu.Unlock()
}

func appendBounded(history []HistoryEntry, entry HistoryEntry, limit int) []HistoryEntry {
	history = append(history, entry)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

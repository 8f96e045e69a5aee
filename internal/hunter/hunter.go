// Package hunter runs discovery attempt chains against marketplace sources:
// API probing across base URL, endpoint, and auth-strategy combinations, with
// a scraping fallback when the APIs yield nothing.
package hunter

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/httpclient"
	"github.com/scavenger/hunter-service/internal/resilience"
	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/types"
)

// enoughTasks caps the probe matrix once a hunt has accumulated a generous
// task count; probing further endpoints buys nothing and spends budget.
const enoughTasks = 10

// staticPriorityWeight converts a source's configured rank into points on the
// health scale for ordering.
const staticPriorityWeight = 10.0

// APIKeyLookup resolves the configured API key for a source, if any.
type APIKeyLookup func(sourceName string) (key string, configured bool)

// Config tunes the hunter.
type Config struct {
	Breaker resilience.BreakerConfig
}

// Hunter discovers raw task candidates across all enabled sources.
type Hunter struct {
	registry *sources.Registry
	client   *httpclient.Client
	governor *antidetect.Governor
	apiKeys  APIKeyLookup
	logger   zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
	health   map[string]*types.SourceHealth

	breakerConfig resilience.BreakerConfig
	now           func() time.Time
}

// New creates a hunter over the given source registry.
func New(registry *sources.Registry, governor *antidetect.Governor, apiKeys APIKeyLookup, cfg Config, logger zerolog.Logger) *Hunter {
	if cfg.Breaker.FailureThreshold <= 0 {
		cfg.Breaker = resilience.DefaultBreakerConfig()
	}
	return &Hunter{
		registry:      registry,
		client:        httpclient.NewClient(governor),
		governor:      governor,
		apiKeys:       apiKeys,
		logger:        logger.With().Str("component", "hunter").Logger(),
		breakers:      make(map[string]*resilience.Breaker),
		health:        make(map[string]*types.SourceHealth),
		breakerConfig: cfg.Breaker,
		now:           time.Now,
	}
}

// Client exposes the underlying paced HTTP client (tests tune its sleep).
func (h *Hunter) Client() *httpclient.Client { return h.client }

// SetClock overrides the hunter's clock. Intended for tests.
func (h *Hunter) SetClock(now func() time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = now
}

// Breaker returns the circuit breaker for a source, creating it on first use.
func (h *Hunter) Breaker(source string) *resilience.Breaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.breakerLocked(source)
}

func (h *Hunter) breakerLocked(source string) *resilience.Breaker {
	b, ok := h.breakers[source]
	if !ok {
		b = resilience.NewBreaker(source, h.breakerConfig, h.logger)
		h.breakers[source] = b
	}
	return b
}

// Health returns the health record for a source, creating it on first use.
func (h *Hunter) Health(source string) *types.SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthLocked(source)
}

func (h *Hunter) healthLocked(source string) *types.SourceHealth {
	hl, ok := h.health[source]
	if !ok {
		hl = types.NewSourceHealth()
		h.health[source] = hl
	}
	return hl
}

// BreakerSnapshots returns breaker state for every known source.
func (h *Hunter) BreakerSnapshots() []resilience.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]resilience.Snapshot, 0, len(h.breakers))
	for _, b := range h.breakers {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// HealthSnapshots returns the health table keyed by source name.
func (h *Hunter) HealthSnapshots() map[string]types.SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]types.SourceHealth, len(h.health))
	for name, hl := range h.health {
		out[name] = *hl
	}
	return out
}

// HuntAll runs one discovery pass over every enabled source, ordered by
// health score plus static priority, and returns all raw candidates found.
func (h *Hunter) HuntAll(ctx context.Context) []types.RawTask {
	ordered := h.orderedSources()

	var all []types.RawTask
	for i, src := range ordered {
		if ctx.Err() != nil {
			break
		}

		breaker := h.Breaker(src.Name)
		if !breaker.IsAvailable() {
			h.logger.Debug().Str("source", src.Name).Msg("Breaker open, skipping source")
			continue
		}

		found, authRejects, err := h.huntSource(ctx, src)
		now := h.now()
		switch {
		case len(found) == 0 && err != nil:
			breaker.RecordFailure()
			h.Health(src.Name).RecordFailure(now)
			h.logger.Warn().Err(err).Str("source", src.Name).Msg("Hunt produced nothing")
		case len(found) == 0 && authRejects > 0:
			// Credentials problem, not an outage: the source sinks in the
			// ordering but the breaker stays untouched.
			h.Health(src.Name).RecordAuthFailure(now)
			h.logger.Warn().Str("source", src.Name).Int("auth_rejections", authRejects).Msg("Hunt saw only auth rejections")
		default:
			breaker.RecordSuccess()
			h.Health(src.Name).RecordSuccess(len(found), now)
			h.logger.Info().Str("source", src.Name).Int("tasks", len(found)).Msg("Hunt complete")
		}
		all = append(all, found...)

		// Randomized gap between sources.
		if i < len(ordered)-1 {
			h.client.PacingDelay()
		}
	}
	return all
}

// orderedSources returns enabled sources sorted by health.score plus weighted
// static priority, descending.
func (h *Hunter) orderedSources() []sources.SourceConfig {
	enabled := h.registry.Enabled()
	type ranked struct {
		src   sources.SourceConfig
		score float64
	}
	rankedSources := make([]ranked, 0, len(enabled))
	for _, src := range enabled {
		score := h.Health(src.Name).Score + float64(src.Priority)*staticPriorityWeight
		rankedSources = append(rankedSources, ranked{src: src, score: score})
	}
	sort.SliceStable(rankedSources, func(i, j int) bool {
		return rankedSources[i].score > rankedSources[j].score
	})
	out := make([]sources.SourceConfig, len(rankedSources))
	for i, r := range rankedSources {
		out[i] = r.src
	}
	return out
}

// huntSource runs the full attempt chain for one source: the API probe
// matrix first, then the scraping fallback. The returned error is non-nil
// only when at least one attempt errored; a clean zero-task hunt (empty
// marketplace) is not a failure.
func (h *Hunter) huntSource(ctx context.Context, src sources.SourceConfig) ([]types.RawTask, int, error) {
	tasks, authRejects, apiErr := h.probeAPI(ctx, src)
	if len(tasks) > 0 {
		return tasks, authRejects, nil
	}

	if src.Scrape != nil {
		scraped, scrapeErr := h.scrapeSource(ctx, src)
		if len(scraped) > 0 {
			return scraped, authRejects, nil
		}
		if scrapeErr != nil {
			h.logger.Debug().Err(scrapeErr).Str("source", src.Name).Msg("Scrape fallback failed")
			if apiErr == nil {
				apiErr = scrapeErr
			}
		}
	}

	return nil, authRejects, apiErr
}

// probeAPI iterates the base-URL x endpoint x auth-strategy matrix. The
// second return counts auth rejections seen along the way.
func (h *Hunter) probeAPI(ctx context.Context, src sources.SourceConfig) ([]types.RawTask, int, error) {
	key, keyConfigured := "", false
	if h.apiKeys != nil {
		key, keyConfigured = h.apiKeys(src.Name)
	}

	strategies := src.AuthStrategies
	if len(strategies) == 0 {
		strategies = sources.DefaultAuthStrategies()
	}

	var tasks []types.RawTask
	var lastErr error
	authRejects := 0

	for _, baseURL := range src.BaseURLs {
		for _, endpoint := range src.Endpoints {
			if len(tasks) > enoughTasks {
				return tasks, authRejects, nil
			}
			url := baseURL + endpoint

			endpointGone := false
			for _, strategy := range strategies {
				if ctx.Err() != nil {
					return tasks, authRejects, ctx.Err()
				}
				if len(tasks) > enoughTasks {
					return tasks, authRejects, nil
				}
				if strategy.Header != "" && !keyConfigured {
					continue
				}

				strategy := strategy
				body, status, err := h.client.Get(ctx, url, func(req *http.Request) {
					strategy.Apply(req, key)
				})
				if err != nil {
					lastErr = err
					continue
				}

				switch httpclient.ClassifyStatus(status) {
				case httpclient.OutcomeOK:
					for _, payload := range ExtractCandidates(body) {
						tasks = append(tasks, types.RawTask{
							SourceName: src.Name,
							Method:     types.DiscoveryAPI,
							Payload:    payload,
						})
					}
				case httpclient.OutcomeAuthFailure:
					// Wrong credentials or scheme: note it and try the next
					// strategy. Not a breaker-worthy failure by itself.
					authRejects++
					h.logger.Debug().
						Str("source", src.Name).
						Str("strategy", strategy.Name).
						Int("status", status).
						Msg("Auth rejected")
				case httpclient.OutcomeNotFound:
					endpointGone = true
				case httpclient.OutcomePressure:
					lastErr = &httpclient.FetchError{URL: url, Status: status, Outcome: httpclient.OutcomePressure}
				}

				if endpointGone {
					break
				}
			}
		}
	}

	return tasks, authRejects, lastErr
}

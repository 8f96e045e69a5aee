package hunter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/resilience"
	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/types"
)

// openGovernor returns a governor whose budgets never block a test run.
func openGovernor() *antidetect.Governor {
	return antidetect.NewGovernor(antidetect.Config{
		PerHourLimit:   100000,
		PerMinuteLimit: 100000,
		BurstLimit:     100000,
		Cooldown:       time.Millisecond,
		MinDelay:       time.Nanosecond,
		MaxDelay:       time.Millisecond,
		JitterFraction: 0,
	}, zerolog.Nop())
}

func testHunter(t *testing.T, apiKeys APIKeyLookup, srcs ...sources.SourceConfig) *Hunter {
	t.Helper()
	reg := sources.NewRegistry()
	for _, src := range srcs {
		reg.Register(src)
	}
	h := New(reg, openGovernor(), apiKeys, Config{}, zerolog.Nop())
	h.Client().SetSleep(func(time.Duration) {})
	return h
}

func anonymousOnly() []sources.AuthStrategy {
	return []sources.AuthStrategy{{Name: "anonymous"}}
}

func TestHuntAllFindsAPITasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs":[{"title":"Search for shoes","reward":0.5},{"title":"Visit our page","reward":0.3}]}`))
	}))
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:           "testsource",
		BaseURLs:       []string{srv.URL},
		Endpoints:      []string{"/jobs"},
		AuthStrategies: anonymousOnly(),
		Priority:       1,
		Enabled:        true,
	})

	raw := h.HuntAll(context.Background())
	require.Len(t, raw, 2)
	assert.Equal(t, "testsource", raw[0].SourceName)
	assert.Equal(t, types.DiscoveryAPI, raw[0].Method)
	assert.Equal(t, "Search for shoes", raw[0].Payload["title"])

	assert.Equal(t, 52.0, h.Health("testsource").Score)
	assert.Equal(t, resilience.StateClosed, h.Breaker("testsource").State())
}

func TestHuntAllOpensBreakerAndSkips(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:           "flaky",
		BaseURLs:       []string{srv.URL},
		Endpoints:      []string{"/jobs"},
		AuthStrategies: anonymousOnly(),
		Priority:       1,
		Enabled:        true,
	})

	for i := 0; i < 5; i++ {
		raw := h.HuntAll(context.Background())
		assert.Empty(t, raw)
	}
	require.Equal(t, resilience.StateOpen, h.Breaker("flaky").State())
	require.Equal(t, int64(5), hits.Load())

	// An open breaker short-circuits before any network traffic.
	raw := h.HuntAll(context.Background())
	assert.Empty(t, raw)
	assert.Equal(t, int64(5), hits.Load())
	assert.Equal(t, 25.0, h.Health("flaky").Score)
}

func TestProbeAdvancesPastGoneEndpoint(t *testing.T) {
	var goneHits, jobHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		goneHits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		jobHits.Add(1)
		w.Write([]byte(`[{"title":"Search task here","reward":0.4}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:      "mover",
		BaseURLs:  []string{srv.URL},
		Endpoints: []string{"/gone", "/jobs"},
		AuthStrategies: []sources.AuthStrategy{
			{Name: "anonymous"},
			{Name: "plain"},
		},
		Priority: 1,
		Enabled:  true,
	})

	raw := h.HuntAll(context.Background())
	assert.NotEmpty(t, raw)
	assert.Equal(t, int64(1), goneHits.Load(), "a 404 ends the strategy loop for that endpoint")
	assert.GreaterOrEqual(t, jobHits.Load(), int64(1))
}

func TestProbeTriesNextStrategyAfterAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"tasks":[{"title":"Authorized search","reward":0.6}]}`))
	}))
	defer srv.Close()

	lookup := func(string) (string, bool) { return "k123", true }
	h := testHunter(t, lookup, sources.SourceConfig{
		Name:     "authy",
		BaseURLs: []string{srv.URL},
		Endpoints: []string{
			"/v1/jobs",
		},
		AuthStrategies: []sources.AuthStrategy{
			{Name: "bearer", Header: "Authorization", Format: "Bearer %s"},
			{Name: "api-key", Header: "X-Api-Key"},
		},
		Priority: 1,
		Enabled:  true,
	})

	raw := h.HuntAll(context.Background())
	require.Len(t, raw, 1)
	assert.Equal(t, "Authorized search", raw[0].Payload["title"])

	// A 401 on the way is not a breaker-worthy failure.
	assert.Equal(t, resilience.StateClosed, h.Breaker("authy").State())
	assert.Equal(t, 0, h.Breaker("authy").FailureCount())
}

func TestHuntSkipsKeyedStrategiesWithoutKey(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"tasks":[]}`))
	}))
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:           "keyed",
		BaseURLs:       []string{srv.URL},
		Endpoints:      []string{"/jobs"},
		AuthStrategies: []sources.AuthStrategy{{Name: "bearer", Header: "Authorization", Format: "Bearer %s"}},
		Priority:       1,
		Enabled:        true,
	})

	raw := h.HuntAll(context.Background())
	assert.Empty(t, raw)
	assert.Equal(t, int64(0), hits.Load(), "keyed strategies are skipped when no key is configured")

	// A hunt with nothing to try is clean, not a failure.
	assert.Equal(t, 0, h.Breaker("keyed").FailureCount())
}

func TestEveryProbeAttemptIsPaced(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:           "quiet",
		BaseURLs:       []string{srv.URL},
		Endpoints:      []string{"/a", "/b", "/c"},
		AuthStrategies: anonymousOnly(),
		Priority:       1,
		Enabled:        true,
	})
	sleeps := 0
	h.Client().SetSleep(func(time.Duration) { sleeps++ })

	h.HuntAll(context.Background())

	require.Equal(t, int64(3), hits.Load())
	assert.Equal(t, 3, sleeps, "every attempt gets its own pacing gap")
}

func TestAuthRejectionsLowerHealthWithoutBreakerTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	lookup := func(string) (string, bool) { return "stale-key", true }
	h := testHunter(t, lookup, sources.SourceConfig{
		Name:      "staleauth",
		BaseURLs:  []string{srv.URL},
		Endpoints: []string{"/jobs"},
		AuthStrategies: []sources.AuthStrategy{
			{Name: "bearer", Header: "Authorization", Format: "Bearer %s"},
			{Name: "api-key", Header: "X-Api-Key"},
		},
		Priority: 1,
		Enabled:  true,
	})

	raw := h.HuntAll(context.Background())
	assert.Empty(t, raw)

	// Rejected credentials sink the source without counting an outage.
	assert.Equal(t, 45.0, h.Health("staleauth").Score)
	assert.Equal(t, 0, h.Health("staleauth").FailureCount)
	assert.Equal(t, resilience.StateClosed, h.Breaker("staleauth").State())
	assert.Equal(t, 0, h.Breaker("staleauth").FailureCount())
}

func TestScrapeFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/browse", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h3>Search for a local bakery</h3><span class="pay">$0.50</span>
			<h3>Follow our instagram page</h3><span class="pay">$0.25</span>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := testHunter(t, nil, sources.SourceConfig{
		Name:           "scrapey",
		BaseURLs:       []string{srv.URL},
		Endpoints:      []string{"/jobs"},
		AuthStrategies: anonymousOnly(),
		Priority:       1,
		Enabled:        true,
		Scrape:         &sources.ScrapeConfig{URL: srv.URL + "/browse"},
	})

	raw := h.HuntAll(context.Background())
	require.Len(t, raw, 2)
	assert.Equal(t, types.DiscoveryScrape, raw[0].Method)
	assert.Equal(t, "Search for a local bakery", raw[0].Payload["title"])
	assert.Equal(t, 0.5, raw[0].Payload["reward"])
}

func TestHuntAllOrdersByHealthAndPriority(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	first := sources.SourceConfig{Name: "alpha", BaseURLs: []string{srv.URL}, Endpoints: []string{"/a"}, AuthStrategies: anonymousOnly(), Priority: 1, Enabled: true}
	second := sources.SourceConfig{Name: "beta", BaseURLs: []string{srv.URL}, Endpoints: []string{"/b"}, AuthStrategies: anonymousOnly(), Priority: 3, Enabled: true}

	h := testHunter(t, nil, first, second)
	for _, src := range h.orderedSources() {
		order = append(order, src.Name)
	}
	assert.Equal(t, []string{"beta", "alpha"}, order)

	// Repeated failures sink a source below a lower-priority healthy one.
	for i := 0; i < 10; i++ {
		h.Health("beta").RecordFailure(time.Now())
	}
	order = order[:0]
	for _, src := range h.orderedSources() {
		order = append(order, src.Name)
	}
	assert.Equal(t, []string{"alpha", "beta"}, order)
}

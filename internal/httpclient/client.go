// Package httpclient wraps net/http with the pacing, timeout, and
// fingerprint-avoidance behavior every outbound marketplace request needs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/scavenger/hunter-service/internal/antidetect"
)

// Outcome classifies an attempt for the hunter's decision chain.
type Outcome int

const (
	OutcomeOK           Outcome = iota // 2xx
	OutcomeAuthFailure                 // 401/403
	OutcomeNotFound                    // 404
	OutcomePressure                    // 429/5xx/timeout/connection
	OutcomeOther                       // anything else
)

// FetchError reports a failed attempt with its classification.
type FetchError struct {
	URL     string
	Status  int
	Outcome Outcome
	Err     error
}

func (e *FetchError) Error() string {
	msg := "failed to fetch " + e.URL
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status to an attempt outcome.
func ClassifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeOK
	case status == 401 || status == 403:
		return OutcomeAuthFailure
	case status == 404:
		return OutcomeNotFound
	case status == 429 || status >= 500:
		return OutcomePressure
	default:
		return OutcomeOther
	}
}

// userAgents rotates through plausible browser identities; a static UA across
// thousands of requests is an easy bot fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
}

// maxGovernorWaits bounds how many pacing sleeps a single request will
// tolerate before giving up.
const maxGovernorWaits = 5

// Client is an HTTP client paced by the anti-detection governor.
type Client struct {
	httpClient *http.Client
	governor   *antidetect.Governor
	rand       *rand.Rand
	sleep      func(time.Duration)
}

// NewClient creates a client governed by the given pacer. Every request
// carries a 30s timeout; expiry surfaces as OutcomePressure.
func NewClient(governor *antidetect.Governor) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		governor:   governor,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(os.Getpid()))),
		sleep:      time.Sleep,
	}
}

// SetSleep overrides the pacing sleep. Intended for tests.
func (c *Client) SetSleep(sleep func(time.Duration)) { c.sleep = sleep }

// Get performs a governed GET and returns body bytes plus the HTTP status.
// The prepare callback may attach auth headers before dispatch.
func (c *Client) Get(ctx context.Context, url string, prepare func(*http.Request)) ([]byte, int, error) {
	// Wait out the governor if it is blocking. A hard-blocked governor (hour
	// budget spent) surfaces as pressure rather than an unbounded wait.
	for waits := 0; !c.governor.CanProceed(); waits++ {
		if waits >= maxGovernorWaits {
			return nil, 0, &FetchError{URL: url, Outcome: OutcomePressure, Err: errors.New("request budget exhausted")}
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}
		c.sleep(c.governor.WaitTime())
	}

	// Every attempt gets its own randomized gap, even inside the burst
	// budget; back-to-back probes at a fixed cadence are a bot fingerprint.
	c.sleep(c.governor.WaitTime())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: url, Outcome: OutcomeOther, Err: err}
	}
	req.Header.Set("User-Agent", userAgents[c.rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if prepare != nil {
		prepare(req)
	}

	c.governor.RecordRequest()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := OutcomePressure
		if errors.Is(err, context.Canceled) {
			outcome = OutcomeOther
		}
		return nil, 0, &FetchError{URL: url, Outcome: outcome, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{URL: url, Status: resp.StatusCode, Outcome: OutcomePressure, Err: err}
	}

	return body, resp.StatusCode, nil
}

// PacingDelay sleeps a governed randomized delay. Used between endpoint
// attempts and between sources.
func (c *Client) PacingDelay() {
	c.sleep(c.governor.WaitTime())
}

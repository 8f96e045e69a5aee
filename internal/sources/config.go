package sources

import (
	"fmt"
	"net/http"
)

// AuthStrategy describes one way of attaching an API credential to a request.
// Sources rarely document their auth scheme for unofficial clients, so the
// hunter tries each candidate strategy in order.
type AuthStrategy struct {
	Name   string
	Header string
	Format string // applied as fmt.Sprintf(Format, key); empty means raw key
}

// Apply sets the strategy's header on the request. A strategy with an empty
// header (anonymous access) leaves the request untouched.
func (a AuthStrategy) Apply(req *http.Request, key string) {
	if a.Header == "" {
		return
	}
	value := key
	if a.Format != "" {
		value = fmt.Sprintf(a.Format, key)
	}
	req.Header.Set(a.Header, value)
}

// ScrapeConfig describes the scraping fallback for a source whose APIs are
// unreachable or undocumented.
type ScrapeConfig struct {
	URL string
	// TaskPattern optionally overrides the default task-block extraction
	// pattern used by the scraper.
	TaskPattern string
}

// SourceConfig describes one external micro-task marketplace.
type SourceConfig struct {
	Name           string
	BaseURLs       []string
	Endpoints      []string
	AuthStrategies []AuthStrategy
	Priority       int // static rank, higher hunts earlier
	Enabled        bool
	Scrape         *ScrapeConfig
}

// DefaultAuthStrategies are the candidate schemes tried against sources that
// do not declare their own.
func DefaultAuthStrategies() []AuthStrategy {
	return []AuthStrategy{
		{Name: "bearer", Header: "Authorization", Format: "Bearer %s"},
		{Name: "api-key", Header: "X-Api-Key"},
		{Name: "token", Header: "X-Auth-Token"},
		{Name: "anonymous"},
	}
}

// Defaults returns the built-in marketplace descriptors. Operators can enable,
// disable, or re-rank them through configuration.
func Defaults() []SourceConfig {
	return []SourceConfig{
		{
			Name:           "microworkers",
			BaseURLs:       []string{"https://api.microworkers.com", "https://ttv.microworkers.com/api/v2"},
			Endpoints:      []string{"/jobs/available", "/basic-campaigns", "/tasks"},
			AuthStrategies: []AuthStrategy{{Name: "api-key", Header: "MicroworkersApiKey"}, {Name: "bearer", Header: "Authorization", Format: "Bearer %s"}},
			Priority:       3,
			Enabled:        true,
			Scrape:         &ScrapeConfig{URL: "https://www.microworkers.com/jobs"},
		},
		{
			Name:           "rapidworkers",
			BaseURLs:       []string{"https://rapidworkers.com/api"},
			Endpoints:      []string{"/v1/jobs", "/jobs/list", "/tasks/open"},
			AuthStrategies: DefaultAuthStrategies(),
			Priority:       2,
			Enabled:        true,
			Scrape:         &ScrapeConfig{URL: "https://rapidworkers.com/browse_jobs"},
		},
		{
			Name:           "picoworkers",
			BaseURLs:       []string{"https://api.picoworkers.com", "https://picoworkers.com/api"},
			Endpoints:      []string{"/v2/jobs", "/jobs", "/available-tasks"},
			AuthStrategies: DefaultAuthStrategies(),
			Priority:       2,
			Enabled:        true,
		},
		{
			Name:           "clickworker",
			BaseURLs:       []string{"https://workplace.clickworker.com/api"},
			Endpoints:      []string{"/v1/jobs/available", "/jobs"},
			AuthStrategies: []AuthStrategy{{Name: "bearer", Header: "Authorization", Format: "Bearer %s"}},
			Priority:       1,
			Enabled:        true,
		},
	}
}

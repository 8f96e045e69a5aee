package hunter

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/types"
)

// defaultTaskPattern matches a job listing block: a title-looking run of text
// followed within a few hundred characters by a currency amount.
var defaultTaskPattern = regexp.MustCompile(`(?is)<(?:h[1-4]|a|td|div)[^>]*>([^<]{8,120})</(?:h[1-4]|a|td|div)>.{0,400}?[$€£]\s*(\d+(?:[.,]\d{1,2})?)`)

var tagStripper = regexp.MustCompile(`<[^>]+>`)

// scrapeSource runs the single scraping attempt for a source whose API
// probing produced nothing. It fetches the listing page and extracts
// title/reward pairs from the markup.
func (h *Hunter) scrapeSource(ctx context.Context, src sources.SourceConfig) ([]types.RawTask, error) {
	cfg := src.Scrape
	if cfg == nil {
		return nil, nil
	}

	body, status, err := h.client.Get(ctx, cfg.URL, func(req *http.Request) {
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("scrape fetch of %s: status %d", cfg.URL, status)
	}

	pattern := defaultTaskPattern
	if cfg.TaskPattern != "" {
		custom, err := regexp.Compile(cfg.TaskPattern)
		if err != nil {
			h.logger.Warn().Err(err).Str("source", src.Name).Msg("Invalid scrape pattern, using default")
		} else {
			pattern = custom
		}
	}

	matches := pattern.FindAllStringSubmatch(string(body), -1)
	tasks := make([]types.RawTask, 0, len(matches))
	seen := make(map[string]bool)

	for _, m := range matches {
		if len(m) < 3 {
			continue
		}
		title := strings.TrimSpace(tagStripper.ReplaceAllString(m[1], " "))
		title = strings.Join(strings.Fields(title), " ")
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true

		reward, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err != nil || reward <= 0 {
			continue
		}

		tasks = append(tasks, types.RawTask{
			SourceName: src.Name,
			Method:     types.DiscoveryScrape,
			Payload: map[string]any{
				"title":  title,
				"reward": reward,
				"url":    cfg.URL,
			},
		})
	}

	return tasks, nil
}

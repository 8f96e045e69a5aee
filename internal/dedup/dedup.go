// Package dedup fingerprints task candidates so the same job offered through
// several sources (or several endpoints of one source) survives only once.
package dedup

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/scavenger/hunter-service/internal/types"
)

// DefaultTopK is the default working-set truncation size.
const DefaultTopK = 50

// fingerprintTitleLen is how much of the normalized title participates in
// the fingerprint. Long titles diverge in suffixes ("... part 2") while
// describing the same job.
const fingerprintTitleLen = 20

// Fingerprint derives the duplicate-detection key for a task: a lowercased
// alphanumeric title prefix plus the reward in minor units plus the duration
// in minutes.
func Fingerprint(task *types.Task) string {
	title := normalizeTitle(task.Title)
	if len(title) > fingerprintTitleLen {
		title = title[:fingerprintTitleLen]
	}
	minor := int(math.Round(task.Reward * 100))
	minutes := task.EstimatedDuration / 60
	return fmt.Sprintf("%s|%d|%d", title, minor, minutes)
}

// normalizeTitle lowercases, strips diacritics, and keeps alphanumerics only.
func normalizeTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Collapse removes duplicates, keeping the higher-scored task of each
// fingerprint set. Input order breaks exact score ties.
func Collapse(tasks []*types.Task) []*types.Task {
	best := make(map[string]*types.Task, len(tasks))
	order := make([]string, 0, len(tasks))

	for _, task := range tasks {
		fp := Fingerprint(task)
		current, ok := best[fp]
		if !ok {
			best[fp] = task
			order = append(order, fp)
			continue
		}
		if task.SmartScore > current.SmartScore {
			best[fp] = task
		}
	}

	out := make([]*types.Task, 0, len(best))
	for _, fp := range order {
		out = append(out, best[fp])
	}
	return out
}

// TopK sorts by smart score descending and truncates to k (DefaultTopK when
// k <= 0).
func TopK(tasks []*types.Task, k int) []*types.Task {
	if k <= 0 {
		k = DefaultTopK
	}
	sorted := make([]*types.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SmartScore > sorted[j].SmartScore
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

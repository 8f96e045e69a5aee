package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scavenger/hunter-service/internal/types"
)

func task(title string, reward float64, durationSec int, score float64, source string) *types.Task {
	return &types.Task{
		ID:                source + ":" + title,
		Title:             title,
		Reward:            reward,
		EstimatedDuration: durationSec,
		SmartScore:        score,
		SourceName:        source,
	}
}

func TestFingerprintShape(t *testing.T) {
	fp := Fingerprint(task("Café Review — Part 2!!", 1.25, 600, 0, "a"))
	assert.Equal(t, "cafereviewpart2|125|10", fp)
}

func TestFingerprintIgnoresDiacriticsAndPunctuation(t *testing.T) {
	a := Fingerprint(task("Résumé writing job", 0.5, 300, 0, "a"))
	b := Fingerprint(task("resume WRITING: job", 0.5, 300, 0, "b"))
	assert.Equal(t, a, b)
}

func TestFingerprintTruncatesLongTitles(t *testing.T) {
	a := Fingerprint(task("Review this website and leave detailed feedback", 0.5, 300, 0, "a"))
	b := Fingerprint(task("Review this website and answer three questions", 0.5, 300, 0, "b"))
	assert.Equal(t, a, b, "same 20-char prefix, same money, same time")
}

func TestFingerprintDistinguishesRewardAndDuration(t *testing.T) {
	base := task("Review this app", 0.5, 300, 0, "a")
	assert.NotEqual(t, Fingerprint(base), Fingerprint(task("Review this app", 0.75, 300, 0, "a")))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(task("Review this app", 0.5, 600, 0, "a")))
}

func TestCollapseKeepsHigherScore(t *testing.T) {
	low := task("Search for shoes", 0.5, 300, 60, "rapidworkers")
	high := task("Search for shoes", 0.5, 300, 80, "microworkers")

	out := Collapse([]*types.Task{low, high})
	require.Len(t, out, 1)
	assert.Equal(t, "microworkers", out[0].SourceName)
}

func TestCollapseTieKeepsFirst(t *testing.T) {
	first := task("Search for shoes", 0.5, 300, 70, "microworkers")
	second := task("Search for shoes", 0.5, 300, 70, "rapidworkers")

	out := Collapse([]*types.Task{first, second})
	require.Len(t, out, 1)
	assert.Equal(t, "microworkers", out[0].SourceName)
}

func TestCollapsePreservesFirstSeenOrder(t *testing.T) {
	a := task("Alpha search task", 0.5, 300, 70, "s")
	b := task("Beta survey task", 0.3, 600, 90, "s")
	dup := task("Alpha search task", 0.5, 300, 95, "s2")

	out := Collapse([]*types.Task{a, b, dup})
	require.Len(t, out, 2)
	assert.Equal(t, "s2", out[0].SourceName, "winner replaces the loser in place")
	assert.Equal(t, "Beta survey task", out[1].Title)
}

func TestTopKSortsAndTruncates(t *testing.T) {
	tasks := []*types.Task{
		task("One search task", 0.5, 300, 50, "s"),
		task("Two search task", 0.5, 300, 90, "s"),
		task("Three search task", 0.5, 300, 70, "s"),
	}

	out := TopK(tasks, 2)
	require.Len(t, out, 2)
	assert.Equal(t, 90.0, out[0].SmartScore)
	assert.Equal(t, 70.0, out[1].SmartScore)

	// Input slice order is untouched.
	assert.Equal(t, 50.0, tasks[0].SmartScore)
}

func TestTopKDefault(t *testing.T) {
	tasks := make([]*types.Task, 0, DefaultTopK+10)
	for i := 0; i < DefaultTopK+10; i++ {
		tasks = append(tasks, task("Search task", 0.5, 300, float64(i), "s"))
	}
	out := TopK(tasks, 0)
	assert.Len(t, out, DefaultTopK)
}

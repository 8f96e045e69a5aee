package hunter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidates(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"top-level array", `[{"title":"a"},{"title":"b"}]`, 2},
		{"jobs key", `{"jobs":[{"title":"a"}]}`, 1},
		{"campaigns key", `{"campaigns":[{"title":"a"},{"title":"b"},{"title":"c"}]}`, 3},
		{"nested one level", `{"response":{"tasks":[{"title":"a"}]}}`, 1},
		{"mixed array keeps objects only", `[{"title":"a"}, "noise", 42]`, 1},
		{"empty object", `{}`, 0},
		{"unrelated keys", `{"status":"ok","count":3}`, 0},
		{"invalid json", `<html>not json</html>`, 0},
		{"empty body", ``, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ExtractCandidates([]byte(tt.body))
			assert.Len(t, out, tt.expected)
		})
	}
}

func TestExtractCandidatesPreservesFields(t *testing.T) {
	out := ExtractCandidates([]byte(`{"data":[{"title":"Search task","reward":0.5,"id":"t1"}]}`))
	require.Len(t, out, 1)
	assert.Equal(t, "Search task", out[0]["title"])
	assert.Equal(t, 0.5, out[0]["reward"])
	assert.Equal(t, "t1", out[0]["id"])
}

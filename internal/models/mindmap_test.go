package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/models"
)

func TestParseMindmap(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		ok       bool
		expected models.Mindmap
	}{
		{
			name: "well formed",
			raw:  `{"central":"Go","branches":[{"title":"Concurrency","subtopics":["goroutines","channels"]}]}`,
			ok:   true,
			expected: models.Mindmap{
				Central:  "Go",
				Branches: []models.Branch{{Title: "Concurrency", Subtopics: []string{"goroutines", "channels"}}},
			},
		},
		{
			name: "branch defaults",
			raw:  `{"central":"Go","branches":[{"subtopics":"nope"},{"title":"","subtopics":["a",2]}]}`,
			ok:   true,
			expected: models.Mindmap{
				Central: "Go",
				Branches: []models.Branch{
					{Title: models.DefaultBranchTitle, Subtopics: []string{}},
					{Title: models.DefaultBranchTitle, Subtopics: []string{"a", "2"}},
				},
			},
		},
		{
			name: "code fence",
			raw:  "```json\n{\"central\":\"Go\",\"branches\":[]}\n```",
			ok:   true,
			expected: models.Mindmap{
				Central:  "Go",
				Branches: []models.Branch{},
			},
		},
		{name: "missing branches", raw: `{"central":"Go"}`, expected: models.FallbackMindmap()},
		{name: "missing central", raw: `{"branches":[]}`, expected: models.FallbackMindmap()},
		{name: "empty central", raw: `{"central":"  ","branches":[]}`, expected: models.FallbackMindmap()},
		{name: "branches not array", raw: `{"central":"Go","branches":{}}`, expected: models.FallbackMindmap()},
		{name: "not json", raw: `Here is your mindmap!`, expected: models.FallbackMindmap()},
		{name: "empty", raw: ``, expected: models.FallbackMindmap()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := models.ParseMindmap(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestParseMindmapFallbackIsIdempotent(t *testing.T) {
	fallback := models.FallbackMindmap()

	m, ok := models.ParseMindmap(fallback.JSON())
	require.True(t, ok)
	assert.Equal(t, fallback, m)

	again, ok := models.ParseMindmap(m.JSON())
	require.True(t, ok)
	assert.Equal(t, m, again)
}

func TestMindmapJSONNeverEmitsNull(t *testing.T) {
	m := models.Mindmap{Central: "Go", Branches: []models.Branch{{Title: "x"}}}
	assert.JSONEq(t, `{"central":"Go","branches":[{"title":"x","subtopics":[]}]}`, m.JSON())
	assert.JSONEq(t, `{"central":"Go","branches":[]}`, models.Mindmap{Central: "Go"}.JSON())
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/pkg/llm"
	"github.com/xhad/smartnotes/pkg/metrics"
)

type fakeGenerator struct {
	mu sync.Mutex

	notes      string
	notesErr   error
	mindmap    string
	mindmapErr error
	prompts    []string

	// when set, GenerateNotes blocks until the mindmap call has returned
	mindmapDone chan struct{}
}

func (f *fakeGenerator) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, transcript)
	f.mu.Unlock()

	if f.mindmapDone != nil {
		select {
		case <-f.mindmapDone:
		case <-time.After(5 * time.Second):
			return "", errors.New("mindmap never finished")
		}
	}
	return f.notes, f.notesErr
}

func (f *fakeGenerator) GenerateMindmap(ctx context.Context, transcript string) (string, error) {
	if f.mindmapDone != nil {
		defer close(f.mindmapDone)
	}
	return f.mindmap, f.mindmapErr
}

func TestGenerateNotes(t *testing.T) {
	o := NewOrchestrator(&fakeGenerator{notes: "# Real notes"}, OrchestratorConfig{})

	result := o.GenerateNotes(context.Background(), "transcript")
	assert.Equal(t, "# Real notes", result.Notes)
	assert.Equal(t, FallbackNone, result.Fallback)
}

func TestGenerateNotesFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		generator *fakeGenerator
		want      FallbackReason
	}{
		{"not configured", &fakeGenerator{notesErr: fmt.Errorf("chat error: %w", llm.ErrNotConfigured)}, FallbackNotConfigured},
		{"provider error", &fakeGenerator{notesErr: errors.New("429 too many requests")}, FallbackProviderError},
		{"empty response", &fakeGenerator{notesErr: llm.ErrEmptyResponse}, FallbackProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.generator, OrchestratorConfig{})

			result := o.GenerateNotes(context.Background(), "transcript")
			assert.Equal(t, FallbackNotes, result.Notes)
			assert.Equal(t, tt.want, result.Fallback)
		})
	}
}

func TestNilGeneratorIsNotConfigured(t *testing.T) {
	o := NewOrchestrator(nil, OrchestratorConfig{})

	result := o.Generate(context.Background(), "transcript")
	assert.Equal(t, FallbackNotes, result.Notes.Notes)
	assert.Equal(t, FallbackNotConfigured, result.Notes.Fallback)
	assert.Equal(t, models.FallbackMindmap(), result.Mindmap.Mindmap)
	assert.Equal(t, FallbackNotConfigured, result.Mindmap.Fallback)
}

func TestGenerateMindmap(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		err      error
		want     models.Mindmap
		fallback FallbackReason
	}{
		{
			name: "valid",
			raw:  `{"central":"Go","branches":[{"title":"Concurrency","subtopics":["goroutines"]}]}`,
			want: models.Mindmap{Central: "Go", Branches: []models.Branch{
				{Title: "Concurrency", Subtopics: []string{"goroutines"}},
			}},
		},
		{
			name: "fenced and coerced",
			raw:  "```json\n{\"central\":\"Go\",\"branches\":[{\"subtopics\":\"oops\"}]}\n```",
			want: models.Mindmap{Central: "Go", Branches: []models.Branch{
				{Title: models.DefaultBranchTitle, Subtopics: []string{}},
			}},
		},
		{
			name:     "not json",
			raw:      "Here is your mindmap!",
			want:     models.FallbackMindmap(),
			fallback: FallbackMalformed,
		},
		{
			name:     "provider error",
			err:      errors.New("timeout"),
			want:     models.FallbackMindmap(),
			fallback: FallbackProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(&fakeGenerator{mindmap: tt.raw, mindmapErr: tt.err}, OrchestratorConfig{})

			result := o.GenerateMindmap(context.Background(), "transcript")
			assert.Equal(t, tt.want, result.Mindmap)
			assert.Equal(t, tt.fallback, result.Fallback)
		})
	}
}

func TestGenerateRunsConcurrently(t *testing.T) {
	gen := &fakeGenerator{
		notes:       "# Notes",
		mindmap:     `{"central":"C","branches":[]}`,
		mindmapDone: make(chan struct{}),
	}
	o := NewOrchestrator(gen, OrchestratorConfig{})

	result := o.Generate(context.Background(), "transcript")

	// notes waited for mindmap, so both were in flight together
	assert.Equal(t, "# Notes", result.Notes.Notes)
	assert.Equal(t, FallbackNone, result.Notes.Fallback)
	assert.Equal(t, "C", result.Mindmap.Mindmap.Central)
}

func TestGenerateFailuresAreIndependent(t *testing.T) {
	gen := &fakeGenerator{
		notesErr: errors.New("boom"),
		mindmap:  `{"central":"Kept","branches":[]}`,
	}
	o := NewOrchestrator(gen, OrchestratorConfig{})

	result := o.Generate(context.Background(), "transcript")
	assert.Equal(t, FallbackProviderError, result.Notes.Fallback)
	assert.Equal(t, FallbackNone, result.Mindmap.Fallback)
	assert.Equal(t, "Kept", result.Mindmap.Mindmap.Central)
}

func TestPromptTrimming(t *testing.T) {
	gen := &fakeGenerator{notes: "ok"}
	o := NewOrchestrator(gen, OrchestratorConfig{MaxPromptChars: 30})

	o.GenerateNotes(context.Background(), "One short sentence. "+strings.Repeat("more words ", 20))
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "One short sentence.", gen.prompts[0])
}

func TestGenerationMetrics(t *testing.T) {
	collector := metrics.NewCollector("test")
	o := NewOrchestrator(&fakeGenerator{notes: "n", mindmap: "nope"}, OrchestratorConfig{Metrics: collector})

	o.Generate(context.Background(), "transcript")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Generations.WithLabelValues("notes", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Generations.WithLabelValues("mindmap", "malformed")))
}

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/internal/types"
	"github.com/xhad/smartnotes/pkg/llm"
	"github.com/xhad/smartnotes/pkg/metrics"
	"github.com/xhad/smartnotes/pkg/processor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FallbackReason says why generated content was replaced by a default. The
// empty value means the model output was used.
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackNotConfigured FallbackReason = "not_configured"
	FallbackProviderError FallbackReason = "provider_error"
	FallbackMalformed     FallbackReason = "malformed"
)

// FallbackNotes is returned whenever notes cannot be generated.
const FallbackNotes = `# Notes

## Summary
This is a fallback note structure. The AI-generated notes could not be created due to an error.

## Key Points
- Important concept 1
- Important concept 2
- Important concept 3

## Details
- Supporting detail 1
- Supporting detail 2
- Supporting detail 3

## Action Items
- Follow-up task 1
- Follow-up task 2`

type NotesResult struct {
	Notes    string
	Fallback FallbackReason
}

type MindmapResult struct {
	Mindmap  models.Mindmap
	Fallback FallbackReason
}

type Result struct {
	Notes   NotesResult
	Mindmap MindmapResult
}

type OrchestratorConfig struct {
	// MaxPromptChars trims transcripts before they reach the model. Zero
	// sends the transcript whole.
	MaxPromptChars int
	Logger         *zap.Logger
	Metrics        *metrics.Collector
}

// Orchestrator produces notes and mindmaps and never fails: every problem
// with the generator degrades to the fixed fallback content.
type Orchestrator struct {
	generator types.Generator
	processor processor.Processor
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewOrchestrator wraps generator. A nil generator is treated as an
// unconfigured provider.
func NewOrchestrator(generator types.Generator, config OrchestratorConfig) *Orchestrator {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Orchestrator{
		generator: generator,
		processor: processor.NewWithConfig(processor.ProcessorConfig{MaxPromptChars: config.MaxPromptChars}),
		logger:    config.Logger,
		metrics:   config.Metrics,
	}
}

func (o *Orchestrator) GenerateNotes(ctx context.Context, transcript string) NotesResult {
	start := time.Now()
	result := o.generateNotes(ctx, transcript)
	o.record("notes", result.Fallback, start)
	return result
}

func (o *Orchestrator) GenerateMindmap(ctx context.Context, transcript string) MindmapResult {
	start := time.Now()
	result := o.generateMindmap(ctx, transcript)
	o.record("mindmap", result.Fallback, start)
	return result
}

// Generate runs notes and mindmap generation concurrently. Neither outcome
// affects the other.
func (o *Orchestrator) Generate(ctx context.Context, transcript string) Result {
	var (
		g      errgroup.Group
		result Result
	)

	g.Go(func() error {
		result.Notes = o.GenerateNotes(ctx, transcript)
		return nil
	})
	g.Go(func() error {
		result.Mindmap = o.GenerateMindmap(ctx, transcript)
		return nil
	})
	// Failures surface as fallback reasons in the results, never as errors.
	_ = g.Wait()

	return result
}

func (o *Orchestrator) generateNotes(ctx context.Context, transcript string) NotesResult {
	if o.generator == nil {
		return NotesResult{Notes: FallbackNotes, Fallback: FallbackNotConfigured}
	}

	prompt := o.prompt(transcript)
	notes, err := o.generator.GenerateNotes(ctx, prompt)
	if err != nil {
		reason := classify(err)
		o.logger.Warn("notes generation fell back", zap.String("reason", string(reason)), zap.Error(err))
		return NotesResult{Notes: FallbackNotes, Fallback: reason}
	}
	return NotesResult{Notes: notes}
}

func (o *Orchestrator) generateMindmap(ctx context.Context, transcript string) MindmapResult {
	if o.generator == nil {
		return MindmapResult{Mindmap: models.FallbackMindmap(), Fallback: FallbackNotConfigured}
	}

	raw, err := o.generator.GenerateMindmap(ctx, o.prompt(transcript))
	if err != nil {
		reason := classify(err)
		o.logger.Warn("mindmap generation fell back", zap.String("reason", string(reason)), zap.Error(err))
		return MindmapResult{Mindmap: models.FallbackMindmap(), Fallback: reason}
	}

	mindmap, ok := models.ParseMindmap(raw)
	if !ok {
		o.logger.Warn("mindmap response malformed", zap.Int("chars", len(raw)))
		return MindmapResult{Mindmap: mindmap, Fallback: FallbackMalformed}
	}
	return MindmapResult{Mindmap: mindmap}
}

func (o *Orchestrator) prompt(transcript string) string {
	text, cut := o.processor.ForPrompt(transcript)
	if cut {
		o.logger.Info("transcript trimmed for prompt", zap.Int("from", len(transcript)), zap.Int("to", len(text)))
	}
	return text
}

func (o *Orchestrator) record(kind string, reason FallbackReason, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordGeneration(kind, string(reason), time.Since(start))
	}
}

func classify(err error) FallbackReason {
	if errors.Is(err, llm.ErrNotConfigured) {
		return FallbackNotConfigured
	}
	return FallbackProviderError
}

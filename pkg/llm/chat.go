package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

var (
	// ErrNotConfigured means no provider credential was supplied. Callers
	// treat it differently from a failed call.
	ErrNotConfigured = errors.New("language model provider not configured")
	ErrEmptyResponse = errors.New("empty response from language model")
)

const (
	defaultNotesPrompt = `You are an expert note-taker who organizes educational content. Read the transcript you are given and turn it into clear, comprehensive notes that are easy to study and reference.

Structure the notes with:
- A short summary at the top
- Key points grouped by topic
- Important details and examples
- Action items or takeaways, where there are any

Use markdown headers, lists and emphasis. Keep the notes concise and well organized.`

	defaultMindmapPrompt = `You are an expert at organizing knowledge visually. Read the transcript you are given and build a hierarchical mindmap that helps someone understand and remember it.

Respond with ONLY a valid JSON object and no other text.

The object must contain:
- "central": a string naming the main subject
- "branches": an array of 3 to 5 major themes, each an object with a "title" string and a "subtopics" array of 2 to 4 supporting points

Example:
{
  "central": "Main Topic",
  "branches": [
    {"title": "Key Concept 1", "subtopics": ["Detail 1", "Detail 2", "Detail 3"]},
    {"title": "Key Concept 2", "subtopics": ["Detail 1", "Detail 2"]}
  ]
}`

	notesUserTemplate   = "Please analyze the following transcript and create structured notes:\n\n%s"
	mindmapUserTemplate = "Please analyze the following transcript and create a mindmap structure:\n\n%s"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider            string // "openai" or "ollama"
	Model               string
	Temperature         float64
	MaxTokens           int
	MindmapMaxTokens    int
	BaseURL             string
	APIKey              string
	NotesSystemPrompt   string
	MindmapSystemPrompt string
	Timeout             time.Duration
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// ChatEngine generates structured notes and mindmaps from transcripts.
type ChatEngine struct {
	config  ChatConfig
	llm     llms.Model
	breaker *gobreaker.CircuitBreaker
}

// NewWithConfig creates a ChatEngine for the configured provider. An openai
// provider without an API key yields an engine that reports ErrNotConfigured
// on every call.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if err := applyDefaults(&config); err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "openai":
		if config.APIKey != "" {
			opts := []openai.Option{
				openai.WithToken(config.APIKey),
				openai.WithModel(config.Model),
			}
			if config.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(config.BaseURL))
			}
			llm, err := openai.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize LLM: %w", err)
			}
			model = llm
		}
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434" // Default Ollama URL
		}
		llm, err := ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		model = llm
	default:
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}

	return newEngine(config, model), nil
}

// NewWithModel wraps an existing model. A nil model behaves as unconfigured.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if err := applyDefaults(&config); err != nil {
		return nil, err
	}
	return newEngine(config, model), nil
}

func applyDefaults(config *ChatConfig) error {
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		if config.Provider == "ollama" {
			config.Model = "mistral"
		} else {
			config.Model = "gpt-4o-mini"
		}
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 || config.MindmapMaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.MindmapMaxTokens == 0 {
		config.MindmapMaxTokens = 1500
	}
	if config.NotesSystemPrompt == "" {
		config.NotesSystemPrompt = defaultNotesPrompt
	}
	if config.MindmapSystemPrompt == "" {
		config.MindmapSystemPrompt = defaultMindmapPrompt
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.BreakerTimeout == 0 {
		config.BreakerTimeout = 60 * time.Second
	}
	return nil
}

func newEngine(config ChatConfig, model llms.Model) *ChatEngine {
	threshold := config.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + config.Provider,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &ChatEngine{
		config:  config,
		llm:     model,
		breaker: breaker,
	}
}

func (ce *ChatEngine) IsAvailable() bool {
	return ce.llm != nil
}

func (ce *ChatEngine) Provider() string {
	return ce.config.Provider
}

// GenerateNotes asks the model for markdown notes covering transcript.
func (ce *ChatEngine) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	return ce.complete(ctx,
		ce.config.NotesSystemPrompt,
		fmt.Sprintf(notesUserTemplate, transcript),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
}

// GenerateMindmap asks the model for a mindmap JSON object. The raw reply is
// returned; coercion is up to the caller.
func (ce *ChatEngine) GenerateMindmap(ctx context.Context, transcript string) (string, error) {
	return ce.complete(ctx,
		ce.config.MindmapSystemPrompt,
		fmt.Sprintf(mindmapUserTemplate, transcript),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MindmapMaxTokens),
		llms.WithJSONMode(),
	)
}

func (ce *ChatEngine) complete(ctx context.Context, system, user string, options ...llms.CallOption) (string, error) {
	if ce.llm == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	result, err := ce.breaker.Execute(func() (interface{}, error) {
		response, err := ce.llm.GenerateContent(ctx, content, options...)
		if err != nil {
			return nil, err
		}
		if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
			return nil, ErrEmptyResponse
		}
		text := strings.TrimSpace(response.Choices[0].Content)
		if text == "" {
			return nil, ErrEmptyResponse
		}
		return text, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	return result.(string), nil
}

package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/smartnotes/pkg/llm"
)

// stubModel records each call and answers with a fixed reply or error.
type stubModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	options  []llms.CallOptions
	messages [][]llms.MessageContent
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.options = append(m.options, opts)
	m.messages = append(m.messages, messages)

	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider: "ollama",
		Model:    "testmodel",
		BaseURL:  "http://localhost:1234",
	})
	require.NoError(t, err)
	assert.True(t, engine.IsAvailable())
	assert.Equal(t, "ollama", engine.Provider())

	engine, err = llm.NewWithConfig(llm.ChatConfig{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.True(t, engine.IsAvailable())

	_, err = llm.NewWithConfig(llm.ChatConfig{Provider: "bard"})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: 3})
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{Provider: "openai"})
	require.NoError(t, err)
	assert.False(t, engine.IsAvailable())

	_, err = engine.GenerateNotes(context.Background(), "transcript")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	_, err = engine.GenerateMindmap(context.Background(), "transcript")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestGenerateNotes(t *testing.T) {
	model := &stubModel{reply: "  # Notes\n\n## Summary\nGo is fun.  "}
	engine, err := llm.NewWithModel(llm.ChatConfig{}, model)
	require.NoError(t, err)

	notes, err := engine.GenerateNotes(context.Background(), "we talked about Go")
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\n## Summary\nGo is fun.", notes)

	require.Equal(t, 1, model.calls)
	assert.Equal(t, 2000, model.options[0].MaxTokens)
	assert.Equal(t, 0.7, model.options[0].Temperature)
	assert.False(t, model.options[0].JSONMode)

	msgs := model.messages[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, msgs[1].Role)
	assert.Contains(t, msgs[1].Parts[0].(llms.TextContent).Text, "we talked about Go")
}

func TestGenerateMindmapUsesJSONMode(t *testing.T) {
	model := &stubModel{reply: `{"central":"Go","branches":[]}`}
	engine, err := llm.NewWithModel(llm.ChatConfig{}, model)
	require.NoError(t, err)

	raw, err := engine.GenerateMindmap(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, `{"central":"Go","branches":[]}`, raw)

	assert.Equal(t, 1500, model.options[0].MaxTokens)
	assert.True(t, model.options[0].JSONMode)
}

func TestEmptyResponse(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{}, &stubModel{reply: "   "})
	require.NoError(t, err)

	_, err = engine.GenerateNotes(context.Background(), "transcript")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	providerErr := errors.New("rate limited")
	model := &stubModel{err: providerErr}
	engine, err := llm.NewWithModel(llm.ChatConfig{FailureThreshold: 2}, model)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = engine.GenerateNotes(context.Background(), "transcript")
		assert.ErrorIs(t, err, providerErr)
		assert.NotErrorIs(t, err, llm.ErrNotConfigured)
	}

	_, err = engine.GenerateNotes(context.Background(), "transcript")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, model.calls)
}

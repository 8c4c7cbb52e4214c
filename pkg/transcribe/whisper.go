// Package transcribe sends recorded or uploaded audio to an OpenAI-compatible
// speech-to-text endpoint.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xhad/smartnotes/internal/models"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("transcription provider not configured")

type WhisperConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

type Whisper struct {
	config WhisperConfig
	client *openai.Client
}

func NewWithConfig(config WhisperConfig) *Whisper {
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}

	w := &Whisper{config: config}
	if config.APIKey == "" {
		return w
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	w.client = openai.NewClientWithConfig(clientConfig)

	return w
}

func (w *Whisper) Name() string {
	return "whisper"
}

func (w *Whisper) IsAvailable() bool {
	return w.client != nil
}

// Transcribe returns the plain-text transcript of audio.
func (w *Whisper) Transcribe(ctx context.Context, audio models.AudioPayload) (string, error) {
	if w.client == nil {
		return "", ErrNotConfigured
	}
	if len(audio.Data) == 0 {
		return "", errors.New("empty audio payload")
	}

	name := audio.Name
	if name == "" {
		name = "audio.webm"
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: name,
		Reader:   bytes.NewReader(audio.Data),
		Language: w.config.Language,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

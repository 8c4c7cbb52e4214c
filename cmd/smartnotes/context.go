package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xhad/smartnotes/internal/types"
	"github.com/xhad/smartnotes/pkg/acquire"
	"github.com/xhad/smartnotes/pkg/auth"
	"github.com/xhad/smartnotes/pkg/config"
	"github.com/xhad/smartnotes/pkg/llm"
	"github.com/xhad/smartnotes/pkg/logging"
	"github.com/xhad/smartnotes/pkg/metrics"
	"github.com/xhad/smartnotes/pkg/pipeline"
	"github.com/xhad/smartnotes/pkg/scraper"
	"github.com/xhad/smartnotes/pkg/store"
	"github.com/xhad/smartnotes/pkg/transcribe"
	"go.uber.org/zap"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once. Validation happens per command
// since not every command needs every section.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadConfig(path)
	})
	return c.config, c.configErr
}

// validConfig returns the configuration after validation, ignoring problems
// in the skipped field prefixes.
func (c *commandContext) validConfig(skip ...string) (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, verr := range cfg.Validate() {
		if hasAnyPrefix(verr.Field, skip) {
			continue
		}
		problems = append(problems, verr.Error())
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return cfg, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *commandContext) logger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

func newSessions(cfg *config.Config) (*auth.Sessions, error) {
	return auth.NewSessions(auth.SessionConfig{
		Secret:     cfg.Auth.SessionSecret,
		Issuer:     cfg.Auth.Issuer,
		TTL:        cfg.Auth.TokenTTL,
		CookieName: cfg.Auth.CookieName,
	})
}

func openStore(ctx context.Context, cfg *config.Config) (types.NoteStore, error) {
	return store.Open(ctx, store.StoreConfig{
		Driver:    cfg.Database.Driver,
		URL:       cfg.Database.URL,
		TableName: cfg.Database.TableName,
	})
}

// stages are the acquisition and generation components shared by serve and
// process.
type stages struct {
	upload       *acquire.Upload
	youtube      *acquire.YouTube
	live         *acquire.Live
	orchestrator *pipeline.Orchestrator
}

type stageOptions struct {
	logger  *zap.Logger
	metrics *metrics.Collector
	// onFetch observes every YouTube request.
	onFetch func(url string)
}

func buildStages(cfg *config.Config, opts stageOptions) (*stages, error) {
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}

	transcriber := transcribe.NewWithConfig(transcribe.WhisperConfig{
		BaseURL:  cfg.Transcription.BaseURL,
		APIKey:   cfg.Transcription.APIKey,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Timeout:  cfg.Transcription.Timeout,
	})
	if !transcriber.IsAvailable() {
		opts.logger.Warn("no transcription API key; uploads and recordings use fallback transcripts")
	}

	pages, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:    cfg.YouTube.BaseURL,
		RateLimit:  cfg.YouTube.RateLimit,
		Timeout:    cfg.YouTube.Timeout,
		UserAgent:  cfg.YouTube.UserAgent,
		OnProgress: opts.onFetch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:         cfg.LLM.Provider,
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		MindmapMaxTokens: cfg.LLM.MindmapMaxTokens,
		BaseURL:          cfg.LLM.BaseURL,
		APIKey:           cfg.LLM.APIKey,
		Timeout:          cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}
	if !chatEngine.IsAvailable() {
		opts.logger.Warn("no language model configured; generation uses fallback content",
			zap.String("provider", chatEngine.Provider()))
	}

	uploadConfig := acquire.UploadConfig{
		MaxBytes:          cfg.Upload.MaxBytes,
		AllowedTypes:      cfg.Upload.AllowedTypes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}

	return &stages{
		upload:  acquire.NewUpload(uploadConfig, transcriber, opts.logger.Named("upload")),
		youtube: acquire.NewYouTube(pages, opts.logger.Named("youtube")),
		live:    acquire.NewLive(cfg.Live.MaxBytes, transcriber, opts.logger.Named("live")),
		orchestrator: pipeline.NewOrchestrator(chatEngine, pipeline.OrchestratorConfig{
			MaxPromptChars: cfg.LLM.MaxPromptChars,
			Logger:         opts.logger.Named("generate"),
			Metrics:        opts.metrics,
		}),
	}, nil
}

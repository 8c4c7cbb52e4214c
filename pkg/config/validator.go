package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.MindmapMaxTokens < 1 || c.LLM.MindmapMaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.mindmap_max_tokens",
			Message: "mindmap_max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid LLM base URL",
			})
		}
	}

	// Validate YouTube config
	if c.YouTube.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "youtube.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if _, err := url.ParseRequestURI(c.YouTube.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "youtube.base_url",
			Message: "invalid YouTube base URL",
		})
	}

	// Validate upload limits
	if c.Upload.MaxBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "upload.max_bytes",
			Message: "max_bytes must be positive",
		})
	}

	if c.Live.MaxBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "live.max_bytes",
			Message: "max_bytes must be positive",
		})
	}

	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errors = append(errors, ValidationError{
				Field:   "upload.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	// Validate Database config
	switch c.Database.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: fmt.Sprintf("url is required for driver %s", c.Database.Driver),
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unknown driver: %s", c.Database.Driver),
		})
	}

	if c.Database.Driver == "postgres" && c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	// Validate Auth config
	if len(c.Auth.SessionSecret) < 16 {
		errors = append(errors, ValidationError{
			Field:   "auth.session_secret",
			Message: "session_secret must be at least 16 characters",
		})
	}

	if c.Auth.TokenTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "auth.token_ttl",
			Message: "token_ttl must be positive",
		})
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown log format: %s", c.Logging.Format),
		})
	}

	return errors
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultUploadMaxBytes = 25 * 1024 * 1024
	defaultLiveMaxBytes   = 50 * 1024 * 1024
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
	Upload        UploadConfig        `yaml:"upload"`
	Live          LiveConfig          `yaml:"live"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LLMConfig struct {
	Provider         string        `yaml:"provider"` // "openai" or "ollama"
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Model            string        `yaml:"model"`
	MaxTokens        int           `yaml:"max_tokens"`
	MindmapMaxTokens int           `yaml:"mindmap_max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	Timeout          time.Duration `yaml:"timeout"`
	// MaxPromptChars trims long transcripts before prompting; zero disables.
	MaxPromptChars   int           `yaml:"max_prompt_chars"`
}

type TranscriptionConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type YouTubeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedTypes      []string `yaml:"allowed_types"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type LiveConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type DatabaseConfig struct {
	Driver    string `yaml:"driver"` // "postgres", "sqlite" or "memory"
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
}

type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret"`
	Issuer        string        `yaml:"issuer"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	CookieName    string        `yaml:"cookie_name"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/smartnotes/config.yaml"),
			"/etc/smartnotes/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 5 * time.Minute
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gpt-4o-mini"
		}
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.MindmapMaxTokens == 0 {
		config.LLM.MindmapMaxTokens = 1500
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 2 * time.Minute
	}

	if config.Transcription.APIKey == "" {
		config.Transcription.APIKey = config.LLM.APIKey
	}
	if config.Transcription.Model == "" {
		config.Transcription.Model = "whisper-1"
	}
	if config.Transcription.Language == "" {
		config.Transcription.Language = "en"
	}
	if config.Transcription.Timeout == 0 {
		config.Transcription.Timeout = 5 * time.Minute
	}

	if config.YouTube.BaseURL == "" {
		config.YouTube.BaseURL = "https://www.youtube.com"
	}
	if config.YouTube.RateLimit == 0 {
		config.YouTube.RateLimit = 2.0
	}
	if config.YouTube.Timeout == 0 {
		config.YouTube.Timeout = 30 * time.Second
	}
	if config.YouTube.UserAgent == "" {
		config.YouTube.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}

	if config.Upload.MaxBytes == 0 {
		config.Upload.MaxBytes = defaultUploadMaxBytes
	}
	if len(config.Upload.AllowedTypes) == 0 {
		config.Upload.AllowedTypes = []string{
			"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/mp4",
			"audio/m4a", "audio/x-m4a", "audio/webm", "audio/ogg",
			"video/mp4", "video/avi", "video/x-msvideo", "video/x-matroska",
			"video/webm", "video/quicktime",
		}
	}
	if len(config.Upload.AllowedExtensions) == 0 {
		config.Upload.AllowedExtensions = []string{".mp3", ".wav", ".m4a", ".mp4", ".avi", ".mkv", ".webm", ".ogg", ".mov"}
	}

	if config.Live.MaxBytes == 0 {
		config.Live.MaxBytes = defaultLiveMaxBytes
	}

	if config.Database.Driver == "" {
		if config.Database.URL != "" {
			config.Database.Driver = "postgres"
		} else {
			config.Database.Driver = "memory"
		}
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "notes"
	}

	if config.Auth.Issuer == "" {
		config.Auth.Issuer = "smartnotes"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if config.Auth.CookieName == "" {
		config.Auth.CookieName = "smartnotes_session"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
		config.Transcription.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Auth.SessionSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.gencraft/config.yaml)
//  3. Default values
//
// Categories:
//   - API: conversation store base URL, request timeout
//   - Asset: asset store upload endpoint
//   - Generation: Gemini model name, history window
//   - Log: level and format
//
// Sensitive values (the Gemini API key) are never persisted here; the key is
// read from the environment and only its presence is validated. Components
// receive explicit config sections at construction; nothing reads viper
// ambiently after Load returns.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidBaseURL indicates a remote endpoint URL is malformed.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidHistoryLimit indicates the history window is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

const (
	// DefaultModel is the default Gemini model for answer generation.
	DefaultModel = "gemini-2.5-flash"

	// DefaultMaxHistoryTurns is the default number of prior turns included
	// in a generation request.
	DefaultMaxHistoryTurns = 50

	// MaxAllowedHistoryTurns is the absolute maximum to bound request size.
	MaxAllowedHistoryTurns = 1000

	// apiKeyEnv is the environment variable holding the Gemini API key.
	// The key is read by the generation client, not stored in Config.
	apiKeyEnv = "GEMINI_API_KEY"
)

// Config stores application configuration.
type Config struct {
	// Conversation store API
	APIBaseURL     string        `mapstructure:"api_base_url" json:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// Asset store (attachment uploads)
	AssetBaseURL  string        `mapstructure:"asset_base_url" json:"asset_base_url"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout" json:"upload_timeout"`

	// Generation
	Model           string `mapstructure:"model" json:"model"`
	MaxHistoryTurns int    `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".gencraft")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "http://localhost:3000")
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetDefault("asset_base_url", "http://localhost:3000")
	v.SetDefault("upload_timeout", 2*time.Minute)

	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_history_turns", DefaultMaxHistoryTurns)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is deliberately not bound: the generation client reads it
// directly and Validate only checks its presence.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_base_url", "GENCRAFT_API_URL")
	mustBind("asset_base_url", "GENCRAFT_ASSET_URL")
	mustBind("model", "GENCRAFT_MODEL")
	mustBind("log_level", "GENCRAFT_LOG_LEVEL")
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv(apiKeyEnv) == "" {
		return fmt.Errorf("%w: %s environment variable is required", ErrMissingAPIKey, apiKeyEnv)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidModelName)
	}

	if err := validateBaseURL("api_base_url", c.APIBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("asset_base_url", c.AssetBaseURL); err != nil {
		return err
	}

	if c.MaxHistoryTurns < 1 || c.MaxHistoryTurns > MaxAllowedHistoryTurns {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidHistoryLimit, MaxAllowedHistoryTurns, c.MaxHistoryTurns)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive, got %s", ErrInvalidTimeout, c.RequestTimeout)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("%w: upload_timeout must be positive, got %s", ErrInvalidTimeout, c.UploadTimeout)
	}

	return nil
}

// validateBaseURL checks a remote endpoint is an absolute http(s) URL.
func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidBaseURL, name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBaseURL, name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s must use http or https, got %q", ErrInvalidBaseURL, name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s has no host", ErrInvalidBaseURL, name)
	}
	return nil
}

// SlogLevel maps the configured log level name onto a slog.Level.
// Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

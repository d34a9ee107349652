package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		APIBaseURL:      "http://localhost:3000",
		RequestTimeout:  30 * time.Second,
		AssetBaseURL:    "https://assets.example.com",
		UploadTimeout:   2 * time.Minute,
		Model:           DefaultModel,
		MaxHistoryTurns: DefaultMaxHistoryTurns,
		LogLevel:        "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty api base url",
			mutate:  func(c *Config) { c.APIBaseURL = "" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "api base url without scheme",
			mutate:  func(c *Config) { c.APIBaseURL = "localhost:3000" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "asset base url with bad scheme",
			mutate:  func(c *Config) { c.AssetBaseURL = "ftp://assets.example.com" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "history limit zero",
			mutate:  func(c *Config) { c.MaxHistoryTurns = 0 },
			wantErr: ErrInvalidHistoryLimit,
		},
		{
			name:    "history limit above maximum",
			mutate:  func(c *Config) { c.MaxHistoryTurns = MaxAllowedHistoryTurns + 1 },
			wantErr: ErrInvalidHistoryLimit,
		},
		{
			name:    "non-positive request timeout",
			mutate:  func(c *Config) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "non-positive upload timeout",
			mutate:  func(c *Config) { c.UploadTimeout = -time.Second },
			wantErr: ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "test-key")

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

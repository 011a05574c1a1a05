package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewDefaults tests that New returns the documented defaults.
func TestNewDefaults(t *testing.T) {
	t.Parallel()

	cfg := New()

	if cfg.APIDelay != DefaultAPIDelay {
		t.Errorf("APIDelay = %v, want %v", cfg.APIDelay, DefaultAPIDelay)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.BackoffFactor != DefaultBackoffFactor {
		t.Errorf("BackoffFactor = %v, want %v", cfg.BackoffFactor, DefaultBackoffFactor)
	}
	if cfg.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("MaxConcurrent = %d, want %d", cfg.MaxConcurrent, DefaultMaxConcurrent)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir must default to the XDG data dir")
	}
	if cfg.Delay() != time.Second {
		t.Errorf("Delay() = %v, want 1s", cfg.Delay())
	}
}

// TestConfigValidate tests shared option validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid defaults", func(*Config) {}, nil},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, ErrMissingDataDir},
		{"negative api delay", func(c *Config) { c.APIDelay = -1 }, ErrInvalidAPIDelay},
		{"negative max retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"backoff below one", func(c *Config) { c.BackoffFactor = 0.5 }, ErrInvalidBackoffFactor},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, ErrInvalidMaxConcurrent},
		{"zero checkpoint interval", func(c *Config) { c.CheckpointInterval = 0 }, ErrInvalidCheckpointInterval},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, ErrInvalidRequestTimeout},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateForPull tests that pull requires remote API credentials.
func TestValidateForPull(t *testing.T) {
	t.Parallel()

	cfg := New()
	if err := cfg.ValidateForPull(); !errors.Is(err, ErrMissingAPIToken) {
		t.Errorf("expected ErrMissingAPIToken, got %v", err)
	}

	cfg.APIToken = "secret"
	if err := cfg.ValidateForPull(); !errors.Is(err, ErrMissingAPIBaseURL) {
		t.Errorf("expected ErrMissingAPIBaseURL, got %v", err)
	}

	cfg.APIBaseURL = "https://content.example.com"
	if err := cfg.ValidateForPull(); err != nil {
		t.Errorf("expected valid pull config, got %v", err)
	}
}

// TestValidateForIndex tests that index requires embedding credentials.
func TestValidateForIndex(t *testing.T) {
	t.Parallel()

	cfg := New()
	if err := cfg.ValidateForIndex(); !errors.Is(err, ErrMissingEmbeddingEndpoint) {
		t.Errorf("expected ErrMissingEmbeddingEndpoint, got %v", err)
	}

	cfg.EmbeddingEndpoint = "https://api.example.com/v1/embeddings"
	if err := cfg.ValidateForIndex(); !errors.Is(err, ErrMissingEmbeddingAPIKey) {
		t.Errorf("expected ErrMissingEmbeddingAPIKey, got %v", err)
	}
}

// TestLoadFromFileAndEnv tests layered resolution: file then env.
// Environment mutation means no t.Parallel here.
func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("api_token: from-file\napi_delay: 0.5\nmax_retries: 7\ndata_dir: " + dir + "\n")
	if err := os.WriteFile(path, body, 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MAX_RETRIES", "9")
	t.Setenv("API_BASE_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIToken != "from-file" {
		t.Errorf("APIToken = %q, want file value", cfg.APIToken)
	}
	if cfg.APIDelay != 0.5 {
		t.Errorf("APIDelay = %v, want 0.5", cfg.APIDelay)
	}
	if cfg.MaxRetries != 9 {
		t.Errorf("MaxRetries = %d, want env override 9", cfg.MaxRetries)
	}
	if cfg.APIBaseURL != "https://env.example.com" {
		t.Errorf("APIBaseURL = %q, want env value", cfg.APIBaseURL)
	}
}

// TestLoadMissingExplicitFile tests that an explicit path must exist.
func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

// TestLoadBadEnvValue tests that malformed numeric overrides fail.
func TestLoadBadEnvValue(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "many")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric MAX_CONCURRENT")
	}
}

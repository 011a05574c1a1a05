package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file searched for in the current
// directory when no explicit path is given.
const DefaultConfigFile = "config.yaml"

// ErrConfigNotFound is returned when an explicitly requested
// configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load resolves the configuration: defaults, then the YAML file at path
// (or ./config.yaml when path is empty), then environment overrides.
// A missing default config file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	return cfg, nil
}

// applyEnv overrides cfg fields from environment variables. Each option
// is overridable by the variable carrying its uppercased name.
func applyEnv(cfg *Config) error {
	setString(&cfg.APIToken, "API_TOKEN")
	setString(&cfg.APIBaseURL, "API_BASE_URL")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFile, "LOG_FILE")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.EmbeddingEndpoint, "EMBEDDING_ENDPOINT")
	setString(&cfg.EmbeddingAPIKey, "EMBEDDING_API_KEY")
	setString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")

	if err := setFloat(&cfg.APIDelay, "API_DELAY"); err != nil {
		return err
	}
	if err := setFloat(&cfg.BackoffFactor, "BACKOFF_FACTOR"); err != nil {
		return err
	}
	if err := setInt(&cfg.MaxRetries, "MAX_RETRIES"); err != nil {
		return err
	}
	if err := setInt(&cfg.MaxConcurrent, "MAX_CONCURRENT"); err != nil {
		return err
	}
	if err := setInt(&cfg.CheckpointInterval, "CHECKPOINT_INTERVAL"); err != nil {
		return err
	}
	return setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}

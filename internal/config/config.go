package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. The pacing and retry defaults mirror the
// rate limits of typical content APIs: roughly one request per second
// sustained, with short bursts tolerated.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "canopy"

	// DefaultAPIBaseURL is empty on purpose: the remote API endpoint is
	// deployment-specific and must be configured.
	DefaultAPIBaseURL = ""

	// DefaultAPIDelay is the minimum spacing between remote call starts,
	// in seconds. One second keeps a sustained crawl under the rate
	// limits most content APIs enforce.
	DefaultAPIDelay = 1.0

	// DefaultMaxRetries is the number of retries after the initial
	// attempt for transient fetch failures.
	DefaultMaxRetries = 3

	// DefaultBackoffFactor is the multiplier applied to the retry delay
	// on each successive attempt.
	DefaultBackoffFactor = 2.0

	// DefaultMaxConcurrent bounds in-flight remote calls system-wide.
	DefaultMaxConcurrent = 5

	// DefaultCheckpointInterval is how many node transitions may occur
	// between state-file flushes. 1 means flush after every transition;
	// a crash then loses at most the in-flight fetches.
	DefaultCheckpointInterval = 1

	// DefaultRequestTimeout is the per-request timeout for remote calls.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultLogLevel is the minimum level emitted by the logger.
	DefaultLogLevel = "info"

	// DefaultEmbeddingModel is the embedding model requested from the
	// embedding endpoint during indexing.
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Config holds all options for the pull, parse, and index stages.
// It is populated by Load and passed through the application by
// dependency injection; there is no global configuration state.
type Config struct {
	// APIToken authenticates against the remote content API.
	// Required for pull; parse and index operate on local data only.
	APIToken string `yaml:"api_token"`

	// APIBaseURL is the base URL of the remote content API.
	APIBaseURL string `yaml:"api_base_url"`

	// DataDir is the root directory for per-entity data. Each crawl root
	// owns {data_dir}/{root_entity_id}/ and nothing outside it.
	DataDir string `yaml:"data_dir"`

	// APIDelay is the pacing delay between remote call starts, in
	// seconds. Applied even when the concurrency bound would allow more.
	APIDelay float64 `yaml:"api_delay"`

	// MaxRetries is the retry budget for transient fetch failures.
	MaxRetries int `yaml:"max_retries"`

	// BackoffFactor grows the retry delay exponentially per attempt.
	BackoffFactor float64 `yaml:"backoff_factor"`

	// MaxConcurrent bounds in-flight remote calls.
	MaxConcurrent int `yaml:"max_concurrent"`

	// CheckpointInterval is the number of node transitions between
	// state-file flushes during a crawl.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// RequestTimeout is the per-request timeout for remote calls.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFile, when set, mirrors log output to a rotating file.
	LogFile string `yaml:"log_file"`

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// for the duration of a pull.
	MetricsAddr string `yaml:"metrics_addr"`

	// EmbeddingEndpoint is an OpenAI-compatible embeddings URL used by
	// the index stage.
	EmbeddingEndpoint string `yaml:"embedding_endpoint"`

	// EmbeddingAPIKey authenticates against the embedding endpoint.
	EmbeddingAPIKey string `yaml:"embedding_api_key"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `yaml:"embedding_model"`
}

// New returns a Config populated with defaults. Values that have no
// sensible default (API token, base URL) start empty and are caught by
// the relevant Validate call.
func New() *Config {
	return &Config{
		APIBaseURL:         DefaultAPIBaseURL,
		DataDir:            DefaultDataDir(),
		APIDelay:           DefaultAPIDelay,
		MaxRetries:         DefaultMaxRetries,
		BackoffFactor:      DefaultBackoffFactor,
		MaxConcurrent:      DefaultMaxConcurrent,
		CheckpointInterval: DefaultCheckpointInterval,
		RequestTimeout:     DefaultRequestTimeout,
		LogLevel:           DefaultLogLevel,
		EmbeddingModel:     DefaultEmbeddingModel,
	}
}

// DefaultDataDir returns the XDG data directory for canopy.
// On Linux: ~/.local/share/canopy.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Delay returns the pacing delay as a duration.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.APIDelay * float64(time.Second))
}

// EntityDir returns the directory owning all data for one crawl root.
func (c *Config) EntityDir(rootID string) string {
	return filepath.Join(c.DataDir, rootID)
}

// Validate checks options shared by every stage. It returns the first
// problem found; fixing one error often changes the rest.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.APIDelay < 0 {
		return ErrInvalidAPIDelay
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.BackoffFactor < 1.0 {
		return ErrInvalidBackoffFactor
	}
	if c.MaxConcurrent < 1 {
		return ErrInvalidMaxConcurrent
	}
	if c.CheckpointInterval < 1 {
		return ErrInvalidCheckpointInterval
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// ValidateForPull checks the additional options the pull stage needs to
// reach the remote API.
func (c *Config) ValidateForPull() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIToken == "" {
		return ErrMissingAPIToken
	}
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	return nil
}

// ValidateForIndex checks the additional options the index stage needs
// to reach the embedding provider.
func (c *Config) ValidateForIndex() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EmbeddingEndpoint == "" {
		return ErrMissingEmbeddingEndpoint
	}
	if c.EmbeddingAPIKey == "" {
		return ErrMissingEmbeddingAPIKey
	}
	return nil
}

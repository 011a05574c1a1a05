package config

import "errors"

// Configuration validation errors. Package-level sentinels so callers
// can use errors.Is while still printing a usable message.
var (
	// ErrMissingAPIToken is returned when pull runs without an API token.
	ErrMissingAPIToken = errors.New("api_token not set: export API_TOKEN or add api_token to the config file")

	// ErrMissingAPIBaseURL is returned when pull runs without a remote
	// API endpoint.
	ErrMissingAPIBaseURL = errors.New("api_base_url not set: export API_BASE_URL or add api_base_url to the config file")

	// ErrMissingDataDir is returned when the data directory is empty.
	ErrMissingDataDir = errors.New("data_dir not set")

	// ErrInvalidAPIDelay is returned when the pacing delay is negative.
	// Use 0 for no pacing between requests.
	ErrInvalidAPIDelay = errors.New("invalid api_delay: must be non-negative")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	// Use 0 to disable retries.
	ErrInvalidMaxRetries = errors.New("invalid max_retries: must be non-negative")

	// ErrInvalidBackoffFactor is returned when the backoff multiplier
	// would shrink delays between attempts.
	ErrInvalidBackoffFactor = errors.New("invalid backoff_factor: must be >= 1.0")

	// ErrInvalidMaxConcurrent is returned when the concurrency bound
	// would allow no calls at all.
	ErrInvalidMaxConcurrent = errors.New("invalid max_concurrent: must be at least 1")

	// ErrInvalidCheckpointInterval is returned when the flush interval
	// would never flush.
	ErrInvalidCheckpointInterval = errors.New("invalid checkpoint_interval: must be at least 1")

	// ErrInvalidRequestTimeout is returned when the per-request timeout
	// is not positive.
	ErrInvalidRequestTimeout = errors.New("invalid request_timeout: must be positive")

	// ErrInvalidLogLevel is returned for levels other than
	// debug, info, warn, error.
	ErrInvalidLogLevel = errors.New("invalid log_level: must be one of debug, info, warn, error")

	// ErrMissingEmbeddingEndpoint is returned when index runs without an
	// embedding endpoint.
	ErrMissingEmbeddingEndpoint = errors.New("embedding_endpoint not set: the index stage needs an embeddings API")

	// ErrMissingEmbeddingAPIKey is returned when index runs without
	// embedding credentials.
	ErrMissingEmbeddingAPIKey = errors.New("embedding_api_key not set")
)

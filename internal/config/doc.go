// Package config provides configuration for the canopy pipeline.
//
// Options are resolved in three layers, later layers winning:
// built-in defaults, a YAML config file, and environment variables named
// after the option in uppercase (api_delay -> API_DELAY).
package config

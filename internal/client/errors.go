package client

import (
	"fmt"
	"time"
)

// ErrorKind classifies fetch failures for retry decisions and for the
// failure reasons recorded in crawl state.
type ErrorKind string

const (
	// KindRateLimited is an HTTP 429. Transient; the response's
	// Retry-After hint, when present, overrides the backoff delay for
	// that attempt.
	KindRateLimited ErrorKind = "rate_limited"

	// KindServer is an HTTP 5xx. Transient.
	KindServer ErrorKind = "server_error"

	// KindTransport is a network-level failure (or an unexpected
	// status). Transient.
	KindTransport ErrorKind = "transport"

	// KindUnauthorized is an HTTP 401 or 403. Never retried.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindNotFound is an HTTP 404. Never retried.
	KindNotFound ErrorKind = "not_found"
)

// FetchError is a typed remote call failure.
type FetchError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// StatusCode is the HTTP status, when one was received.
	StatusCode int

	// RetryAfter carries the server's Retry-After hint on 429 responses.
	RetryAfter time.Duration

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s", e.Kind)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTransport:
		return true
	}
	return false
}

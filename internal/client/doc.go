// Package client is the single choke point for all remote content API
// calls.
//
// It enforces three independent controls: a counting semaphore bounding
// in-flight calls system-wide, a minimum pacing delay between call
// starts, and exponential-backoff retry for transient failures. Time is
// injected through a Clock so the backoff schedule is testable without
// real sleeps.
package client

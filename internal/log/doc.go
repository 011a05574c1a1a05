// Package log provides structured logging for canopy.
//
// It builds slog loggers whose records pass through a redacting handler
// so that API tokens and other credentials never reach the log sink,
// and optionally mirrors output to a size-rotated log file.
package log

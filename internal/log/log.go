package log

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits. A long crawl over a large tree logs one line
// per node at debug level, so files are capped and rotated.
const (
	maxLogSizeMB  = 50
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// Options configures a logger.
type Options struct {
	// Level is the minimum level: debug, info, warn, error.
	// Unknown values fall back to info.
	Level string

	// File, when set, mirrors log output to a size-rotated file at this
	// path in addition to stderr.
	File string
}

// New creates a logger writing text records to stderr (and optionally a
// rotating file), with credential redaction applied to every record.
func New(opts Options) *slog.Logger {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		})
	}

	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	return slog.New(NewRedactHandler(base))
}

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch level {
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

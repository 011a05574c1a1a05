package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// TestRedactHandlerMasksSensitiveKeys tests masking by attribute key.
func TestRedactHandlerMasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		val  string
		want bool // true if the value must be masked
	}{
		{"api token key", "api_token", "ntn_abcdef", true},
		{"token suffix", "refresh_token", "abc", true},
		{"secret suffix", "client_secret", "abc", true},
		{"authorization", "authorization", "whatever", true},
		{"plain key survives", "entity_id", "b2c3d4", false},
		{"bearer value masked by pattern", "header", "Bearer abc.def", true},
		{"opaque key value masked by pattern", "note", "sk_ABCDEFGHIJKLMNOPQR", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))

			logger.Info("msg", tt.key, tt.val)

			out := buf.String()
			masked := strings.Contains(out, MaskValue)
			if masked != tt.want {
				t.Errorf("masked = %v, want %v (output: %s)", masked, tt.want, out)
			}
			if tt.want && strings.Contains(out, tt.val) {
				t.Errorf("sensitive value leaked into output: %s", out)
			}
		})
	}
}

// TestRedactHandlerGroups tests masking inside attribute groups.
func TestRedactHandlerGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("msg", slog.Group("config",
		slog.String("api_token", "ntn_secretvalue"),
		slog.String("data_dir", "/tmp/data"),
	))

	out := buf.String()
	if strings.Contains(out, "ntn_secretvalue") {
		t.Errorf("token in group leaked: %s", out)
	}
	if !strings.Contains(out, "/tmp/data") {
		t.Errorf("non-sensitive group attr lost: %s", out)
	}
}

// TestRedactHandlerWithAttrs tests masking of pre-bound attributes.
func TestRedactHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewRedactHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("api_key", "topsecret")}))

	logger.Info("msg")

	if strings.Contains(buf.String(), "topsecret") {
		t.Errorf("bound attribute leaked: %s", buf.String())
	}
}

// TestRedactHandlerEnabled tests level delegation.
func TestRedactHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := NewRedactHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug must be disabled under a warn-level sink")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error must be enabled under a warn-level sink")
	}
}

// TestParseLevel tests level name mapping.
func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

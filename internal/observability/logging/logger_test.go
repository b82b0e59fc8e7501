package logging

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestNewLoggerLevelFromEnv(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			logger := NewLogger()
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %v should be enabled for LOG_LEVEL=%q", tt.enabled, tt.level)
			}
			if logger.Enabled(ctx, tt.muted) {
				t.Errorf("level %v should be muted for LOG_LEVEL=%q", tt.muted, tt.level)
			}
		})
	}
}

func TestNewTextLoggerRespectsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := NewTextLogger()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled")
	}
}

func TestWithFields(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	withFields := WithFields(logger, map[string]interface{}{
		"category": "tech",
		"feeds":    5,
	})
	if withFields == logger {
		t.Error("WithFields should return a derived logger")
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("FromContext without a stored logger should return the default")
	}
}

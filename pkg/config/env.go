// Package config reads configuration from environment variables with
// typed accessors. Unparseable values never fail startup; they log a
// warning and fall back to the caller's default.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// GetEnvString returns the variable's value, or fallback when unset
// or empty.
func GetEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses the variable as an integer. Unset or invalid
// values yield fallback; invalid ones additionally log a warning.
func GetEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		warnInvalid(key, raw, strconv.Itoa(fallback))
		return fallback
	}
	return value
}

// GetEnvBool parses the variable with strconv.ParseBool semantics
// ("1", "t", "true", "0", "f", "false" in any case).
func GetEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		warnInvalid(key, raw, strconv.FormatBool(fallback))
		return fallback
	}
	return value
}

// GetEnvDuration parses the variable with time.ParseDuration, so
// values like "30s" or "1h30m".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		warnInvalid(key, raw, fallback.String())
		return fallback
	}
	return value
}

func warnInvalid(key, raw, used string) {
	slog.Warn("invalid environment value, using default",
		slog.String("key", key),
		slog.String("value", raw),
		slog.String("default", used))
}

package config

import (
	"testing"
	"time"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	if got := GetEnvString("TEST_STRING", "fallback"); got != "value" {
		t.Errorf("got %q", got)
	}
	if got := GetEnvString("TEST_STRING_UNSET", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := GetEnvInt("TEST_INT", 7); got != 42 {
		t.Errorf("got %d", got)
	}

	t.Setenv("TEST_INT", "not-a-number")
	if got := GetEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("invalid value should fall back, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !GetEnvBool("TEST_BOOL", false) {
		t.Error("expected true")
	}

	t.Setenv("TEST_BOOL", "maybe")
	if GetEnvBool("TEST_BOOL", false) {
		t.Error("invalid value should fall back to false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	if got := GetEnvDuration("TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("got %v", got)
	}

	t.Setenv("TEST_DURATION", "ninety seconds")
	if got := GetEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("invalid value should fall back, got %v", got)
	}
}

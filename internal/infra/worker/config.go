// Package worker holds the runtime pieces of the scheduled ingestion
// worker: its configuration, job metrics, and the health endpoint.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"postpilot/pkg/config"
)

// Config controls the scheduled refresh worker.
type Config struct {
	// CronSchedule is the standard 5-field cron expression for the
	// full-refresh job.
	CronSchedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	Timezone string

	// RefreshTimeout caps one full refresh run. The run's context is
	// cancelled when it elapses.
	RefreshTimeout time.Duration

	// NotifyMaxConcurrent bounds in-flight webhook notifications.
	NotifyMaxConcurrent int

	// HealthPort serves the liveness/readiness endpoints.
	HealthPort int

	// MetricsPort serves the Prometheus scrape endpoint.
	MetricsPort int
}

// DefaultConfig returns production defaults: one refresh per hour,
// UTC, 30-minute cap.
func DefaultConfig() Config {
	return Config{
		CronSchedule:        "10 * * * *",
		Timezone:            "UTC",
		RefreshTimeout:      30 * time.Minute,
		NotifyMaxConcurrent: 10,
		HealthPort:          9091,
		MetricsPort:         9090,
	}
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.CronSchedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", c.CronSchedule, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.RefreshTimeout < time.Minute || c.RefreshTimeout > 4*time.Hour {
		return fmt.Errorf("refresh timeout %s outside 1m..4h", c.RefreshTimeout)
	}
	if c.NotifyMaxConcurrent < 1 || c.NotifyMaxConcurrent > 50 {
		return fmt.Errorf("notify max concurrent %d outside 1..50", c.NotifyMaxConcurrent)
	}
	for _, port := range []int{c.HealthPort, c.MetricsPort} {
		if port < 1024 || port > 65535 {
			return fmt.Errorf("port %d outside 1024..65535", port)
		}
	}
	return nil
}

// LoadConfigFromEnv reads the worker configuration from the
// environment. Invalid values fall back to the defaults with a
// warning; the returned configuration is always valid.
func LoadConfigFromEnv() Config {
	defaults := DefaultConfig()

	cfg := Config{
		CronSchedule:        config.GetEnvString("CRON_SCHEDULE", defaults.CronSchedule),
		Timezone:            config.GetEnvString("WORKER_TIMEZONE", defaults.Timezone),
		RefreshTimeout:      config.GetEnvDuration("REFRESH_TIMEOUT", defaults.RefreshTimeout),
		NotifyMaxConcurrent: config.GetEnvInt("NOTIFY_MAX_CONCURRENT", defaults.NotifyMaxConcurrent),
		HealthPort:          config.GetEnvInt("WORKER_HEALTH_PORT", defaults.HealthPort),
		MetricsPort:         config.GetEnvInt("METRICS_PORT", defaults.MetricsPort),
	}
	if err := cfg.Validate(); err != nil {
		// Fall back field by field so one bad variable does not
		// discard the rest.
		cfg = repairConfig(cfg, defaults)
	}
	return cfg
}

func repairConfig(cfg, defaults Config) Config {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.CronSchedule); err != nil {
		warnFallback("CRON_SCHEDULE", cfg.CronSchedule, defaults.CronSchedule)
		cfg.CronSchedule = defaults.CronSchedule
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		warnFallback("WORKER_TIMEZONE", cfg.Timezone, defaults.Timezone)
		cfg.Timezone = defaults.Timezone
	}
	if cfg.RefreshTimeout < time.Minute || cfg.RefreshTimeout > 4*time.Hour {
		warnFallback("REFRESH_TIMEOUT", cfg.RefreshTimeout.String(), defaults.RefreshTimeout.String())
		cfg.RefreshTimeout = defaults.RefreshTimeout
	}
	if cfg.NotifyMaxConcurrent < 1 || cfg.NotifyMaxConcurrent > 50 {
		warnFallback("NOTIFY_MAX_CONCURRENT", fmt.Sprint(cfg.NotifyMaxConcurrent), fmt.Sprint(defaults.NotifyMaxConcurrent))
		cfg.NotifyMaxConcurrent = defaults.NotifyMaxConcurrent
	}
	if cfg.HealthPort < 1024 || cfg.HealthPort > 65535 {
		warnFallback("WORKER_HEALTH_PORT", fmt.Sprint(cfg.HealthPort), fmt.Sprint(defaults.HealthPort))
		cfg.HealthPort = defaults.HealthPort
	}
	if cfg.MetricsPort < 1024 || cfg.MetricsPort > 65535 {
		warnFallback("METRICS_PORT", fmt.Sprint(cfg.MetricsPort), fmt.Sprint(defaults.MetricsPort))
		cfg.MetricsPort = defaults.MetricsPort
	}
	return cfg
}

func warnFallback(key, got, used string) {
	slog.Warn("invalid worker configuration value, using default",
		slog.String("key", key),
		slog.String("value", got),
		slog.String("default", used))
}

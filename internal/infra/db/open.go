// Package db opens the PostgreSQL connection pool and applies the
// schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"postpilot/pkg/config"
)

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultPoolConfig returns the production pool settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpen:     25,
		MaxIdle:     10,
		MaxLifetime: time.Hour,
		MaxIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFromEnv reads pool overrides from DB_MAX_OPEN_CONNS,
// DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME.
// Non-positive overrides are ignored.
func PoolConfigFromEnv() PoolConfig {
	defaults := DefaultPoolConfig()
	cfg := PoolConfig{
		MaxOpen:     config.GetEnvInt("DB_MAX_OPEN_CONNS", defaults.MaxOpen),
		MaxIdle:     config.GetEnvInt("DB_MAX_IDLE_CONNS", defaults.MaxIdle),
		MaxLifetime: config.GetEnvDuration("DB_CONN_MAX_LIFETIME", defaults.MaxLifetime),
		MaxIdleTime: config.GetEnvDuration("DB_CONN_MAX_IDLE_TIME", defaults.MaxIdleTime),
	}
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = defaults.MaxOpen
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = defaults.MaxIdle
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = defaults.MaxLifetime
	}
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = defaults.MaxIdleTime
	}
	return cfg
}

// Open connects to the database named by DATABASE_URL, applies the
// pool configuration, and verifies the connection with a bounded ping.
func Open() (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := PoolConfigFromEnv()
	database.SetMaxOpenConns(cfg.MaxOpen)
	database.SetMaxIdleConns(cfg.MaxIdle)
	database.SetConnMaxLifetime(cfg.MaxLifetime)
	database.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected",
		slog.Int("max_open_conns", cfg.MaxOpen),
		slog.Int("max_idle_conns", cfg.MaxIdle),
		slog.Duration("conn_max_lifetime", cfg.MaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.MaxIdleTime))
	return database, nil
}

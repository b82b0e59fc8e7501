// Command worker runs the scheduled feed refresh pipeline. It crawls
// every category in the static registry on a cron schedule, persists
// new articles, and reports each run to the configured notification
// channels. Liveness, readiness and Prometheus metrics are served on
// dedicated ports.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"postpilot/internal/feeds"
	"postpilot/internal/infra/adapter/persistence/postgres"
	"postpilot/internal/infra/db"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/infra/notifier"
	"postpilot/internal/infra/scraper"
	workerPkg "postpilot/internal/infra/worker"
	"postpilot/internal/observability/logging"
	"postpilot/internal/observability/metrics"
	"postpilot/internal/resilience/circuitbreaker"
	"postpilot/internal/usecase/ingest"
	"postpilot/internal/usecase/notify"
	"postpilot/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database, err := db.Open()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migrations failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerConfig := workerPkg.LoadConfigFromEnv()
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("refresh_timeout", workerConfig.RefreshTimeout),
		slog.Int("notify_max_concurrent", workerConfig.NotifyMaxConcurrent),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	notifyService := setupNotifyService(logger, workerConfig.NotifyMaxConcurrent)
	svc, err := setupIngestService(logger, database, notifyService)
	if err != nil {
		logger.Error("failed to set up ingest service", slog.Any("error", err))
		os.Exit(1)
	}

	if err := svc.SyncCategories(ctx); err != nil {
		logger.Error("category sync failed", slog.Any("error", err))
		os.Exit(1)
	}

	workerMetrics := workerPkg.NewMetrics()
	startMetricsServer(ctx, logger, notifyService, workerConfig.MetricsPort)
	go reportPoolStats(ctx, database)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	runCronWorker(ctx, logger, svc, workerConfig, workerMetrics, healthServer)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification service shutdown incomplete", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// reportPoolStats feeds the connection pool gauges every 15 seconds.
func reportPoolStats(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := database.Stats()
			metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)
		}
	}
}

// setupNotifyService builds the notification fan-out from the webhook
// environment variables. A channel with no webhook URL stays disabled.
func setupNotifyService(logger *slog.Logger, maxConcurrent int) notify.Service {
	timeout := config.GetEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)

	var channels []notify.Channel
	if url := config.GetEnvString("SLACK_WEBHOOK_URL", ""); url != "" {
		slack := notifier.NewSlackNotifier(notifier.SlackConfig{
			Enabled:    true,
			WebhookURL: url,
			Timeout:    timeout,
		})
		channels = append(channels, notify.NewChannel("slack", true, slack))
		logger.Info("slack channel enabled")
	}
	if url := config.GetEnvString("DISCORD_WEBHOOK_URL", ""); url != "" {
		discord := notifier.NewDiscordNotifier(notifier.DiscordConfig{
			Enabled:    true,
			WebhookURL: url,
			Timeout:    timeout,
		})
		channels = append(channels, notify.NewChannel("discord", true, discord))
		logger.Info("discord channel enabled")
	}
	if len(channels) == 0 {
		channels = append(channels, notify.NewChannel("noop", true, notifier.NewNoopNotifier()))
		logger.Info("no webhook configured, crawl reports go to the noop channel")
	}

	return notify.NewService(channels, maxConcurrent)
}

// setupIngestService wires the refresh pipeline behind the database
// circuit breaker.
func setupIngestService(logger *slog.Logger, database *sql.DB, notifyService notify.Service) (*ingest.Service, error) {
	registry, err := feeds.Load()
	if err != nil {
		return nil, fmt.Errorf("load feed registry: %w", err)
	}
	logger.Info("feed registry loaded",
		slog.Int("categories", len(registry.Categories())))

	breaker := circuitbreaker.NewDBCircuitBreaker(database)
	articleRepo := postgres.NewArticleRepo(breaker)
	categoryRepo := postgres.NewCategoryRepo(breaker)
	linkRepo := postgres.NewArticleCategoryRepo(breaker)

	feedFetcher := scraper.NewRSSFetcher(&http.Client{Timeout: 30 * time.Second})

	var contentFetcher ingest.ContentFetcher
	contentConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid content fetch configuration, backfill disabled",
			slog.Any("error", err))
	} else if contentConfig.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentConfig)
		logger.Info("content backfill enabled",
			slog.Duration("timeout", contentConfig.Timeout),
			slog.Int("max_chars", contentConfig.MaxChars))
	} else {
		logger.Info("content backfill disabled")
	}

	return ingest.NewService(
		registry,
		articleRepo,
		categoryRepo,
		linkRepo,
		feedFetcher,
		contentFetcher,
		notifyService,
	), nil
}

// runCronWorker runs one immediate refresh, then refreshes on the
// configured schedule until SIGINT or SIGTERM.
func runCronWorker(ctx context.Context, logger *slog.Logger, svc *ingest.Service, cfg workerPkg.Config, m *workerPkg.Metrics, health *workerPkg.HealthServer) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone))
		location = time.UTC
	}

	refresh := func() {
		runCtx, cancel := context.WithTimeout(ctx, cfg.RefreshTimeout)
		defer cancel()

		start := time.Now()
		stats, err := svc.RefreshAll(runCtx)
		elapsed := time.Since(start)

		result := "success"
		if err != nil {
			result = "error"
			logger.Error("refresh failed",
				slog.Any("error", err),
				slog.Duration("elapsed", elapsed))
		}
		feedCount := 0
		if stats != nil {
			feedCount = stats.Feeds
		}
		m.RecordRun(result, elapsed.Seconds(), feedCount)
	}

	health.SetReady(true)
	refresh()

	scheduler := cron.New(cron.WithLocation(location))
	if _, err := scheduler.AddFunc(cfg.CronSchedule, refresh); err != nil {
		logger.Error("failed to schedule refresh", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("refresh scheduled",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", location.String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	health.SetReady(false)
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(cfg.RefreshTimeout):
		logger.Warn("running refresh did not finish before shutdown deadline")
	}
}

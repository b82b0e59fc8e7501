// Package main provides the newsctl CLI for operating the article
// ingestion pipeline outside the scheduled worker.
//
// Usage:
//
//	newsctl refresh-all [--timeout 30m]
//	newsctl refresh-category <slug> [--timeout 30m]
//	newsctl repair-categories [--dry-run]
//	newsctl purge-no-image
//	newsctl sync-categories
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"postpilot/internal/feeds"
	"postpilot/internal/infra/adapter/persistence/postgres"
	"postpilot/internal/infra/db"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/infra/scraper"
	"postpilot/internal/observability/logging"
	"postpilot/internal/resilience/circuitbreaker"
	"postpilot/internal/usecase/ingest"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: newsctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  refresh-all                 crawl every category in the registry")
	fmt.Fprintln(os.Stderr, "  refresh-category <slug>     crawl one category")
	fmt.Fprintln(os.Stderr, "  repair-categories           relink articles to their registry category")
	fmt.Fprintln(os.Stderr, "  purge-no-image              soft-delete articles without an image")
	fmt.Fprintln(os.Stderr, "  sync-categories             upsert registry categories into the database")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	switch os.Args[1] {
	case "refresh-all":
		runRefreshAll(os.Args[2:])
	case "refresh-category":
		runRefreshCategory(os.Args[2:])
	case "repair-categories":
		runRepairCategories(os.Args[2:])
	case "purge-no-image":
		runPurgeNoImage()
	case "sync-categories":
		runSyncCategories()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
	}
}

// setup opens the database and wires an ingest service. Crawl reports
// are disabled; CLI runs print their outcome to stdout instead.
func setup() (*ingest.Service, func()) {
	database, err := db.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	cleanup := func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("error", err))
		}
	}

	if err := db.MigrateUp(database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: migrations failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	registry, err := feeds.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load feed registry: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	breaker := circuitbreaker.NewDBCircuitBreaker(database)
	articleRepo := postgres.NewArticleRepo(breaker)
	categoryRepo := postgres.NewCategoryRepo(breaker)
	linkRepo := postgres.NewArticleCategoryRepo(breaker)

	feedFetcher := scraper.NewRSSFetcher(&http.Client{Timeout: 30 * time.Second})

	var contentFetcher ingest.ContentFetcher
	if contentConfig, err := fetcher.LoadConfigFromEnv(); err == nil && contentConfig.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentConfig)
	}

	svc := ingest.NewService(
		registry,
		articleRepo,
		categoryRepo,
		linkRepo,
		feedFetcher,
		contentFetcher,
		nil,
	)
	return svc, cleanup
}

func printCrawlStats(scope string, stats *ingest.CrawlStats) {
	fmt.Printf("Refresh complete (%s)\n", scope)
	fmt.Printf("  Feeds:        %d\n", stats.Feeds)
	fmt.Printf("  Entries:      %d\n", stats.Entries)
	fmt.Printf("  Inserted:     %d\n", stats.Inserted)
	fmt.Printf("  Duplicated:   %d\n", stats.Duplicated)
	fmt.Printf("  Skipped:      %d\n", stats.Skipped)
	fmt.Printf("  Fetch errors: %d\n", stats.FetchErrors)
	fmt.Printf("  Duration:     %s\n", stats.Duration.Round(time.Millisecond))
}

func runRefreshAll(args []string) {
	fs := flag.NewFlagSet("refresh-all", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Minute, "overall crawl deadline")
	_ = fs.Parse(args)

	svc, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := svc.RefreshAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: refresh failed: %v\n", err)
		os.Exit(1)
	}
	printCrawlStats("all", stats)
}

func runRefreshCategory(args []string) {
	fs := flag.NewFlagSet("refresh-category", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Minute, "overall crawl deadline")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: category slug is required")
		fmt.Fprintln(os.Stderr, "Usage: newsctl refresh-category <slug> [--timeout 30m]")
		os.Exit(1)
	}
	slug := fs.Arg(0)

	svc, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := svc.RefreshCategory(ctx, slug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: refresh failed: %v\n", err)
		os.Exit(1)
	}
	printCrawlStats(slug, stats)
}

func runRepairCategories(args []string) {
	fs := flag.NewFlagSet("repair-categories", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	_ = fs.Parse(args)

	svc, cleanup := setup()
	defer cleanup()

	stats, err := svc.RepairCategories(context.Background(), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: repair failed: %v\n", err)
		os.Exit(1)
	}

	mode := "repaired"
	if *dryRun {
		mode = "would repair"
	}
	fmt.Printf("Category repair complete\n")
	fmt.Printf("  Articles %s:         %d\n", mode, stats.Repaired)
	fmt.Printf("  Skipped (unknown feed): %d\n", stats.SkippedUnknownSource)
}

func runPurgeNoImage() {
	svc, cleanup := setup()
	defer cleanup()

	deleted, err := svc.PurgeWithoutImage(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: purge failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Soft-deleted %d articles without an image\n", deleted)
}

func runSyncCategories() {
	svc, cleanup := setup()
	defer cleanup()

	if err := svc.SyncCategories(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: category sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Categories synced from the feed registry")
}

// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics track feed crawling and article persistence
var (
	// ArticlesTotal tracks total number of articles in the database
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the database",
		},
	)

	// EntriesFetchedTotal counts feed entries fetched per source
	EntriesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_entries_fetched_total",
			Help: "Total number of feed entries fetched",
		},
		[]string{"source"},
	)

	// FeedCrawlDuration measures time to refresh a category's feeds
	FeedCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_crawl_duration_seconds",
			Help:    "Time taken to refresh all feeds of a category",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"category"},
	)

	// FeedCrawlErrors counts errors during feed crawling
	FeedCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_crawl_errors_total",
			Help: "Total number of feed crawl errors",
		},
		[]string{"feed", "error_type"},
	)

	// ArticlesIngestedTotal counts new articles stored per category
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of new articles stored",
		},
		[]string{"category"},
	)

	// ArticlesDeduplicatedTotal counts entries skipped as duplicates
	ArticlesDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_deduplicated_total",
			Help: "Total number of feed entries skipped as duplicates",
		},
	)
)

// Content fetch metrics track full-text extraction
var (
	// ContentFetchAttemptsTotal counts content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in characters
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_chars",
			Help: "Extracted article content size in characters",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400,
			},
		},
	)
)

// Generation metrics track the draft generation pipeline
var (
	// GenerationsTotal counts generation attempts by provider and status
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Total number of draft generation attempts",
		},
		[]string{"provider", "status"},
	)

	// GenerationDuration measures end-to-end generation latency
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "End-to-end draft generation duration",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"provider"},
	)

	// GenerationScore distributes heuristic draft scores
	GenerationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_score",
			Help:    "Heuristic quality score of generated drafts",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// QuotaReservationsTotal counts quota reservations by provider and result
	QuotaReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_reservations_total",
			Help: "Total number of quota reservation attempts",
		},
		[]string{"provider", "result"}, // result: reserved, exceeded
	)

	// QuotaRefundsTotal counts quota refunds by provider
	QuotaRefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_refunds_total",
			Help: "Total number of quota units refunded",
		},
		[]string{"provider"},
	)

	// FileExtractionDuration measures source file text extraction time
	FileExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "file_extraction_duration_seconds",
			Help:    "Time taken to extract text from an uploaded file",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"}, // kind: txt, docx, pdf_native, pdf_vision
	)
)

// Database metrics track connection pool health
var (
	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

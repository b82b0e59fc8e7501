// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Feed ingestion metrics (crawl durations, inserts, dedup skips)
//   - Content fetch metrics (attempts, duration, size)
//   - Generation metrics (attempts, latency, scores, quota movements)
//   - Database connection pool gauges
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the worker's /metrics endpoint.
//
// Example usage:
//
//	import "postpilot/internal/observability/metrics"
//
//	func refresh(category string) {
//	    start := time.Now()
//	    // ... crawl feeds ...
//	    metrics.RecordFeedCrawl(category, time.Since(start), inserted, duplicated)
//	}
package metrics

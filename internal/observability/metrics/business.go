package metrics

import "time"

// RecordEntriesFetched records the number of feed entries fetched from
// a source. This helps track feed activity and dead feeds.
func RecordEntriesFetched(sourceName string, count int) {
	EntriesFetchedTotal.WithLabelValues(sourceName).Add(float64(count))
}

// RecordFeedCrawl records metrics for one category refresh.
func RecordFeedCrawl(category string, duration time.Duration, inserted, duplicated int64) {
	FeedCrawlDuration.WithLabelValues(category).Observe(duration.Seconds())
	if inserted > 0 {
		ArticlesIngestedTotal.WithLabelValues(category).Add(float64(inserted))
	}
	if duplicated > 0 {
		ArticlesDeduplicatedTotal.Add(float64(duplicated))
	}
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(feedURL, errorType string) {
	FeedCrawlErrors.WithLabelValues(feedURL, errorType).Inc()
}

// UpdateArticlesTotal updates the total count of articles in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch,
// tracking both duration and extracted size.
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a content fetch that was skipped
// because cached or feed-provided content was sufficient.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordGeneration records one draft generation attempt.
// Status should be "success", "failure" or "rejected".
func RecordGeneration(provider, status string, duration time.Duration) {
	GenerationsTotal.WithLabelValues(provider, status).Inc()
	GenerationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordGenerationScore records the heuristic score of a stored draft.
func RecordGenerationScore(score int) {
	GenerationScore.Observe(float64(score))
}

// RecordQuotaReservation records a quota reservation attempt.
// Result should be "reserved" or "exceeded".
func RecordQuotaReservation(provider, result string) {
	QuotaReservationsTotal.WithLabelValues(provider, result).Inc()
}

// RecordQuotaRefund records units handed back after a failed generation.
func RecordQuotaRefund(provider string, units int) {
	QuotaRefundsTotal.WithLabelValues(provider).Add(float64(units))
}

// RecordFileExtraction records a source-file text extraction.
func RecordFileExtraction(kind string, duration time.Duration) {
	FileExtractionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

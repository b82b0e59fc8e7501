package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEntriesFetched(t *testing.T) {
	before := testutil.ToFloat64(EntriesFetchedTotal.WithLabelValues("Test Source"))
	RecordEntriesFetched("Test Source", 7)
	after := testutil.ToFloat64(EntriesFetchedTotal.WithLabelValues("Test Source"))
	assert.Equal(t, 7.0, after-before)
}

func TestRecordFeedCrawl(t *testing.T) {
	insertedBefore := testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("technology-ai-software"))
	dupBefore := testutil.ToFloat64(ArticlesDeduplicatedTotal)

	RecordFeedCrawl("technology-ai-software", 2*time.Second, 3, 5)

	assert.Equal(t, 3.0, testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("technology-ai-software"))-insertedBefore)
	assert.Equal(t, 5.0, testutil.ToFloat64(ArticlesDeduplicatedTotal)-dupBefore)
}

func TestRecordFeedCrawlZeroCountsDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordFeedCrawl("markets-investing-fintech", time.Second, 0, 0)
	})
}

func TestRecordQuotaReservation(t *testing.T) {
	before := testutil.ToFloat64(QuotaReservationsTotal.WithLabelValues("anthropic", "exceeded"))
	RecordQuotaReservation("anthropic", "exceeded")
	after := testutil.ToFloat64(QuotaReservationsTotal.WithLabelValues("anthropic", "exceeded"))
	assert.Equal(t, 1.0, after-before)
}

func TestRecordQuotaRefund(t *testing.T) {
	before := testutil.ToFloat64(QuotaRefundsTotal.WithLabelValues("openai"))
	RecordQuotaRefund("openai", 2)
	after := testutil.ToFloat64(QuotaRefundsTotal.WithLabelValues("openai"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(GenerationsTotal.WithLabelValues("anthropic", "success"))
	RecordGeneration("anthropic", "success", 3*time.Second)
	after := testutil.ToFloat64(GenerationsTotal.WithLabelValues("anthropic", "success"))
	assert.Equal(t, 1.0, after-before)
}

func TestRecordContentFetchResults(t *testing.T) {
	skippedBefore := testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("skipped"))
	RecordContentFetchSkipped()
	assert.Equal(t, 1.0, testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("skipped"))-skippedBefore)

	failBefore := testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("failure"))
	RecordContentFetchFailed(time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("failure"))-failBefore)

	okBefore := testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("success"))
	RecordContentFetchSuccess(time.Second, 4096)
	assert.Equal(t, 1.0, testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues("success"))-okBefore)
}

package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatched_total",
		Help: "Total number of notifications dispatched",
	}, []string{"channel"})

	sentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sent_total",
		Help: "Total number of notifications sent",
	}, []string{"channel", "status"})

	sendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_duration_seconds",
		Help:    "Notification send duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
	}, []string{"channel"})

	breakerOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_circuit_breaker_open_total",
		Help: "Total number of circuit breaker open events",
	}, []string{"channel"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dropped_total",
		Help: "Total number of dropped notifications",
	}, []string{"channel", "reason"})

	activeGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_active_goroutines",
		Help: "Number of active notification goroutines",
	})

	enabledChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_channels_enabled",
		Help: "Number of enabled notification channels",
	})
)

// RecordDispatch counts a dispatch attempt for a channel.
func RecordDispatch(channel string) {
	dispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess counts a delivered notification and its duration.
func RecordSuccess(channel string, duration time.Duration) {
	sentTotal.WithLabelValues(channel, "success").Inc()
	sendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFailure counts a failed delivery and its duration.
func RecordFailure(channel string, duration time.Duration) {
	sentTotal.WithLabelValues(channel, "failure").Inc()
	sendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDropped counts an event dropped before dispatch. Reason is
// one of pool_full, circuit_open or disabled.
func RecordDropped(channel, reason string) {
	droppedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordCircuitBreakerOpen counts a breaker transitioning to open.
func RecordCircuitBreakerOpen(channel string) {
	breakerOpenTotal.WithLabelValues(channel).Inc()
}

// IncrementActiveGoroutines tracks one more in-flight dispatch.
func IncrementActiveGoroutines() {
	activeGoroutines.Inc()
}

// DecrementActiveGoroutines tracks one finished dispatch.
func DecrementActiveGoroutines() {
	activeGoroutines.Dec()
}

// SetChannelsEnabled records how many channels are configured on.
func SetChannelsEnabled(count float64) {
	enabledChannels.Set(count)
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Monitor metrics
	TransactionsProcessed prometheus.Counter
	SwapsClassified       *prometheus.CounterVec
	FetchFailures         *prometheus.CounterVec
	DecodeFailures        prometheus.Counter
	ActiveSessions        prometheus.Gauge
	SeenSetSize           prometheus.Gauge
	TrackedPools          prometheus.Gauge
	SubscriptionRestarts  prometheus.Counter

	// Verdict metrics
	VerdictsEmitted *prometheus.CounterVec
	PriceImpact     prometheus.Histogram

	// Alert delivery metrics
	AlertsDelivered *prometheus.CounterVec
	AlertsFailed    *prometheus.CounterVec
	AlertsDropped   prometheus.Counter

	// Latency metrics
	RPCCallLatency    *prometheus.HistogramVec
	ProcessingLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sandwich_guard"
	}

	return &Metrics{
		// Monitor metrics
		TransactionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "transactions_processed_total",
			Help:      "Total number of transactions fetched and classified",
		}),
		SwapsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "swaps_classified_total",
			Help:      "Total number of transactions classified as DEX swaps",
		}, []string{"program"}),
		FetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "fetch_failures_total",
			Help:      "Total number of failed chain fetches",
		}, []string{"loop"}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "impact_decode_failures_total",
			Help:      "Total number of swaps whose price impact could not be decoded",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active_sessions",
			Help:      "Number of active monitoring sessions",
		}),
		SeenSetSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "seen_signatures",
			Help:      "Number of signatures held in the seen-set",
		}),
		TrackedPools: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tracked_pools",
			Help:      "Number of pools with swaps inside the activity window",
		}),
		SubscriptionRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "subscription_restarts_total",
			Help:      "Total number of wallet subscription restarts",
		}),

		// Verdict metrics
		VerdictsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "verdicts_total",
			Help:      "Total number of verdicts by kind and level",
		}, []string{"kind", "level"}),
		PriceImpact: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "price_impact_percent",
			Help:      "Distribution of estimated price impact",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 25, 50},
		}),

		// Alert delivery metrics
		AlertsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "delivered_total",
			Help:      "Total number of alerts delivered per sink",
		}, []string{"sink"}),
		AlertsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "failed_total",
			Help:      "Total number of alert deliveries that failed per sink",
		}, []string{"sink"}),
		AlertsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dropped_total",
			Help:      "Total number of alerts dropped because the queue was full",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "signature_processing_seconds",
			Help:      "Time from fetching a transaction to handing its verdict to the sink",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransactionProcessed increments the processed transactions counter.
func RecordTransactionProcessed() {
	DefaultMetrics.TransactionsProcessed.Inc()
}

// RecordSwapClassified counts a swap by DEX program name.
func RecordSwapClassified(program string) {
	DefaultMetrics.SwapsClassified.WithLabelValues(program).Inc()
}

// RecordFetchFailure records a failed fetch in the given loop ("poll", "wallet").
func RecordFetchFailure(loop string) {
	DefaultMetrics.FetchFailures.WithLabelValues(loop).Inc()
}

// RecordDecodeFailure increments the impact decode failure counter.
func RecordDecodeFailure() {
	DefaultMetrics.DecodeFailures.Inc()
}

// SessionStarted marks a monitoring session active.
func SessionStarted() {
	DefaultMetrics.ActiveSessions.Inc()
}

// SessionStopped marks a monitoring session finished.
func SessionStopped() {
	DefaultMetrics.ActiveSessions.Dec()
}

// UpdateHousekeeping updates the seen-set and ledger size gauges.
func UpdateHousekeeping(seen, pools int) {
	DefaultMetrics.SeenSetSize.Set(float64(seen))
	DefaultMetrics.TrackedPools.Set(float64(pools))
}

// RecordSubscriptionRestart increments the wallet subscription restart counter.
func RecordSubscriptionRestart() {
	DefaultMetrics.SubscriptionRestarts.Inc()
}

// RecordVerdict counts an emitted verdict.
func RecordVerdict(kind, level string) {
	DefaultMetrics.VerdictsEmitted.WithLabelValues(kind, level).Inc()
}

// RecordPriceImpact observes an estimated price impact in percent.
func RecordPriceImpact(percent float64) {
	DefaultMetrics.PriceImpact.Observe(percent)
}

// RecordAlertDelivery records the outcome of one sink delivery.
func RecordAlertDelivery(sink string, err error) {
	if err != nil {
		DefaultMetrics.AlertsFailed.WithLabelValues(sink).Inc()
		return
	}
	DefaultMetrics.AlertsDelivered.WithLabelValues(sink).Inc()
}

// RecordAlertDropped increments the dropped alerts counter.
func RecordAlertDropped() {
	DefaultMetrics.AlertsDropped.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordProcessingLatency records the per-signature pipeline latency.
func RecordProcessingLatency(seconds float64) {
	DefaultMetrics.ProcessingLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

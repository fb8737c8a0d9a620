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
	// Scan metrics
	ScansTotal        prometheus.Counter
	ScanDuration      prometheus.Histogram
	OpportunitiesLast prometheus.Gauge
	SymbolsSkipped    *prometheus.CounterVec

	// Whale flow metrics
	FlowRecordsProcessed prometheus.Counter
	FlowsDetected        prometheus.Counter
	FlowRecordErrors     *prometheus.CounterVec
	FeedMessageLatency   prometheus.Histogram

	// Monitor metrics
	MonitorPassesTotal prometheus.Counter
	AlertsGenerated    *prometheus.CounterVec
	OpenTrades         prometheus.Gauge
	CapturableProfit   prometheus.Gauge

	// Tracker metrics
	DecisionsLogged  *prometheus.CounterVec
	OutcomesRecorded *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulScan    prometheus.Gauge
	LastSuccessfulMonitor prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "covered_call_lab"
	}

	return &Metrics{
		// Scan metrics
		ScansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Total number of opportunity scans executed",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Opportunity scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OpportunitiesLast: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "opportunities_last_scan",
			Help:      "Number of opportunities surfaced by the last scan",
		}),
		SymbolsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "symbols_skipped_total",
			Help:      "Total number of symbols skipped during scans by reason",
		}, []string{"reason"}),

		// Whale flow metrics
		FlowRecordsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whale",
			Name:      "records_processed_total",
			Help:      "Total number of raw activity records processed",
		}),
		FlowsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whale",
			Name:      "flows_detected_total",
			Help:      "Total number of whale flows passing the detection gate",
		}),
		FlowRecordErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whale",
			Name:      "record_errors_total",
			Help:      "Total number of malformed activity records by reason",
		}, []string{"reason"}),
		FeedMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "message_latency_seconds",
			Help:      "Activity feed message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Monitor metrics
		MonitorPassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "passes_total",
			Help:      "Total number of position monitor passes",
		}),
		AlertsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "alerts_generated_total",
			Help:      "Total number of alerts generated by action",
		}, []string{"action"}),
		OpenTrades: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "open_trades",
			Help:      "Number of open covered-call trades",
		}),
		CapturableProfit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "capturable_profit_dollars",
			Help:      "Dollar profit capturable by closing flagged trades now",
		}),

		// Tracker metrics
		DecisionsLogged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "decisions_logged_total",
			Help:      "Total number of decisions logged by action",
		}, []string{"action"}),
		OutcomesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "outcomes_recorded_total",
			Help:      "Total number of outcomes recorded by type",
		}, []string{"outcome"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
		LastSuccessfulMonitor: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_monitor_timestamp",
			Help:      "Unix timestamp of last successful monitor pass",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScan records one completed opportunity scan.
func RecordScan(durationSeconds float64, opportunities int) {
	DefaultMetrics.ScansTotal.Inc()
	DefaultMetrics.ScanDuration.Observe(durationSeconds)
	DefaultMetrics.OpportunitiesLast.Set(float64(opportunities))
}

// RecordSymbolSkipped records a symbol skipped during a scan.
func RecordSymbolSkipped(reason string) {
	DefaultMetrics.SymbolsSkipped.WithLabelValues(reason).Inc()
}

// RecordFlowBatch records whale detection results for a record batch.
func RecordFlowBatch(processed, detected int) {
	DefaultMetrics.FlowRecordsProcessed.Add(float64(processed))
	DefaultMetrics.FlowsDetected.Add(float64(detected))
}

// RecordFlowError records one malformed activity record.
func RecordFlowError(reason string) {
	DefaultMetrics.FlowRecordErrors.WithLabelValues(reason).Inc()
}

// RecordMonitorPass records a monitor pass over open trades.
func RecordMonitorPass(openTrades int, capturableProfit float64) {
	DefaultMetrics.MonitorPassesTotal.Inc()
	DefaultMetrics.OpenTrades.Set(float64(openTrades))
	DefaultMetrics.CapturableProfit.Set(capturableProfit)
}

// RecordAlert records one generated alert.
func RecordAlert(action string) {
	DefaultMetrics.AlertsGenerated.WithLabelValues(action).Inc()
}

// RecordDecision records a logged decision.
func RecordDecision(action string) {
	DefaultMetrics.DecisionsLogged.WithLabelValues(action).Inc()
}

// RecordOutcome records a recorded outcome.
func RecordOutcome(outcome string) {
	DefaultMetrics.OutcomesRecorded.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

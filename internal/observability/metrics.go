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
	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram
	TradesSimulated   prometheus.Counter
	SignalErrors      prometheus.Counter

	// Robustness metrics
	RobustnessSectionErrors *prometheus.CounterVec
	MonteCarloRunsCompleted prometheus.Counter

	// Ingestion metrics
	BarsIngested    *prometheus.CounterVec
	IngestionErrors *prometheus.CounterVec

	// Latency metrics
	SignalSourceLatency prometheus.Histogram
	WSMessageLatency    prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun       prometheus.Gauge
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trading_signal_lab"
	}

	return &Metrics{
		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated across all runs",
		}),
		SignalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signal_errors_total",
			Help:      "Total number of signal source failures, one per degraded bar",
		}),

		// Robustness metrics
		RobustnessSectionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "robustness",
			Name:      "section_errors_total",
			Help:      "Total number of degraded robustness sections by analysis",
		}, []string{"analysis"}),
		MonteCarloRunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "robustness",
			Name:      "monte_carlo_runs_completed_total",
			Help:      "Total number of completed Monte Carlo permutation runs",
		}),

		// Ingestion metrics
		BarsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of bars ingested by symbol",
		}, []string{"symbol"}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by source",
		}, []string{"source"}),

		// Latency metrics
		SignalSourceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signal_source_latency_seconds",
			Help:      "Signal source call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

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

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBacktestRun records the outcome and duration of one run.
func RecordBacktestRun(status string, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
}

// RecordTradesSimulated adds to the simulated trade counter.
func RecordTradesSimulated(n int) {
	DefaultMetrics.TradesSimulated.Add(float64(n))
}

// RecordSignalError increments the signal error counter.
func RecordSignalError() {
	DefaultMetrics.SignalErrors.Inc()
}

// RecordMonteCarloRuns adds to the completed permutation-run counter.
func RecordMonteCarloRuns(n int) {
	DefaultMetrics.MonteCarloRunsCompleted.Add(float64(n))
}

// RecordRobustnessSectionError records a degraded robustness section.
func RecordRobustnessSectionError(analysis string) {
	DefaultMetrics.RobustnessSectionErrors.WithLabelValues(analysis).Inc()
}

// RecordBarsIngested adds to the per-symbol ingestion counter.
func RecordBarsIngested(symbol string, n int) {
	DefaultMetrics.BarsIngested.WithLabelValues(symbol).Add(float64(n))
}

// RecordIngestionError records an ingestion error by source.
func RecordIngestionError(source string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(source).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSignalLatency observes one signal source call.
func RecordSignalLatency(seconds float64) {
	DefaultMetrics.SignalSourceLatency.Observe(seconds)
}

// RecordWSMessageLatency observes processing time of one bridge message.
func RecordWSMessageLatency(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// MarkRunSuccess updates the last-successful-run health gauge.
func MarkRunSuccess() {
	DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
}

// MarkIngestionSuccess updates the last-successful-ingestion health gauge.
func MarkIngestionSuccess() {
	DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
}

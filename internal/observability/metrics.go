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
	// RPC metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	RPCFailovers    prometheus.Counter
	WSNotifications prometheus.Counter

	// Analysis metrics
	AnalysesTotal       *prometheus.CounterVec
	AnalysisDuration    prometheus.Histogram
	SwapsExtracted      prometheus.Counter
	TransactionsSkipped prometheus.Counter
	SignaturesProcessed prometheus.Counter

	// Monitor metrics
	ActiveMonitors prometheus.Gauge
	MonitorEvents  *prometheus.CounterVec
	MonitorPolls   prometheus.Counter
	EventsDropped  prometheus.Counter
	SinkErrors     *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "volume_analyzer"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed RPC attempts by method and reason",
		}, []string{"method", "reason"}),
		RPCFailovers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_failovers_total",
			Help:      "Total number of times a call moved to another endpoint",
		}),
		WSNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of logsSubscribe notifications received",
		}),

		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of historical analyses by label",
		}, []string{"label"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Historical analysis duration in seconds",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120},
		}),
		SwapsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "swaps_extracted_total",
			Help:      "Total number of swap events extracted from transactions",
		}),
		TransactionsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "transactions_skipped_total",
			Help:      "Total number of transactions skipped after a fetch failure",
		}),
		SignaturesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "signatures_processed_total",
			Help:      "Total number of signatures fetched and processed",
		}),

		ActiveMonitors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active",
			Help:      "Number of running live monitors",
		}),
		MonitorEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "events_total",
			Help:      "Total number of monitor events by kind",
		}, []string{"kind"}),
		MonitorPolls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "polls_total",
			Help:      "Total number of monitor poll iterations",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped by full channel observers",
		}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventsink",
			Name:      "errors_total",
			Help:      "Total number of event sink publish failures",
		}, []string{"sink"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulAnalysis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC attempt.
func RecordRPCError(method, reason string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method, reason).Inc()
}

// RecordFailover increments the endpoint failover counter.
func RecordFailover() {
	DefaultMetrics.RPCFailovers.Inc()
}

// RecordWSNotification increments the websocket notification counter.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordAnalysis records a completed analysis.
func RecordAnalysis(label string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(label).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulAnalysis.Set(float64(finishedUnix))
}

// RecordSwapsExtracted adds n to the extracted swaps counter.
func RecordSwapsExtracted(n int) {
	DefaultMetrics.SwapsExtracted.Add(float64(n))
}

// RecordTransactionSkipped increments the skipped transactions counter.
func RecordTransactionSkipped() {
	DefaultMetrics.TransactionsSkipped.Inc()
}

// RecordSignatureProcessed increments the processed signatures counter.
func RecordSignatureProcessed() {
	DefaultMetrics.SignaturesProcessed.Inc()
}

// MonitorStarted increments the active monitors gauge.
func MonitorStarted() {
	DefaultMetrics.ActiveMonitors.Inc()
}

// MonitorStopped decrements the active monitors gauge.
func MonitorStopped() {
	DefaultMetrics.ActiveMonitors.Dec()
}

// RecordMonitorEvent records an emitted monitor event.
func RecordMonitorEvent(kind string) {
	DefaultMetrics.MonitorEvents.WithLabelValues(kind).Inc()
}

// RecordMonitorPoll increments the poll counter.
func RecordMonitorPoll() {
	DefaultMetrics.MonitorPolls.Inc()
}

// RecordEventDropped increments the dropped events counter.
func RecordEventDropped() {
	DefaultMetrics.EventsDropped.Inc()
}

// RecordSinkError records an event sink failure.
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

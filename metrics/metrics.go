// Package metrics exposes Prometheus instrumentation for the sync
// orchestrator and ERP projector, grounded on the same promauto idiom the
// teacher uses for trade execution metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/konozy/ordersync/logging"
)

var (
	syncLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordersync_sync_latency_milliseconds",
			Help:    "Per-order sync latency in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"marketplace", "dry_run"},
	)

	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_syncs_total",
			Help: "Total order syncs by outcome",
		},
		[]string{"marketplace", "status"},
	)

	syncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_sync_errors_total",
			Help: "Total sync errors by error kind",
		},
		[]string{"error_kind"},
	)

	eventAppendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordersync_event_append_duration_milliseconds",
			Help:    "Event log append latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"aggregate_type"},
	)

	concurrencyConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_concurrency_conflicts_total",
			Help: "Total ConcurrencyConflict errors from the event log",
		},
		[]string{"aggregate_type"},
	)

	snapshotsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_snapshots_written_total",
			Help: "Total snapshots written",
		},
		[]string{"aggregate_type"},
	)

	streamPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_stream_publish_total",
			Help: "Total ParityVerified messages published",
		},
		[]string{"topic"},
	)

	invoicesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_invoices_posted_total",
			Help: "Total invoices posted by the ERP projector",
		},
		[]string{"status"},
	)

	invoicePostDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordersync_invoice_post_duration_milliseconds",
			Help:    "ERP invoice post latency in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	balanceViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_balance_violations_total",
			Help: "Total Balance invariant violations at decomposition time",
		},
		[]string{"marketplace"},
	)

	logErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_log_errors_total",
			Help: "Total ERROR/FATAL log entries, by component",
		},
		[]string{"component"},
	)
)

// logErrorHook increments logErrorsTotal for every ERROR/FATAL entry. It
// implements logging.Hook so an error surfaced anywhere through the
// structured logger is also visible as a metric, without every call site
// instrumenting itself separately.
type logErrorHook struct{}

func (logErrorHook) Levels() []logging.LogLevel {
	return []logging.LogLevel{logging.ERROR, logging.FATAL}
}

func (logErrorHook) Fire(entry *logging.LogEntry) error {
	component := entry.Component
	if component == "" {
		component = "unknown"
	}
	logErrorsTotal.WithLabelValues(component).Inc()
	return nil
}

// InstallLogErrorHook registers the ERROR/FATAL-counting hook on the
// package-level default logger. Call once at process start.
func InstallLogErrorHook() {
	logging.AddHook(logErrorHook{})
}

// Handler returns the HTTP handler for the /metrics scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// RecordSync records one completed order sync.
func RecordSync(marketplace string, dryRun, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	syncTotal.WithLabelValues(marketplace, status).Inc()
	syncLatency.WithLabelValues(marketplace, boolLabel(dryRun)).Observe(float64(latency.Milliseconds()))
}

// RecordSyncError records a sync failure by error kind (the taxonomy
// from the error handling design: MalformedPayload, BalanceViolation, etc.)
func RecordSyncError(errorKind string) {
	syncErrors.WithLabelValues(errorKind).Inc()
}

// RecordEventAppend records one event log append's latency.
func RecordEventAppend(aggregateType string, latency time.Duration) {
	eventAppendDuration.WithLabelValues(aggregateType).Observe(float64(latency.Milliseconds()))
}

// RecordConcurrencyConflict records one ConcurrencyConflict from the event log.
func RecordConcurrencyConflict(aggregateType string) {
	concurrencyConflicts.WithLabelValues(aggregateType).Inc()
}

// RecordSnapshotWritten records one snapshot write.
func RecordSnapshotWritten(aggregateType string) {
	snapshotsWritten.WithLabelValues(aggregateType).Inc()
}

// RecordStreamPublish records one hand-off stream publish.
func RecordStreamPublish(topic string) {
	streamPublishTotal.WithLabelValues(topic).Inc()
}

// RecordInvoicePosted records one ERP projector outcome.
func RecordInvoicePosted(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	invoicesPosted.WithLabelValues(status).Inc()
	invoicePostDuration.WithLabelValues(status).Observe(float64(latency.Milliseconds()))
}

// RecordBalanceViolation records one Balance invariant failure.
func RecordBalanceViolation(marketplace string) {
	balanceViolations.WithLabelValues(marketplace).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

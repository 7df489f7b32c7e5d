// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and structured logging for the sync engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector holds all Prometheus metrics for the sync engine.
type MetricsCollector struct {
	// Sync orchestrator metrics, one series per action bucket.
	SyncActionsTotal *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	SyncErrorsTotal  *prometheus.CounterVec

	// Walker/builder metrics.
	FilesWalked        prometheus.Counter
	FilesSkippedBinary prometheus.Counter

	// System metrics.
	SystemStartTime prometheus.Gauge
	SystemHealth    *prometheus.GaugeVec
}

// NewMetricsCollector creates and registers all Prometheus metrics.
func NewMetricsCollector(namespace string) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates metrics with a specific registry (for testing).
func NewMetricsCollectorWithRegistry(namespace string, reg prometheus.Registerer) *MetricsCollector {
	if namespace == "" {
		namespace = "continueindex"
	}

	autoCounterVec := func(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
		return promauto.With(reg).NewCounterVec(opts, labelNames)
	}

	autoHistogramVec := func(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
		return promauto.With(reg).NewHistogramVec(opts, labelNames)
	}

	autoGaugeVec := func(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(opts, labelNames)
	}

	autoCounter := func(opts prometheus.CounterOpts) prometheus.Counter {
		return promauto.With(reg).NewCounter(opts)
	}

	autoGauge := func(opts prometheus.GaugeOpts) prometheus.Gauge {
		return promauto.With(reg).NewGauge(opts)
	}

	return &MetricsCollector{
		SyncActionsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_actions_total",
				Help:      "Total number of blobs classified into each sync action bucket, by provider",
			},
			[]string{"provider", "bucket"},
		),
		SyncDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Sync call duration in seconds, by provider",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		SyncErrorsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_errors_total",
				Help:      "Total number of sync calls that failed, by provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		FilesWalked: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_walked_total",
				Help:      "Total number of entries (files and directories, root included) the walker yielded",
			},
		),
		FilesSkippedBinary: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_skipped_binary_total",
				Help:      "Total number of files omitted from the tree for being unreadable or failing the UTF-8 check",
			},
		),
		SystemStartTime: autoGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_start_time_seconds",
				Help:      "Unix timestamp when the system started",
			},
		),
		SystemHealth: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_health_status",
				Help:      "System health status (1 = healthy, 0 = unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordSyncAction increments the counter for one action bucket.
func (m *MetricsCollector) RecordSyncAction(provider, bucket string, count int) {
	m.SyncActionsTotal.WithLabelValues(provider, bucket).Add(float64(count))
}

// RecordSyncDuration records how long a sync call took.
func (m *MetricsCollector) RecordSyncDuration(provider string, duration time.Duration) {
	m.SyncDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSyncError records a sync call that failed.
func (m *MetricsCollector) RecordSyncError(provider, errorType string) {
	m.SyncErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordFilesWalked increments the walked-files counter.
func (m *MetricsCollector) RecordFilesWalked(count int) {
	m.FilesWalked.Add(float64(count))
}

// RecordFilesSkippedBinary increments the skipped-binary-files counter.
func (m *MetricsCollector) RecordFilesSkippedBinary(count int) {
	m.FilesSkippedBinary.Add(float64(count))
}

// SetSystemStartTime sets the system start time.
func (m *MetricsCollector) SetSystemStartTime(startTime time.Time) {
	m.SystemStartTime.Set(float64(startTime.Unix()))
}

// SetComponentHealth sets the health status of a component.
func (m *MetricsCollector) SetComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.SystemHealth.WithLabelValues(component).Set(value)
}

// Package metrics records Prometheus metrics for backup operations. svault is
// a CLI, so metrics are dumped to a node_exporter textfile after each command
// instead of being served.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Asset outcome labels.
const (
	AssetCopied  = "copied"
	AssetReused  = "reused"
	AssetFailed  = "failed"
	AssetMissing = "missing"
)

// Metrics holds the collectors for one process. All methods are safe on a
// nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	records           *prometheus.CounterVec
	assets            *prometheus.CounterVec
	linksDropped      prometheus.Counter
	bundleBytes       prometheus.Histogram
	sessionsActive    prometheus.Gauge
	lastBackup        prometheus.Gauge
}

// New registers the svault collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svault_operations_total",
				Help: "Backup operations by kind and outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svault_operation_duration_seconds",
				Help:    "Time taken by backup operations",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svault_import_records_total",
				Help: "Records processed by import, by entity and action",
			},
			[]string{"entity", "action"},
		),
		assets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svault_assets_total",
				Help: "Asset files handled by export and import, by outcome",
			},
			[]string{"outcome"},
		),
		linksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "svault_import_links_dropped_total",
			Help: "Project links dropped because an endpoint did not resolve",
		}),
		bundleBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "svault_bundle_bytes",
			Help:    "Size of written bundles",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "svault_scan_sessions_active",
			Help: "Scan sessions waiting for import or discard",
		}),
		lastBackup: factory.NewGauge(prometheus.GaugeOpts{
			Name: "svault_last_auto_backup_timestamp_seconds",
			Help: "Unix time of the last successful automatic backup",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation counts one operation and records its duration.
func (m *Metrics) ObserveOperation(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// AddRecords counts import results for an entity ("inventory", "project").
func (m *Metrics) AddRecords(entity, action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(entity, action).Add(float64(n))
}

// AddAssets counts asset files by outcome.
func (m *Metrics) AddAssets(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assets.WithLabelValues(outcome).Add(float64(n))
}

// AddLinksDropped counts dangling links.
func (m *Metrics) AddLinksDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linksDropped.Add(float64(n))
}

// ObserveBundleSize records the size of a written bundle.
func (m *Metrics) ObserveBundleSize(bytes int64) {
	if m == nil {
		return
	}
	m.bundleBytes.Observe(float64(bytes))
}

// SetSessionsActive reports the number of live scan sessions.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// MarkAutoBackup records a successful automatic backup.
func (m *Metrics) MarkAutoBackup(at time.Time) {
	if m == nil {
		return
	}
	m.lastBackup.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

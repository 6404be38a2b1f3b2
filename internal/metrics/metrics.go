// Package metrics defines the Prometheus collectors exported by MonthWise.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "monthwise"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	MigrationsApplied prometheus.Counter
	SchemaVersion     prometheus.Gauge
	Opens             prometheus.Counter
	BackupRows        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Repository operations by entity, operation and result.",
		}, []string{"entity", "op", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Repository operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"entity", "op"}),
		MigrationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "migration_steps_applied_total",
			Help:      "Migration steps that changed the schema.",
		}),
		SchemaVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "schema_version",
			Help:      "Schema version persisted after the last open.",
		}),
		Opens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "physical_opens_total",
			Help:      "Physical database opens performed by the engine.",
		}),
		BackupRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "rows_total",
			Help:      "Rows written to or restored from backup documents.",
		}, []string{"direction", "entity"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Operations,
			m.OperationDuration,
			m.MigrationsApplied,
			m.SchemaVersion,
			m.Opens,
			m.BackupRows,
		)
	}
	return m
}

// ObserveOperation records one repository call.
func (m *Metrics) ObserveOperation(entity, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Operations.WithLabelValues(entity, op, result).Inc()
	m.OperationDuration.WithLabelValues(entity, op).Observe(time.Since(started).Seconds())
}

// AddBackupRows records n rows for a backup direction ("export" or "import").
func (m *Metrics) AddBackupRows(direction, entity string, n int) {
	if m == nil {
		return
	}
	m.BackupRows.WithLabelValues(direction, entity).Add(float64(n))
}

// MigrationApplied records one schema-changing migration step.
func (m *Metrics) MigrationApplied() {
	if m == nil {
		return
	}
	m.MigrationsApplied.Inc()
}

// SetSchemaVersion records the persisted schema version.
func (m *Metrics) SetSchemaVersion(v int) {
	if m == nil {
		return
	}
	m.SchemaVersion.Set(float64(v))
}

// Opened records one physical database open.
func (m *Metrics) Opened() {
	if m == nil {
		return
	}
	m.Opens.Inc()
}

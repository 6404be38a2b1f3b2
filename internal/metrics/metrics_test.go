package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperationLabelsResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("expense", "create", time.Now(), nil)
	m.ObserveOperation("expense", "create", time.Now(), errors.New("boom"))
	m.ObserveOperation("expense", "create", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("expense", "create", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("expense", "create", ResultError)))

	n, err := testutil.GatherAndCount(reg, "monthwise_storage_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("expense", "create", time.Now(), nil)
	m.AddBackupRows("export", "expenses", 3)
	m.MigrationApplied()
	m.SetSchemaVersion(5)
	m.Opened()
}

func TestBackupRowsAndGauges(t *testing.T) {
	m := New(nil)

	m.AddBackupRows("import", "months", 12)
	m.SetSchemaVersion(5)
	m.Opened()
	m.MigrationApplied()

	assert.Equal(t, 12.0, testutil.ToFloat64(m.BackupRows.WithLabelValues("import", "months")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SchemaVersion))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Opens))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MigrationsApplied))
}

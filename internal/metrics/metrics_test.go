package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dump(t *testing.T, m *Metrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svault.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("export", nil, 20*time.Millisecond)
	m.ObserveOperation("export", errors.New("disk full"), time.Millisecond)
	m.ObserveOperation("import", nil, time.Second)

	out := dump(t, m)
	assert.Contains(t, out, `svault_operations_total{operation="export",status="ok"} 1`)
	assert.Contains(t, out, `svault_operations_total{operation="export",status="error"} 1`)
	assert.Contains(t, out, `svault_operations_total{operation="import",status="ok"} 1`)
	assert.Contains(t, out, `svault_operation_duration_seconds_count{operation="export"} 2`)
}

func TestCounters(t *testing.T) {
	m := New()
	m.AddRecords("inventory", "created", 3)
	m.AddRecords("inventory", "created", 0)
	m.AddAssets(AssetReused, 2)
	m.AddLinksDropped(1)
	m.SetSessionsActive(4)
	m.ObserveBundleSize(2048)

	out := dump(t, m)
	assert.Contains(t, out, `svault_import_records_total{action="created",entity="inventory"} 3`)
	assert.Contains(t, out, `svault_assets_total{outcome="reused"} 2`)
	assert.Contains(t, out, "svault_import_links_dropped_total 1")
	assert.Contains(t, out, "svault_scan_sessions_active 4")
	assert.Contains(t, out, "svault_bundle_bytes_count 1")
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("scan", nil, time.Second)
	m.AddAssets(AssetCopied, 1)
	m.MarkAutoBackup(time.Now())
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.AddAssets(AssetCopied, 5)
	m.MarkAutoBackup(time.Unix(1700000000, 0))

	out := dump(t, m)
	assert.Contains(t, out, `svault_assets_total{outcome="copied"} 5`)
	assert.Contains(t, out, "svault_last_auto_backup_timestamp_seconds 1.7e+09")
	assert.NotNil(t, m.Registry())
}

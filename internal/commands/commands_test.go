package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateReportsSchemaVersion(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mw.db")
	metricsOut := filepath.Join(t.TempDir(), "monthwise.prom")

	out, err := run(t, "--db", db, "--metrics-out", metricsOut, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 5")

	prom, err := os.ReadFile(metricsOut)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "monthwise_storage_schema_version 5")
	assert.Contains(t, string(prom), "monthwise_storage_physical_opens_total 1")
}

func TestProfileSummaryAndBackup(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "mw.db")

	id, err := run(t, "--db", db, "profile", "create", "Personal", "--current")
	require.NoError(t, err)
	id = strings.TrimSpace(id)
	require.NotEmpty(t, id)

	out, err := run(t, "--db", db, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Personal")
	assert.Contains(t, out, id)

	out, err = run(t, "--db", db, "summary", "--year", "2026", "--month", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "February 2026")
	assert.Contains(t, out, "Allowance: $0.00")

	out, err = run(t, "--db", db, "summary", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, "Dec")
	assert.Contains(t, out, "Excess through month 12")

	backup := filepath.Join(dir, "backup.json")
	_, err = run(t, "--db", db, "export", "--out", backup)
	require.NoError(t, err)

	restored := filepath.Join(dir, "restored.db")
	out, err = run(t, "--db", restored, "import", "--in", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 profiles, 1 months")

	out, err = run(t, "--db", restored, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
}

func TestSecuredProfileNeedsUnlock(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mw.db")
	id, err := run(t, "--db", db, "profile", "create", "Private")
	require.NoError(t, err)
	id = strings.TrimSpace(id)

	_, err = run(t, "--db", db, "profile", "secure", id, "--password", "12")
	require.Error(t, err)
	_, err = run(t, "--db", db, "profile", "secure", id, "--password", "1234")
	require.NoError(t, err)

	t.Setenv(envUnlockToken, "")
	_, err = run(t, "--db", db, "summary", "--profile", id, "--month", "1")
	require.ErrorContains(t, err, "profile is locked")

	out, err := run(t, "--db", db, "profile", "unlock", id, "--password", "1234")
	require.NoError(t, err)
	token := strings.TrimPrefix(strings.TrimSpace(out), "export "+envUnlockToken+"=")
	require.NotEmpty(t, token)

	t.Setenv(envUnlockToken, token)
	_, err = run(t, "--db", db, "summary", "--profile", id, "--month", "1")
	require.NoError(t, err)
}

func TestImportRequiresFile(t *testing.T) {
	_, err := run(t, "--db", filepath.Join(t.TempDir(), "mw.db"), "import")
	require.Error(t, err)
}

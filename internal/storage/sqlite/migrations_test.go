package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// legacySchema is the shape of a database written before any migration
// existed, with no schema version row.
const legacySchema = `
CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE profiles (id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);
CREATE TABLE categories (
    id TEXT PRIMARY KEY, name TEXT NOT NULL COLLATE NOCASE, icon TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT '', sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL, updated_at TEXT NOT NULL, deleted_at TEXT
);
CREATE TABLE allowance_sources (
    id TEXT PRIMARY KEY, profile_id TEXT NOT NULL, year INTEGER NOT NULL, name TEXT NOT NULL,
    amount_cents INTEGER NOT NULL, created_at TEXT NOT NULL, updated_at TEXT NOT NULL, deleted_at TEXT,
    FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE TABLE months (
    id TEXT PRIMARY KEY, profile_id TEXT NOT NULL, year INTEGER NOT NULL, month INTEGER NOT NULL,
    allowance_override_cents INTEGER, created_at TEXT NOT NULL, updated_at TEXT NOT NULL,
    UNIQUE (profile_id, year, month),
    FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE TABLE expenses (
    id TEXT PRIMARY KEY, month_id TEXT NOT NULL, category_id TEXT NOT NULL,
    amount_cents INTEGER NOT NULL, note TEXT, expense_date TEXT NOT NULL,
    created_at TEXT NOT NULL, updated_at TEXT NOT NULL, deleted_at TEXT,
    FOREIGN KEY (month_id) REFERENCES months(id) ON DELETE CASCADE,
    FOREIGN KEY (category_id) REFERENCES categories(id)
);
INSERT INTO profiles VALUES ('p1', 'Legacy', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');
INSERT INTO categories (id, name, created_at, updated_at) VALUES
    ('c-food', 'Food', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z'),
    ('c-bills', 'Bills', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z'),
    ('c-utilities', 'utilities', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');
INSERT INTO allowance_sources VALUES ('a1', 'p1', 2024, 'Salary', 50000, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z', NULL);
INSERT INTO months VALUES ('m1', 'p1', 2024, 1, NULL, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');
INSERT INTO expenses VALUES ('e1', 'm1', 'c-food', 1250, 'tacos', '2024-01-05', '2024-01-05T00:00:00Z', '2024-01-05T00:00:00Z', NULL);
`

func writeLegacyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(legacySchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}

func schemaSnapshot(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT type || ':' || name || ':' || COALESCE(sql, '') FROM sqlite_master ORDER BY type, name`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestLegacyDatabaseIsUpgraded(t *testing.T) {
	path := writeLegacyDB(t)
	ctx := context.Background()

	s, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Equal(t, CurrentSchemaVersion(), s.SchemaVersion())

	e, err := s.Expenses().FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, e.IsPaid, "legacy expenses default to paid")
	assert.False(t, e.IsVerified)
	require.NotNil(t, e.Note)
	assert.Equal(t, "tacos", *e.Note)

	a, err := s.AllowanceSources().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, a.IsActive)

	p, err := s.Profiles().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, p.IsSecured)

	t.Run("legacy category renamed in place", func(t *testing.T) {
		c, err := s.Categories().FindByID(ctx, "c-food")
		require.NoError(t, err)
		assert.Equal(t, "Food & Dining", c.Name)
		assert.Equal(t, 1, c.SortOrder)
	})

	t.Run("rename skipped when target name is taken", func(t *testing.T) {
		bills, err := s.Categories().FindByID(ctx, "c-bills")
		require.NoError(t, err)
		assert.Equal(t, "Bills", bills.Name)

		utilities := categoryByName(t, s, "Utilities")
		assert.Equal(t, "c-utilities", utilities.ID)
		assert.Equal(t, "flash", utilities.Icon)
	})

	t.Run("missing defaults inserted", func(t *testing.T) {
		for _, d := range DefaultCategories {
			categoryByName(t, s, d.Name)
		}
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := writeLegacyDB(t)
	ctx := context.Background()

	s, err := New(ctx, path)
	require.NoError(t, err)
	before := schemaSnapshot(t, s.DB())
	ds, err := s.Dump(ctx)
	require.NoError(t, err)

	for range 2 {
		version, err := RunMigrations(ctx, s.DB(), s.SchemaVersion(), CurrentSchemaVersion())
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion(), version)
	}
	assert.Equal(t, before, schemaSnapshot(t, s.DB()))
	require.NoError(t, s.Close())

	// A second open of the migrated file changes neither schema nor data.
	reopened, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, before, schemaSnapshot(t, reopened.DB()))

	after, err := reopened.Dump(ctx)
	require.NoError(t, err)
	assert.Equal(t, ds, after)
}

func TestMigrationRunsFromZeroOnFreshSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, applied, err := applyMigrations(ctx, s.DB(), DefaultMigrations(), 0, CurrentSchemaVersion())
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "every step already applied")
}

func TestNewerStoredVersionIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Settings().Set(ctx, models.SettingSchemaVersion, "42"))
	require.NoError(t, s.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, 42, reopened.SchemaVersion())

	v, _, err := reopened.Settings().Get(ctx, models.SettingSchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestUnreadableVersionProbesAsZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Settings().Set(ctx, models.SettingSchemaVersion, "not-a-number"))
	assert.Equal(t, 0, readSchemaVersion(ctx, s.DB()))

	require.NoError(t, s.Settings().Delete(ctx, models.SettingSchemaVersion))
	assert.Equal(t, 0, readSchemaVersion(ctx, s.DB()))
}

func TestMigrationErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("failure is fatal and typed", func(t *testing.T) {
		broken := []Migration{{
			Version:     7,
			Description: "broken",
			Up: func(ctx context.Context, tx *sql.Tx) (bool, error) {
				return false, errors.New("boom")
			},
		}}
		version, _, err := applyMigrations(ctx, s.DB(), broken, 5, 7)
		require.ErrorIs(t, err, storage.ErrMigration)
		assert.Equal(t, 5, version)
	})

	t.Run("duplicate column is tolerated", func(t *testing.T) {
		blind := []Migration{{
			Version:     6,
			Description: "blind add",
			Up: func(ctx context.Context, tx *sql.Tx) (bool, error) {
				_, err := tx.ExecContext(ctx, `ALTER TABLE expenses ADD COLUMN is_paid INTEGER NOT NULL DEFAULT 1`)
				return err == nil, err
			},
		}}
		version, applied, err := applyMigrations(ctx, s.DB(), blind, 5, 6)
		require.NoError(t, err)
		assert.Equal(t, 6, version)
		assert.Equal(t, 0, applied)
	})

	t.Run("columns added before a duplicate are kept", func(t *testing.T) {
		mixed := []Migration{{
			Version:     6,
			Description: "add one, repeat one",
			Up: func(ctx context.Context, tx *sql.Tx) (bool, error) {
				if _, err := addColumns(columnSpec{table: "expenses", name: "receipt_path", definition: `TEXT`})(ctx, tx); err != nil {
					return false, err
				}
				_, err := tx.ExecContext(ctx, `ALTER TABLE expenses ADD COLUMN is_paid INTEGER NOT NULL DEFAULT 1`)
				return true, err
			},
		}}
		_, _, err := applyMigrations(ctx, s.DB(), mixed, 5, 6)
		require.NoError(t, err)

		exists, err := columnExists(ctx, s.DB(), "expenses", "receipt_path")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("adding an existing column is not an error", func(t *testing.T) {
		tx, err := s.DB().BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()

		added, err := addColumn(ctx, tx, columnSpec{table: "profiles", name: "password_hash", definition: `TEXT`})
		require.NoError(t, err)
		assert.False(t, added)

		added, err = addColumn(ctx, tx, columnSpec{table: "profiles", name: "avatar", definition: `TEXT`})
		require.NoError(t, err)
		assert.True(t, added)
		require.NoError(t, tx.Commit())

		exists, err := columnExists(ctx, s.DB(), "profiles", "avatar")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("steps above the target are skipped", func(t *testing.T) {
		var ran bool
		future := []Migration{{
			Version: 9,
			Up: func(ctx context.Context, tx *sql.Tx) (bool, error) {
				ran = true
				return true, nil
			},
		}}
		version, _, err := applyMigrations(ctx, s.DB(), future, 5, 8)
		require.NoError(t, err)
		assert.False(t, ran)
		assert.Equal(t, 8, version)
	})
}

func TestSyncDefaultCategoriesRestoresDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	savings := categoryByName(t, s, "Savings")
	require.NoError(t, s.Categories().SoftDelete(ctx, savings.ID))
	_, err := s.Categories().Update(ctx, categoryByName(t, s, "Health").ID, models.CategoryPatch{Icon: models.Set("pill")})
	require.NoError(t, err)

	require.NoError(t, SyncDefaultCategories(ctx, s.DB()))

	restored := categoryByName(t, s, "Savings")
	assert.Equal(t, savings.ID, restored.ID)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, "heart-pulse", categoryByName(t, s, "Health").Icon)

	all, err := s.Categories().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultCategories))
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// baseSchema creates the tables as the first release shipped them. Columns
// added later live in migrations so that old databases and fresh ones
// converge on the same shape.
// Tables referenced by foreign keys must be created first.
const baseSchema = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL COLLATE NOCASE,
    icon TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT
);

CREATE TABLE IF NOT EXISTS allowance_sources (
    id TEXT PRIMARY KEY,
    profile_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    name TEXT NOT NULL,
    amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT,
    FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS months (
    id TEXT PRIMARY KEY,
    profile_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
    allowance_override_cents INTEGER CHECK (allowance_override_cents IS NULL OR allowance_override_cents >= 0),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (profile_id, year, month),
    FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    month_id TEXT NOT NULL,
    category_id TEXT NOT NULL,
    amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
    note TEXT,
    expense_date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT,
    FOREIGN KEY (month_id) REFERENCES months(id) ON DELETE CASCADE,
    FOREIGN KEY (category_id) REFERENCES categories(id)
);
`

// Migration is one forward-only schema step. Up must inspect the schema
// before mutating it so that running it again is a no-op; changed reports
// whether anything was altered.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) (changed bool, err error)
}

type columnSpec struct {
	table      string
	name       string
	definition string
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "add expenses.is_paid",
		Up: addColumns(columnSpec{
			table: "expenses", name: "is_paid", definition: `INTEGER NOT NULL DEFAULT 1`,
		}),
	},
	{
		Version:     2,
		Description: "add expenses.is_verified",
		Up: addColumns(columnSpec{
			table: "expenses", name: "is_verified", definition: `INTEGER NOT NULL DEFAULT 0`,
		}),
	},
	{
		Version:     3,
		Description: "add allowance_sources.is_active",
		Up: addColumns(columnSpec{
			table: "allowance_sources", name: "is_active", definition: `INTEGER NOT NULL DEFAULT 1`,
		}),
	},
	{
		Version:     4,
		Description: "add profile security columns",
		Up: addColumns(
			columnSpec{table: "profiles", name: "is_secured", definition: `INTEGER NOT NULL DEFAULT 0`},
			columnSpec{table: "profiles", name: "password_hash", definition: `TEXT`},
		),
	},
	{
		Version:     5,
		Description: "create lookup indexes",
		Up: func(ctx context.Context, tx *sql.Tx) (bool, error) {
			indexes := []struct {
				name string
				ddl  string
			}{
				{"idx_categories_live_name", `CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_live_name ON categories(name COLLATE NOCASE) WHERE deleted_at IS NULL`},
				{"idx_allowance_sources_profile_year", `CREATE INDEX IF NOT EXISTS idx_allowance_sources_profile_year ON allowance_sources(profile_id, year)`},
				{"idx_months_profile_year", `CREATE INDEX IF NOT EXISTS idx_months_profile_year ON months(profile_id, year)`},
				{"idx_expenses_month_id", `CREATE INDEX IF NOT EXISTS idx_expenses_month_id ON expenses(month_id)`},
				{"idx_expenses_category_id", `CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`},
			}
			changed := false
			for _, idx := range indexes {
				exists, err := indexExists(ctx, tx, idx.name)
				if err != nil {
					return changed, err
				}
				if exists {
					continue
				}
				if _, err := tx.ExecContext(ctx, idx.ddl); err != nil {
					return changed, fmt.Errorf("create index %s: %w", idx.name, err)
				}
				changed = true
			}
			return changed, nil
		},
	},
}

// DefaultMigrations returns a copy of the built-in migration list.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// CurrentSchemaVersion is the version the code expects after migrating.
func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// RunMigrations brings the schema up to date with DefaultMigrations and
// returns the version to persist, which is never lower than from.
func RunMigrations(ctx context.Context, db *sql.DB, from, to int) (int, error) {
	version, _, err := applyMigrations(ctx, db, DefaultMigrations(), from, to)
	return version, err
}

// applyMigrations runs every step up to version to, each in its own
// transaction, regardless of the stored version: a database restored from an
// older copy may report a high version while still missing columns.
func applyMigrations(ctx context.Context, db *sql.DB, migrations []Migration, from, to int) (version, applied int, err error) {
	if db == nil {
		return from, 0, fmt.Errorf("%w: db is nil", storage.ErrMigration)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, m := range ordered {
		if m.Version > to {
			continue
		}
		changed, err := runMigration(ctx, db, m)
		if err != nil {
			return from, applied, err
		}
		if changed {
			applied++
			slog.InfoContext(ctx, "Applied migration", "version", m.Version, "description", m.Description)
		}
	}

	return max(from, to), applied, nil
}

func runMigration(ctx context.Context, db *sql.DB, m Migration) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin v%d: %v", storage.ErrMigration, m.Version, err)
	}
	defer tx.Rollback()

	changed, err := m.Up(ctx, tx)
	if err != nil {
		if !isDuplicateColumn(err) {
			return false, fmt.Errorf("%w: v%d (%s): %v", storage.ErrMigration, m.Version, m.Description, err)
		}
		// SQLite rolls back only the failed statement; keep the rest of the step.
		slog.DebugContext(ctx, "Migration column already present", "version", m.Version)
		changed = false
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit v%d: %v", storage.ErrMigration, m.Version, err)
	}
	return changed, nil
}

func addColumns(columns ...columnSpec) func(context.Context, *sql.Tx) (bool, error) {
	return func(ctx context.Context, tx *sql.Tx) (bool, error) {
		changed := false
		for _, c := range columns {
			exists, err := columnExists(ctx, tx, c.table, c.name)
			if err != nil {
				return changed, err
			}
			if exists {
				continue
			}
			added, err := addColumn(ctx, tx, c)
			if err != nil {
				return changed, err
			}
			changed = changed || added
		}
		return changed, nil
	}
}

// addColumn reports false when the column turns out to exist already.
func addColumn(ctx context.Context, tx *sql.Tx, c columnSpec) (bool, error) {
	_, err := tx.ExecContext(ctx, `ALTER TABLE `+c.table+` ADD COLUMN `+c.name+` `+c.definition)
	if isDuplicateColumn(err) {
		slog.DebugContext(ctx, "Column already present", "table", c.table, "column", c.name)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add %s.%s: %w", c.table, c.name, err)
	}
	return true, nil
}

func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}

func createBaseSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("%w: create base schema: %v", storage.ErrMigration, err)
	}
	return nil
}

// readSchemaVersion treats a missing or unreadable version as 0 so that the
// migrations rebuild whatever is absent.
func readSchemaVersion(ctx context.Context, db dbtx) int {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, models.SettingSchemaVersion).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.DebugContext(ctx, "Schema version unavailable", "error", err)
		}
		return 0
	}
	version, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || version < 0 {
		slog.DebugContext(ctx, "Schema version unparsable", "value", raw)
		return 0
	}
	return version
}

func writeSchemaVersion(ctx context.Context, db dbtx, version int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		models.SettingSchemaVersion, strconv.Itoa(version),
	)
	if err != nil {
		return fmt.Errorf("%w: persist schema version: %v", storage.ErrMigration, err)
	}
	return nil
}

func maxMigrationVersion(migrations []Migration) int {
	v := 0
	for _, m := range migrations {
		if m.Version > v {
			v = m.Version
		}
	}
	return v
}

func columnExists(ctx context.Context, tx dbtx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return false, fmt.Errorf("query table info %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dfltVal sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dfltVal, &pk); err != nil {
			return false, fmt.Errorf("scan table info %s: %w", table, err)
		}
		if strings.EqualFold(name, column) {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return found, nil
}

func indexExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up index %s: %w", name, err)
	}
	return n > 0, nil
}

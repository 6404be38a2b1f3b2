// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db            *sql.DB
	path          string
	metrics       *metrics.Metrics
	schemaVersion int

	profiles         *profileRepo
	categories       *categoryRepo
	allowanceSources *allowanceSourceRepo
	months           *monthRepo
	expenses         *expenseRepo
	settings         *settingsRepo
}

type options struct {
	metrics    *metrics.Metrics
	migrations []Migration
}

// Option configures a Store.
type Option func(*options)

// WithMetrics records repository and migration metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMigrations replaces the built-in migration list.
func WithMigrations(migrations []Migration) Option {
	return func(o *options) { o.migrations = migrations }
}

// New opens the database at dbPath, creating parent directories, the base
// tables and any missing migrated columns, then synchronizes the default
// categories. Most callers should go through Engine.Open instead so that
// concurrent first uses share one handle.
func New(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	o := options{migrations: DefaultMigrations()}
	for _, opt := range opts {
		opt(&o)
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	version, err := migrate(ctx, db, o)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := SyncDefaultCategories(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:            db,
		path:          dbPath,
		metrics:       o.metrics,
		schemaVersion: version,
	}
	s.profiles = &profileRepo{db: db, metrics: o.metrics}
	s.categories = &categoryRepo{db: db, metrics: o.metrics}
	s.allowanceSources = &allowanceSourceRepo{db: db, metrics: o.metrics}
	s.months = &monthRepo{db: db, metrics: o.metrics}
	s.expenses = &expenseRepo{db: db, metrics: o.metrics}
	s.settings = &settingsRepo{db: db, metrics: o.metrics}

	slog.InfoContext(ctx, "Database opened", "path", dbPath, "schema_version", version)
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB, o options) (int, error) {
	if err := createBaseSchema(ctx, db); err != nil {
		return 0, err
	}

	stored := readSchemaVersion(ctx, db)
	target := maxMigrationVersion(o.migrations)
	if stored > target {
		slog.WarnContext(ctx, "Database schema is newer than this build",
			"stored_version", stored, "code_version", target)
	}

	version, applied, err := applyMigrations(ctx, db, o.migrations, stored, target)
	if err != nil {
		return 0, err
	}
	for range applied {
		o.metrics.MigrationApplied()
	}

	if err := writeSchemaVersion(ctx, db, version); err != nil {
		return 0, err
	}
	o.metrics.SetSchemaVersion(version)
	return version, nil
}

// dsn applies the connection pragmas to every pooled connection.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return path + "?" + q.Encode()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SchemaVersion returns the version persisted when the store was opened.
func (s *Store) SchemaVersion() int { return s.schemaVersion }

// DB exposes the underlying handle for maintenance tasks and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Profiles() storage.ProfileRepository                 { return s.profiles }
func (s *Store) Categories() storage.CategoryRepository              { return s.categories }
func (s *Store) AllowanceSources() storage.AllowanceSourceRepository { return s.allowanceSources }
func (s *Store) Months() storage.MonthRepository                     { return s.months }
func (s *Store) Expenses() storage.ExpenseRepository                 { return s.expenses }
func (s *Store) Settings() storage.SettingsRepository                { return s.settings }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

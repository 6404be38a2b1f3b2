package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/storage"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time {
	return time.Now().UTC()
}

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseNullableTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func isConstraintError(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// wrapErr prefixes err with op and classifies SQLite constraint failures
// as storage.ErrConstraint.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConstraint) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isConstraintError(err) {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrConstraint, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", storage.ErrNotFound, entity, id)
}

func constraint(format string, args ...any) error {
	return fmt.Errorf("%w: %s", storage.ErrConstraint, fmt.Sprintf(format, args...))
}

// observe records metrics and logs failures for one repository call.
func observe(ctx context.Context, m *metrics.Metrics, entity, op string, started time.Time, err error) {
	m.ObserveOperation(entity, op, started, err)
	if err == nil {
		return
	}
	level := slog.LevelError
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConstraint) {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "Storage operation failed",
		"entity", entity,
		"op", op,
		"error", err,
		"duration_ms", time.Since(started).Milliseconds(),
	)
}

func checkAffected(result sql.Result, entity, id string) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return notFound(entity, id)
	}
	return nil
}

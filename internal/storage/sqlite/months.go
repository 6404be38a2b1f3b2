package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/models"
)

const entityMonth = "month"

type monthRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *monthRepo) FindByID(ctx context.Context, id string) (_ *models.Month, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityMonth, "find", started, err) }(time.Now())

	m, err := findMonth(ctx, r.db, id)
	return m, wrapErr("find month", err)
}

func findMonth(ctx context.Context, q dbtx, id string) (*models.Month, error) {
	m, err := scanMonth(q.QueryRowContext(ctx,
		`SELECT `+monthColumns+` FROM months WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityMonth, id)
	}
	return m, err
}

func (r *monthRepo) Find(ctx context.Context, profileID string, year, month int) (_ *models.Month, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityMonth, "find_period", started, err) }(time.Now())

	m, err := findMonthByPeriod(ctx, r.db, profileID, year, month)
	return m, wrapErr("find month", err)
}

func findMonthByPeriod(ctx context.Context, q dbtx, profileID string, year, month int) (*models.Month, error) {
	m, err := scanMonth(q.QueryRowContext(ctx,
		`SELECT `+monthColumns+` FROM months WHERE profile_id = ? AND year = ? AND month = ?`,
		profileID, year, month,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityMonth, fmt.Sprintf("%s/%04d-%02d", profileID, year, month))
	}
	return m, err
}

func (r *monthRepo) ListByProfileYear(ctx context.Context, profileID string, year int) (_ []models.Month, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityMonth, "list", started, err) }(time.Now())

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+monthColumns+` FROM months WHERE profile_id = ? AND year = ? ORDER BY month`,
		profileID, year,
	)
	if err != nil {
		return nil, wrapErr("list months", err)
	}
	defer rows.Close()

	var months []models.Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate months: %w", err)
	}
	return months, nil
}

// GetOrCreate inserts with ON CONFLICT DO NOTHING and then reads the row back,
// so a month created concurrently by another caller is returned as is.
func (r *monthRepo) GetOrCreate(ctx context.Context, year, month int, profileID string) (_ *models.Month, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityMonth, "get_or_create", started, err) }(time.Now())

	if month < 1 || month > 12 {
		return nil, constraint("month out of range: %d", month)
	}

	ts := fmtTime(now())
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO months (id, profile_id, year, month, allowance_override_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(profile_id, year, month) DO NOTHING`,
		uuid.NewString(), profileID, year, month, ts, ts,
	)
	if err != nil {
		return nil, wrapErr("get or create month", err)
	}

	m, err := findMonthByPeriod(ctx, r.db, profileID, year, month)
	return m, wrapErr("get or create month", err)
}

func (r *monthRepo) Update(ctx context.Context, id string, patch models.MonthPatch) (_ *models.Month, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityMonth, "update", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update month: begin: %w", err)
	}
	defer tx.Rollback()

	m, err := findMonth(ctx, tx, id)
	if err != nil {
		return nil, wrapErr("update month", err)
	}

	if v, ok := patch.AllowanceOverrideCents.Get(); ok {
		if v != nil && *v < 0 {
			return nil, constraint("allowance override must not be negative: %d", *v)
		}
		m.AllowanceOverrideCents = v
	}
	m.UpdatedAt = now()

	row := monthRowFrom(*m)
	_, err = tx.ExecContext(ctx,
		`UPDATE months SET allowance_override_cents = ?, updated_at = ? WHERE id = ?`,
		row.AllowanceOverrideCents, row.UpdatedAt, id,
	)
	if err != nil {
		return nil, wrapErr("update month", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update month: commit: %w", err)
	}
	return m, nil
}

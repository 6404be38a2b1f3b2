package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/models"
)

const entityAllowanceSource = "allowance_source"

type allowanceSourceRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *allowanceSourceRepo) FindByID(ctx context.Context, id string) (_ *models.AllowanceSource, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityAllowanceSource, "find", started, err) }(time.Now())

	a, err := findAllowanceSource(ctx, r.db, id)
	return a, wrapErr("find allowance source", err)
}

func findAllowanceSource(ctx context.Context, q dbtx, id string) (*models.AllowanceSource, error) {
	a, err := scanAllowanceSource(q.QueryRowContext(ctx,
		`SELECT `+allowanceSourceColumns+` FROM allowance_sources WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityAllowanceSource, id)
	}
	return a, err
}

// ListByProfileYear returns live sources, active or not. Callers filter on
// IsActive when computing totals.
func (r *allowanceSourceRepo) ListByProfileYear(ctx context.Context, profileID string, year int) (_ []models.AllowanceSource, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityAllowanceSource, "list", started, err) }(time.Now())

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+allowanceSourceColumns+` FROM allowance_sources
		 WHERE profile_id = ? AND year = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		profileID, year,
	)
	if err != nil {
		return nil, wrapErr("list allowance sources", err)
	}
	defer rows.Close()

	var sources []models.AllowanceSource
	for rows.Next() {
		a, err := scanAllowanceSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allowance source: %w", err)
		}
		sources = append(sources, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowance sources: %w", err)
	}
	return sources, nil
}

func (r *allowanceSourceRepo) Create(ctx context.Context, a *models.AllowanceSource) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityAllowanceSource, "create", started, err) }(time.Now())

	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return constraint("allowance source name is required")
	}
	if a.AmountCents < 0 {
		return constraint("allowance amount must not be negative: %d", a.AmountCents)
	}
	a.ID = ensureID(a.ID)
	ts := now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = ts
	}
	a.UpdatedAt = ts
	a.DeletedAt = nil

	row := allowanceSourceRowFrom(*a)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO allowance_sources (`+allowanceSourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ProfileID, row.Year, row.Name, row.AmountCents, row.IsActive,
		row.CreatedAt, row.UpdatedAt, row.DeletedAt,
	)
	return wrapErr("create allowance source", err)
}

func (r *allowanceSourceRepo) Update(ctx context.Context, id string, patch models.AllowanceSourcePatch) (_ *models.AllowanceSource, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityAllowanceSource, "update", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update allowance source: begin: %w", err)
	}
	defer tx.Rollback()

	a, err := findAllowanceSource(ctx, tx, id)
	if err != nil {
		return nil, wrapErr("update allowance source", err)
	}

	if name, ok := patch.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, constraint("allowance source name is required")
		}
		a.Name = name
	}
	if v, ok := patch.AmountCents.Get(); ok {
		if v < 0 {
			return nil, constraint("allowance amount must not be negative: %d", v)
		}
		a.AmountCents = v
	}
	if v, ok := patch.IsActive.Get(); ok {
		a.IsActive = v
	}
	a.UpdatedAt = now()

	row := allowanceSourceRowFrom(*a)
	_, err = tx.ExecContext(ctx,
		`UPDATE allowance_sources SET name = ?, amount_cents = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		row.Name, row.AmountCents, row.IsActive, row.UpdatedAt, id,
	)
	if err != nil {
		return nil, wrapErr("update allowance source", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update allowance source: commit: %w", err)
	}
	return a, nil
}

func (r *allowanceSourceRepo) SoftDelete(ctx context.Context, id string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityAllowanceSource, "soft_delete", started, err) }(time.Now())

	ts := fmtTime(now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE allowance_sources SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id,
	)
	if err != nil {
		return wrapErr("delete allowance source", err)
	}
	return wrapErr("delete allowance source", checkAffected(res, entityAllowanceSource, id))
}

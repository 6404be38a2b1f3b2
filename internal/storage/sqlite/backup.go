package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// Dump reads every table inside one read transaction, soft-deleted rows
// included.
func (s *Store) Dump(ctx context.Context) (_ *storage.Dataset, err error) {
	defer func(started time.Time) { observe(ctx, s.metrics, "dataset", "dump", started, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dump: begin: %w", err)
	}
	defer tx.Rollback()

	ds := &storage.Dataset{}

	if ds.Profiles, err = dumpRows(ctx, tx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`, scanProfile); err != nil {
		return nil, fmt.Errorf("dump profiles: %w", err)
	}
	if ds.Categories, err = dumpRows(ctx, tx, `SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, id`, scanCategory); err != nil {
		return nil, fmt.Errorf("dump categories: %w", err)
	}
	if ds.AllowanceSources, err = dumpRows(ctx, tx, `SELECT `+allowanceSourceColumns+` FROM allowance_sources ORDER BY year, created_at, id`, scanAllowanceSource); err != nil {
		return nil, fmt.Errorf("dump allowance sources: %w", err)
	}
	if ds.Months, err = dumpRows(ctx, tx, `SELECT `+monthColumns+` FROM months ORDER BY year, month, profile_id`, scanMonth); err != nil {
		return nil, fmt.Errorf("dump months: %w", err)
	}
	if ds.Expenses, err = dumpRows(ctx, tx, `SELECT `+expenseColumns+` FROM expenses ORDER BY expense_date, created_at, id`, scanExpense); err != nil {
		return nil, fmt.Errorf("dump expenses: %w", err)
	}
	if ds.Settings, err = allSettings(ctx, tx); err != nil {
		return nil, fmt.Errorf("dump settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dump: commit: %w", err)
	}
	return ds, nil
}

func dumpRows[T any](ctx context.Context, q dbtx, query string, scan func(rowScanner) (*T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Replace swaps the dataset in one transaction. Expenses, months, categories
// and allowance sources are deleted and re-inserted verbatim. Profiles and
// settings are upserted when present and otherwise left alone. Nothing is
// visible to other readers until the commit succeeds.
func (s *Store) Replace(ctx context.Context, ds *storage.Dataset) (err error) {
	defer func(started time.Time) { observe(ctx, s.metrics, "dataset", "replace", started, err) }(time.Now())

	if ds == nil {
		return fmt.Errorf("%w: dataset is nil", storage.ErrTransaction)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", storage.ErrTransaction, err)
	}
	defer tx.Rollback()

	fail := func(step string, err error) error {
		return fmt.Errorf("%w: %s: %w", storage.ErrTransaction, step, wrapErr("replace", err))
	}

	for _, table := range []string{"expenses", "months", "categories", "allowance_sources"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fail("clear "+table, err)
		}
	}

	for _, p := range ds.Profiles {
		row := profileRowFrom(p)
		// ON CONFLICT DO UPDATE keeps the row in place; REPLACE would delete it
		// and cascade into months and allowance sources.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			     name = excluded.name,
			     is_secured = excluded.is_secured,
			     password_hash = excluded.password_hash,
			     created_at = excluded.created_at,
			     updated_at = excluded.updated_at`,
			row.ID, row.Name, row.IsSecured, row.PasswordHash, row.CreatedAt, row.UpdatedAt,
		); err != nil {
			return fail("upsert profile "+p.ID, err)
		}
	}

	for _, st := range ds.Settings {
		if st.Key == models.SettingSchemaVersion {
			continue
		}
		if err := upsertSetting(ctx, tx, st.Key, st.Value); err != nil {
			return fail("upsert setting "+st.Key, err)
		}
	}

	for _, c := range ds.Categories {
		row := categoryRowFrom(c)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.Name, row.Icon, row.Color, row.SortOrder, row.CreatedAt, row.UpdatedAt, row.DeletedAt,
		); err != nil {
			return fail("insert category "+c.ID, err)
		}
	}

	for _, a := range ds.AllowanceSources {
		row := allowanceSourceRowFrom(a)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allowance_sources (`+allowanceSourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.ProfileID, row.Year, row.Name, row.AmountCents, row.IsActive,
			row.CreatedAt, row.UpdatedAt, row.DeletedAt,
		); err != nil {
			return fail("insert allowance source "+a.ID, err)
		}
	}

	for _, m := range ds.Months {
		row := monthRowFrom(m)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO months (`+monthColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.ProfileID, row.Year, row.Month, row.AllowanceOverrideCents, row.CreatedAt, row.UpdatedAt,
		); err != nil {
			return fail("insert month "+m.ID, err)
		}
	}

	for _, e := range ds.Expenses {
		row := expenseRowFrom(e)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.MonthID, row.CategoryID, row.AmountCents, row.Note, row.ExpenseDate,
			row.IsPaid, row.IsVerified, row.CreatedAt, row.UpdatedAt, row.DeletedAt,
		); err != nil {
			return fail("insert expense "+e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", storage.ErrTransaction, err)
	}

	slog.InfoContext(ctx, "Dataset replaced",
		"profiles", len(ds.Profiles),
		"categories", len(ds.Categories),
		"allowance_sources", len(ds.AllowanceSources),
		"months", len(ds.Months),
		"expenses", len(ds.Expenses),
	)
	return nil
}

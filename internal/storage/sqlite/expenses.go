package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/models"
)

const entityExpense = "expense"

type expenseRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *expenseRepo) FindByID(ctx context.Context, id string) (_ *models.Expense, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "find", started, err) }(time.Now())

	e, err := findExpense(ctx, r.db, id)
	return e, wrapErr("find expense", err)
}

func findExpense(ctx context.Context, q dbtx, id string) (*models.Expense, error) {
	e, err := scanExpense(q.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityExpense, id)
	}
	return e, err
}

func (r *expenseRepo) ListByMonth(ctx context.Context, monthID string) (_ []models.Expense, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "list_month", started, err) }(time.Now())

	return listExpenses(ctx, r.db,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE month_id = ? AND deleted_at IS NULL
		 ORDER BY expense_date DESC, created_at DESC`,
		monthID,
	)
}

func (r *expenseRepo) ListByProfileYear(ctx context.Context, profileID string, year int) (_ []models.Expense, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "list_year", started, err) }(time.Now())

	return listExpenses(ctx, r.db,
		`SELECT e.id, e.month_id, e.category_id, e.amount_cents, e.note, e.expense_date,
		        e.is_paid, e.is_verified, e.created_at, e.updated_at, e.deleted_at
		 FROM expenses e
		 JOIN months m ON m.id = e.month_id
		 WHERE m.profile_id = ? AND m.year = ? AND e.deleted_at IS NULL
		 ORDER BY m.month, e.expense_date, e.created_at`,
		profileID, year,
	)
}

func listExpenses(ctx context.Context, q dbtx, query string, args ...any) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list expenses", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *expenseRepo) Create(ctx context.Context, e *models.Expense) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "create", started, err) }(time.Now())

	if e.AmountCents <= 0 {
		return constraint("expense amount must be positive: %d", e.AmountCents)
	}
	if e.ExpenseDate.IsZero() {
		return constraint("expense date is required")
	}
	e.ID = ensureID(e.ID)
	e.ExpenseDate = models.TruncateDate(e.ExpenseDate)
	ts := now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = ts
	}
	e.UpdatedAt = ts
	e.DeletedAt = nil

	row := expenseRowFrom(*e)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.MonthID, row.CategoryID, row.AmountCents, row.Note, row.ExpenseDate,
		row.IsPaid, row.IsVerified, row.CreatedAt, row.UpdatedAt, row.DeletedAt,
	)
	return wrapErr("create expense", err)
}

// Update applies patch to the live expense with the given id. Each supplied
// field is compared with the stored value: a material change, or a paid
// expense becoming unpaid, clears IsVerified before an explicit IsVerified
// from the patch is applied.
func (r *expenseRepo) Update(ctx context.Context, id string, patch models.ExpensePatch) (_ *models.Expense, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "update", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update expense: begin: %w", err)
	}
	defer tx.Rollback()

	e, err := findExpense(ctx, tx, id)
	if err != nil {
		return nil, wrapErr("update expense", err)
	}

	if err := applyExpensePatch(e, patch); err != nil {
		return nil, err
	}
	e.UpdatedAt = now()

	row := expenseRowFrom(*e)
	_, err = tx.ExecContext(ctx,
		`UPDATE expenses
		 SET category_id = ?, amount_cents = ?, note = ?, expense_date = ?,
		     is_paid = ?, is_verified = ?, updated_at = ?
		 WHERE id = ?`,
		row.CategoryID, row.AmountCents, row.Note, row.ExpenseDate,
		row.IsPaid, row.IsVerified, row.UpdatedAt, id,
	)
	if err != nil {
		return nil, wrapErr("update expense", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update expense: commit: %w", err)
	}
	return e, nil
}

func applyExpensePatch(e *models.Expense, patch models.ExpensePatch) error {
	resetVerified := false

	if v, ok := patch.CategoryID.Get(); ok && v != e.CategoryID {
		e.CategoryID = v
		resetVerified = true
	}
	if v, ok := patch.AmountCents.Get(); ok {
		if v <= 0 {
			return constraint("expense amount must be positive: %d", v)
		}
		if v != e.AmountCents {
			e.AmountCents = v
			resetVerified = true
		}
	}
	if v, ok := patch.Note.Get(); ok && !sameNote(v, e.Note) {
		e.Note = v
		resetVerified = true
	}
	if v, ok := patch.ExpenseDate.Get(); ok {
		if v.IsZero() {
			return constraint("expense date is required")
		}
		v = models.TruncateDate(v)
		if !v.Equal(e.ExpenseDate) {
			e.ExpenseDate = v
			resetVerified = true
		}
	}
	if v, ok := patch.IsPaid.Get(); ok {
		if e.IsPaid && !v {
			resetVerified = true
		}
		e.IsPaid = v
	}

	if resetVerified {
		e.IsVerified = false
	}
	if v, ok := patch.IsVerified.Get(); ok {
		e.IsVerified = v
	}
	return nil
}

func sameNote(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *expenseRepo) SoftDelete(ctx context.Context, id string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "soft_delete", started, err) }(time.Now())

	ts := fmtTime(now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id,
	)
	if err != nil {
		return wrapErr("delete expense", err)
	}
	return wrapErr("delete expense", checkAffected(res, entityExpense, id))
}

// BulkUpdatePaidStatus marks the live expenses paid or unpaid in one
// statement. Marking a paid expense unpaid clears its verification.
func (r *expenseRepo) BulkUpdatePaidStatus(ctx context.Context, ids []string, paid bool) (err error) {
	if len(ids) == 0 {
		return nil
	}
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "bulk_paid", started, err) }(time.Now())

	args := append([]any{paid, paid, fmtTime(now())}, stringArgs(ids)...)
	_, err = r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET is_verified = CASE WHEN is_paid = 1 AND ? = 0 THEN 0 ELSE is_verified END,
		     is_paid = ?, updated_at = ?
		 WHERE deleted_at IS NULL AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	return wrapErr("bulk update paid status", err)
}

func (r *expenseRepo) BulkUpdateVerifiedStatus(ctx context.Context, ids []string, verified bool) (err error) {
	if len(ids) == 0 {
		return nil
	}
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "bulk_verified", started, err) }(time.Now())

	args := append([]any{verified, fmtTime(now())}, stringArgs(ids)...)
	_, err = r.db.ExecContext(ctx,
		`UPDATE expenses SET is_verified = ?, updated_at = ?
		 WHERE deleted_at IS NULL AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	return wrapErr("bulk update verified status", err)
}

// BulkDelete soft-deletes the live expenses in one statement.
func (r *expenseRepo) BulkDelete(ctx context.Context, ids []string) (err error) {
	if len(ids) == 0 {
		return nil
	}
	defer func(started time.Time) { observe(ctx, r.metrics, entityExpense, "bulk_delete", started, err) }(time.Now())

	ts := fmtTime(now())
	args := append([]any{ts, ts}, stringArgs(ids)...)
	_, err = r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ?, updated_at = ?
		 WHERE deleted_at IS NULL AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	return wrapErr("bulk delete expenses", err)
}

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

const entityCategory = "category"

type categoryRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *categoryRepo) FindByID(ctx context.Context, id string) (_ *models.Category, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "find", started, err) }(time.Now())

	c, err := findCategory(ctx, r.db, id)
	return c, wrapErr("find category", err)
}

func findCategory(ctx context.Context, q dbtx, id string) (*models.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityCategory, id)
	}
	return c, err
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (_ *models.Category, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "find_by_name", started, err) }(time.Now())

	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ? AND deleted_at IS NULL`,
		strings.TrimSpace(name),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr("find category", notFound(entityCategory, name))
	}
	return c, wrapErr("find category", err)
}

func (r *categoryRepo) List(ctx context.Context) (_ []models.Category, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "list", started, err) }(time.Now())

	return listCategories(ctx, r.db,
		`SELECT `+categoryColumns+` FROM categories WHERE deleted_at IS NULL ORDER BY sort_order, name`)
}

func (r *categoryRepo) ListIncludingDeleted(ctx context.Context) (_ []models.Category, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "list_all", started, err) }(time.Now())

	return listCategories(ctx, r.db,
		`SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, name`)
}

func listCategories(ctx context.Context, q dbtx, query string, args ...any) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "create", started, err) }(time.Now())

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return constraint("category name is required")
	}
	c.ID = ensureID(c.ID)
	ts := now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = ts
	c.DeletedAt = nil

	row := categoryRowFrom(*c)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name, row.Icon, row.Color, row.SortOrder, row.CreatedAt, row.UpdatedAt, row.DeletedAt,
	)
	return wrapErr("create category", err)
}

func (r *categoryRepo) Update(ctx context.Context, id string, patch models.CategoryPatch) (_ *models.Category, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "update", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update category: begin: %w", err)
	}
	defer tx.Rollback()

	c, err := findCategory(ctx, tx, id)
	if err != nil {
		return nil, wrapErr("update category", err)
	}

	if name, ok := patch.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, constraint("category name is required")
		}
		c.Name = name
	}
	if v, ok := patch.Icon.Get(); ok {
		c.Icon = v
	}
	if v, ok := patch.Color.Get(); ok {
		c.Color = v
	}
	if v, ok := patch.SortOrder.Get(); ok {
		c.SortOrder = v
	}
	c.UpdatedAt = now()

	row := categoryRowFrom(*c)
	_, err = tx.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, color = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		row.Name, row.Icon, row.Color, row.SortOrder, row.UpdatedAt, id,
	)
	if err != nil {
		return nil, wrapErr("update category", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update category: commit: %w", err)
	}
	return c, nil
}

// SoftDelete hides the category. Expenses keep their category_id and
// resolve to the Unknown sentinel when displayed.
func (r *categoryRepo) SoftDelete(ctx context.Context, id string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityCategory, "soft_delete", started, err) }(time.Now())

	ts := fmtTime(now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id,
	)
	if err != nil {
		return wrapErr("delete category", err)
	}
	return wrapErr("delete category", checkAffected(res, entityCategory, id))
}

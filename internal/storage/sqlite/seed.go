package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultCategory describes one built-in category.
type DefaultCategory struct {
	Name      string
	Icon      string
	Color     string
	SortOrder int
}

// DefaultCategories is the canonical category set kept in sync on every open.
var DefaultCategories = []DefaultCategory{
	{Name: "Food & Dining", Icon: "silverware-fork-knife", Color: "#FF7043", SortOrder: 1},
	{Name: "Transport", Icon: "car", Color: "#42A5F5", SortOrder: 2},
	{Name: "Housing", Icon: "home", Color: "#8D6E63", SortOrder: 3},
	{Name: "Utilities", Icon: "flash", Color: "#FFCA28", SortOrder: 4},
	{Name: "Health", Icon: "heart-pulse", Color: "#EF5350", SortOrder: 5},
	{Name: "Entertainment", Icon: "movie-open", Color: "#AB47BC", SortOrder: 6},
	{Name: "Shopping", Icon: "shopping", Color: "#EC407A", SortOrder: 7},
	{Name: "Education", Icon: "school", Color: "#5C6BC0", SortOrder: 8},
	{Name: "Savings", Icon: "piggy-bank", Color: "#66BB6A", SortOrder: 9},
	{Name: "Other", Icon: "dots-horizontal", Color: "#78909C", SortOrder: 10},
}

// legacyCategoryNames maps names used by early releases to their canonical
// replacement.
var legacyCategoryNames = []struct{ From, To string }{
	{"Food", "Food & Dining"},
	{"Transportation", "Transport"},
	{"Bills", "Utilities"},
	{"Misc", "Other"},
}

// SyncDefaultCategories renames legacy categories and upserts the canonical
// set. Existing rows keep their ids so expenses stay attached; a soft-deleted
// canonical category is brought back.
func SyncDefaultCategories(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync categories: begin: %w", err)
	}
	defer tx.Rollback()

	ts := fmtTime(now())

	for _, rename := range legacyCategoryNames {
		taken, err := liveCategoryID(ctx, tx, rename.To)
		if err != nil {
			return err
		}
		if taken != "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, updated_at = ? WHERE name = ? AND deleted_at IS NULL`,
			rename.To, ts, rename.From,
		)
		if err != nil {
			return wrapErr("sync categories: rename "+rename.From, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.InfoContext(ctx, "Renamed legacy category", "from", rename.From, "to", rename.To)
		}
	}

	for _, c := range DefaultCategories {
		if err := upsertDefaultCategory(ctx, tx, c, ts); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync categories: commit: %w", err)
	}
	return nil
}

func upsertDefaultCategory(ctx context.Context, tx *sql.Tx, c DefaultCategory, ts string) error {
	id, err := liveCategoryID(ctx, tx, c.Name)
	if err != nil {
		return err
	}
	if id != "" {
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET icon = ?, color = ?, sort_order = ?, updated_at = ?
			 WHERE id = ? AND (icon <> ? OR color <> ? OR sort_order <> ?)`,
			c.Icon, c.Color, c.SortOrder, ts, id, c.Icon, c.Color, c.SortOrder,
		)
		return wrapErr("sync categories: correct "+c.Name, err)
	}

	var deletedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? AND deleted_at IS NOT NULL
		 ORDER BY deleted_at DESC LIMIT 1`, c.Name,
	).Scan(&deletedID)
	switch {
	case err == nil:
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, icon = ?, color = ?, sort_order = ?, updated_at = ?, deleted_at = NULL
			 WHERE id = ?`,
			c.Name, c.Icon, c.Color, c.SortOrder, ts, deletedID,
		)
		if err != nil {
			return wrapErr("sync categories: restore "+c.Name, err)
		}
		slog.InfoContext(ctx, "Restored default category", "name", c.Name, "id", deletedID)
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sync categories: look up %s: %w", c.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, color, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.Name, c.Icon, c.Color, c.SortOrder, ts, ts,
	)
	return wrapErr("sync categories: insert "+c.Name, err)
}

func liveCategoryID(ctx context.Context, q dbtx, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? AND deleted_at IS NULL LIMIT 1`, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sync categories: look up %s: %w", name, err)
	}
	return id, nil
}

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

const entityProfile = "profile"

type profileRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *profileRepo) FindByID(ctx context.Context, id string) (_ *models.Profile, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "find", started, err) }(time.Now())

	p, err := findProfile(ctx, r.db, id)
	return p, wrapErr("find profile", err)
}

func findProfile(ctx context.Context, q dbtx, id string) (*models.Profile, error) {
	p, err := scanProfile(q.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entityProfile, id)
	}
	return p, err
}

func (r *profileRepo) List(ctx context.Context) (_ []models.Profile, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "list", started, err) }(time.Now())

	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, wrapErr("list profiles", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepo) Count(ctx context.Context) (n int, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "count", started, err) }(time.Now())

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, wrapErr("count profiles", err)
}

func (r *profileRepo) Create(ctx context.Context, p *models.Profile) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "create", started, err) }(time.Now())

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return constraint("profile name is required")
	}
	p.ID = ensureID(p.ID)
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts

	row := profileRowFrom(*p)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name, row.IsSecured, row.PasswordHash, row.CreatedAt, row.UpdatedAt,
	)
	return wrapErr("create profile", err)
}

func (r *profileRepo) Update(ctx context.Context, id string, patch models.ProfilePatch) (_ *models.Profile, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "update", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update profile: begin: %w", err)
	}
	defer tx.Rollback()

	p, err := findProfile(ctx, tx, id)
	if err != nil {
		return nil, wrapErr("update profile", err)
	}

	if name, ok := patch.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, constraint("profile name is required")
		}
		p.Name = name
	}
	if v, ok := patch.IsSecured.Get(); ok {
		p.IsSecured = v
	}
	if v, ok := patch.PasswordHash.Get(); ok {
		p.PasswordHash = v
	}
	p.UpdatedAt = now()

	row := profileRowFrom(*p)
	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET name = ?, is_secured = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		row.Name, row.IsSecured, row.PasswordHash, row.UpdatedAt, id,
	)
	if err != nil {
		return nil, wrapErr("update profile", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update profile: commit: %w", err)
	}
	return p, nil
}

func (r *profileRepo) Delete(ctx context.Context, id string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entityProfile, "delete", started, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete profile: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := findProfile(ctx, tx, id); err != nil {
		return wrapErr("delete profile", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return wrapErr("delete profile: count", err)
	}
	if count <= 1 {
		return constraint("cannot delete the last profile")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return wrapErr("delete profile", err)
	}
	if err := checkAffected(res, entityProfile, id); err != nil {
		return err
	}

	// Forget the selection so the next launch picks a remaining profile.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ? AND value = ?`, models.SettingCurrentProfileID, id,
	); err != nil {
		return wrapErr("delete profile: clear selection", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete profile: commit: %w", err)
	}
	return nil
}

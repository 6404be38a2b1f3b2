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

const entitySetting = "setting"

type settingsRepo struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func (r *settingsRepo) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entitySetting, "get", started, err) }(time.Now())

	err = r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("get setting", err)
	}
	return value, true, nil
}

func (r *settingsRepo) Set(ctx context.Context, key, value string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entitySetting, "set", started, err) }(time.Now())

	if key == "" {
		return constraint("setting key is required")
	}
	return wrapErr("set setting", upsertSetting(ctx, r.db, key, value))
}

func upsertSetting(ctx context.Context, q dbtx, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (r *settingsRepo) Delete(ctx context.Context, key string) (err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entitySetting, "delete", started, err) }(time.Now())

	_, err = r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return wrapErr("delete setting", err)
}

func (r *settingsRepo) All(ctx context.Context) (_ []models.Setting, err error) {
	defer func(started time.Time) { observe(ctx, r.metrics, entitySetting, "all", started, err) }(time.Now())

	return allSettings(ctx, r.db)
}

func allSettings(ctx context.Context, q dbtx) ([]models.Setting, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, wrapErr("list settings", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return settings, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// SettingsRepository stores mutable admin key-value settings and the
// per-notification-type delivery toggles.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, updatedBy *string) error
	List(ctx context.Context) ([]domain.Setting, error)
	NotificationEnabled(ctx context.Context, t domain.NotificationType) (bool, error)
	SetNotificationEnabled(ctx context.Context, t domain.NotificationType, enabled bool) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM app_settings WHERE key=$1`
	var value string
	err := querierFrom(ctx, r.pool).QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *settingsRepository) Put(ctx context.Context, key, value string, updatedBy *string) error {
	const query = `
        INSERT INTO app_settings (key, value, updated_by, updated_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_by=EXCLUDED.updated_by, updated_at=EXCLUDED.updated_at`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, key, value, updatedBy, time.Now())
	return err
}

func (r *settingsRepository) List(ctx context.Context) ([]domain.Setting, error) {
	const query = `SELECT key, value, updated_at, updated_by FROM app_settings ORDER BY key`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.UpdatedBy); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// NotificationEnabled defaults to true when no toggle row exists.
func (r *settingsRepository) NotificationEnabled(ctx context.Context, t domain.NotificationType) (bool, error) {
	const query = `SELECT enabled FROM notification_settings WHERE type=$1`
	var enabled bool
	err := querierFrom(ctx, r.pool).QueryRow(ctx, query, t).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *settingsRepository) SetNotificationEnabled(ctx context.Context, t domain.NotificationType, enabled bool) error {
	const query = `
        INSERT INTO notification_settings (type, enabled, updated_at)
        VALUES ($1,$2,NOW())
        ON CONFLICT (type) DO UPDATE SET enabled=EXCLUDED.enabled, updated_at=NOW()`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, t, enabled)
	return err
}

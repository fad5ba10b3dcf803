package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// NotificationRepository stores inbox rows; only the read flag mutates.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID string, id int64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, type, title, message, link_url)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		n.RecipientID,
		n.Type,
		n.Title,
		n.Message,
		n.LinkURL,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, recipient_id, type, title, message, link_url, is_read, created_at
        FROM notifications WHERE recipient_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.LinkURL,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=false`
	var count int
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID string, id int64) (bool, error) {
	const query = `UPDATE notifications SET is_read=true WHERE recipient_id=$1 AND id=$2 AND is_read=false`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, recipientID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `UPDATE notifications SET is_read=true WHERE recipient_id=$1 AND is_read=false`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

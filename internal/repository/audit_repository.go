package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// AuditRepository appends administrative action records. Write-only from the
// core's perspective; listing exists for admin tooling.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (actor_id, action, target_type, target_id, metadata, ip)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IP,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, actor_id, action, target_type, target_id, metadata, ip, created_at
        FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.Metadata,
			&entry.IP,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// SLAPolicyRepository defines persistence access for SLA policies.
type SLAPolicyRepository interface {
	// ActiveByPriority returns the newest active policy for a priority,
	// pgx.ErrNoRows when none exists.
	ActiveByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository returns a Postgres-backed implementation.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) ActiveByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	// most recently created active policy wins on duplicates
	const query = `
        SELECT id, priority, first_response_minutes, resolution_minutes, active, created_at
        FROM sla_policies WHERE priority=$1 AND active=true
        ORDER BY created_at DESC LIMIT 1`
	var policy domain.SLAPolicy
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, priority).Scan(
		&policy.ID,
		&policy.Priority,
		&policy.FirstResponseMinutes,
		&policy.ResolutionMinutes,
		&policy.Active,
		&policy.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, priority, first_response_minutes, resolution_minutes, active, created_at
        FROM sla_policies ORDER BY priority, created_at DESC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Priority,
			&policy.FirstResponseMinutes,
			&policy.ResolutionMinutes,
			&policy.Active,
			&policy.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

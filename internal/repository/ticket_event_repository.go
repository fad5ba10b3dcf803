package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// TicketEventRepository stores the append-only ticket event log.
type TicketEventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error)
}

type ticketEventRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(pool *pgxpool.Pool) TicketEventRepository {
	return &ticketEventRepository{pool: pool}
}

func (r *ticketEventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, type, actor_id, payload)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		event.Type,
		event.ActorID,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, type, actor_id, payload, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Type,
			&event.ActorID,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// SLACycleRepository persists SLA cycles. Cycles are append-only per ticket;
// only the open cycle is ever updated.
type SLACycleRepository interface {
	Create(ctx context.Context, cycle *domain.SLACycle) error
	Update(ctx context.Context, cycle *domain.SLACycle) error
	GetOpenByTicket(ctx context.Context, ticketID string) (*domain.SLACycle, error)
	MaxNumber(ctx context.Context, ticketID string) (int, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLACycle, error)
}

type slaCycleRepository struct {
	pool *pgxpool.Pool
}

// NewSLACycleRepository builds repository.
func NewSLACycleRepository(pool *pgxpool.Pool) SLACycleRepository {
	return &slaCycleRepository{pool: pool}
}

const cycleColumns = `id, ticket_id, number, opened_at, first_response_due_at, resolution_due_at,
       first_response_at, resolved_at, first_response_breached, resolution_breached,
       resolution_due_manual, resolution_due_reason, resolution_due_updated_by, resolution_due_updated_at,
       paused_at, paused_total_business_minutes, created_at, updated_at`

func (r *slaCycleRepository) Create(ctx context.Context, cycle *domain.SLACycle) error {
	const query = `
        INSERT INTO sla_cycles (ticket_id, number, opened_at, first_response_due_at, resolution_due_at,
            resolution_due_manual, resolution_due_reason, resolution_due_updated_by, resolution_due_updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		cycle.TicketID,
		cycle.Number,
		cycle.OpenedAt,
		cycle.FirstResponseDueAt,
		cycle.ResolutionDueAt,
		cycle.ResolutionDueManual,
		cycle.ResolutionDueReason,
		cycle.ResolutionDueUpdatedBy,
		cycle.ResolutionDueUpdatedAt,
	).Scan(&cycle.ID, &cycle.CreatedAt, &cycle.UpdatedAt)
}

func (r *slaCycleRepository) Update(ctx context.Context, cycle *domain.SLACycle) error {
	const query = `
        UPDATE sla_cycles SET first_response_due_at=$1, resolution_due_at=$2, first_response_at=$3,
            resolved_at=$4, first_response_breached=$5, resolution_breached=$6,
            resolution_due_manual=$7, resolution_due_reason=$8, resolution_due_updated_by=$9,
            resolution_due_updated_at=$10, paused_at=$11, paused_total_business_minutes=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		cycle.FirstResponseDueAt,
		cycle.ResolutionDueAt,
		cycle.FirstResponseAt,
		cycle.ResolvedAt,
		cycle.FirstResponseBreached,
		cycle.ResolutionBreached,
		cycle.ResolutionDueManual,
		cycle.ResolutionDueReason,
		cycle.ResolutionDueUpdatedBy,
		cycle.ResolutionDueUpdatedAt,
		cycle.PausedAt,
		cycle.PausedTotalBusinessMinutes,
		cycle.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaCycleRepository) GetOpenByTicket(ctx context.Context, ticketID string) (*domain.SLACycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM sla_cycles WHERE ticket_id=$1 AND resolved_at IS NULL`
	var cycle domain.SLACycle
	if err := scanCycle(querierFrom(ctx, r.pool).QueryRow(ctx, query, ticketID), &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *slaCycleRepository) MaxNumber(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COALESCE(MAX(number), 0) FROM sla_cycles WHERE ticket_id=$1`
	var max int
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

func (r *slaCycleRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLACycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM sla_cycles WHERE ticket_id=$1 ORDER BY number ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLACycle
	for rows.Next() {
		var cycle domain.SLACycle
		if err := scanCycle(rows, &cycle); err != nil {
			return nil, err
		}
		result = append(result, cycle)
	}
	return result, rows.Err()
}

func scanCycle(row rowScanner, cycle *domain.SLACycle) error {
	return row.Scan(
		&cycle.ID,
		&cycle.TicketID,
		&cycle.Number,
		&cycle.OpenedAt,
		&cycle.FirstResponseDueAt,
		&cycle.ResolutionDueAt,
		&cycle.FirstResponseAt,
		&cycle.ResolvedAt,
		&cycle.FirstResponseBreached,
		&cycle.ResolutionBreached,
		&cycle.ResolutionDueManual,
		&cycle.ResolutionDueReason,
		&cycle.ResolutionDueUpdatedBy,
		&cycle.ResolutionDueUpdatedAt,
		&cycle.PausedAt,
		&cycle.PausedTotalBusinessMinutes,
		&cycle.CreatedAt,
		&cycle.UpdatedAt,
	)
}

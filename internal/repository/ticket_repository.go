package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	RequesterSectorID *string
	TargetSectorID    *string
	CategoryID        *string
	CreatedByID       *string
	AssigneeID        *string
	Statuses          []domain.TicketStatus
	Priorities        []domain.TicketPriority
	SearchTerm        *string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	Limit             int
	Offset            int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListAssignees(ctx context.Context, ticketID string) ([]domain.TicketAssignee, error)
	AddAssignee(ctx context.Context, ticketID, userID string, at time.Time) (bool, error)
	RemoveAssignee(ctx context.Context, ticketID, userID string) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, title, description, request_data, request_data_version,
       status, priority, requester_sector_id, target_sector_id, category_id, created_by_id,
       resource_id, tags, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, request_data, request_data_version,
            status, priority, requester_sector_id, target_sector_id, category_id, created_by_id, resource_id, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.RequestData,
		ticket.RequestDataVersion,
		ticket.Status,
		ticket.Priority,
		ticket.RequesterSectorID,
		ticket.TargetSectorID,
		ticket.CategoryID,
		ticket.CreatedByID,
		ticket.ResourceID,
		ticket.Tags,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, request_data=$3, request_data_version=$4,
            status=$5, priority=$6, target_sector_id=$7, category_id=$8, resource_id=$9,
            tags=$10, closed_at=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.RequestData,
		ticket.RequestDataVersion,
		ticket.Status,
		ticket.Priority,
		ticket.TargetSectorID,
		ticket.CategoryID,
		ticket.ResourceID,
		ticket.Tags,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterSectorID != nil {
		args = append(args, *filter.RequesterSectorID)
		clauses = append(clauses, fmt.Sprintf("requester_sector_id=$%d", len(args)))
	}
	if filter.TargetSectorID != nil {
		args = append(args, *filter.TargetSectorID)
		clauses = append(clauses, fmt.Sprintf("target_sector_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("created_by_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("id IN (SELECT ticket_id FROM ticket_assignees WHERE user_id=$%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListAssignees(ctx context.Context, ticketID string) ([]domain.TicketAssignee, error) {
	const query = `
        SELECT id, ticket_id, user_id, assigned_at
        FROM ticket_assignees WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAssignee
	for rows.Next() {
		var a domain.TicketAssignee
		if err := rows.Scan(&a.ID, &a.TicketID, &a.UserID, &a.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AddAssignee inserts the pair; returns false when it already existed.
func (r *ticketRepository) AddAssignee(ctx context.Context, ticketID, userID string, at time.Time) (bool, error) {
	const query = `
        INSERT INTO ticket_assignees (ticket_id, user_id, assigned_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, ticketID, userID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) RemoveAssignee(ctx context.Context, ticketID, userID string) (bool, error) {
	const query = `DELETE FROM ticket_assignees WHERE ticket_id=$1 AND user_id=$2`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, ticketID, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.RequestData,
		&ticket.RequestDataVersion,
		&ticket.Status,
		&ticket.Priority,
		&ticket.RequesterSectorID,
		&ticket.TargetSectorID,
		&ticket.CategoryID,
		&ticket.CreatedByID,
		&ticket.ResourceID,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	)
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// DashboardSummary aggregates current ticket and SLA state.
type DashboardSummary struct {
	Open       int
	InProgress int
	Waiting    int
	Resolved   int
	Cancelled  int
	SLAOk      int
	SLARisk    int
	SLABreach  int
}

// AssigneeWIP counts active tickets per assignee.
type AssigneeWIP struct {
	UserID string
	Count  int
}

// ThroughputPoint is one day of the resolution time series.
type ThroughputPoint struct {
	Day      time.Time
	Resolved int
}

// CategoryBacklog counts unresolved tickets per category.
type CategoryBacklog struct {
	CategoryID string
	Count      int
}

// ReportRepository computes read-only projections for dashboards and exports.
type ReportRepository interface {
	DashboardSummary(ctx context.Context, sectorID *string, riskWindow time.Duration) (*DashboardSummary, error)
	WIPByAssignee(ctx context.Context, sectorID *string) ([]AssigneeWIP, error)
	Throughput(ctx context.Context, sectorID *string, days int) ([]ThroughputPoint, error)
	BacklogByCategory(ctx context.Context, sectorID *string) ([]CategoryBacklog, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository builds repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) DashboardSummary(ctx context.Context, sectorID *string, riskWindow time.Duration) (*DashboardSummary, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE t.status = 'ABERTO'),
            COUNT(*) FILTER (WHERE t.status = 'EM_ANDAMENTO'),
            COUNT(*) FILTER (WHERE t.status IN ('AGUARDANDO_USUARIO','AGUARDANDO_APROVACAO')),
            COUNT(*) FILTER (WHERE t.status = 'RESOLVIDO'),
            COUNT(*) FILTER (WHERE t.status = 'CANCELADO'),
            COUNT(*) FILTER (WHERE c.id IS NOT NULL AND NOT c.resolution_breached AND c.resolution_due_at > NOW() + $2::interval),
            COUNT(*) FILTER (WHERE c.id IS NOT NULL AND NOT c.resolution_breached AND c.resolution_due_at <= NOW() + $2::interval),
            COUNT(*) FILTER (WHERE c.id IS NOT NULL AND (c.resolution_breached OR c.resolution_due_at < NOW()))
        FROM tickets t
        LEFT JOIN sla_cycles c ON c.ticket_id = t.id AND c.resolved_at IS NULL
        WHERE ($1::uuid IS NULL OR t.target_sector_id = $1)`
	var s DashboardSummary
	interval := riskWindow.String()
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, sectorID, interval).Scan(
		&s.Open,
		&s.InProgress,
		&s.Waiting,
		&s.Resolved,
		&s.Cancelled,
		&s.SLAOk,
		&s.SLARisk,
		&s.SLABreach,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *reportRepository) WIPByAssignee(ctx context.Context, sectorID *string) ([]AssigneeWIP, error) {
	const query = `
        SELECT a.user_id, COUNT(*)
        FROM ticket_assignees a
        JOIN tickets t ON t.id = a.ticket_id
        WHERE t.status NOT IN ('RESOLVIDO','CANCELADO')
          AND ($1::uuid IS NULL OR t.target_sector_id = $1)
        GROUP BY a.user_id ORDER BY COUNT(*) DESC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AssigneeWIP
	for rows.Next() {
		var w AssigneeWIP
		if err := rows.Scan(&w.UserID, &w.Count); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *reportRepository) Throughput(ctx context.Context, sectorID *string, days int) ([]ThroughputPoint, error) {
	if days <= 0 {
		days = 30
	}
	const query = `
        SELECT date_trunc('day', closed_at) AS day, COUNT(*)
        FROM tickets
        WHERE status = $2 AND closed_at >= NOW() - ($3 || ' days')::interval
          AND ($1::uuid IS NULL OR target_sector_id = $1)
        GROUP BY day ORDER BY day ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, sectorID, domain.TicketStatusResolved, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ThroughputPoint
	for rows.Next() {
		var p ThroughputPoint
		if err := rows.Scan(&p.Day, &p.Resolved); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *reportRepository) BacklogByCategory(ctx context.Context, sectorID *string) ([]CategoryBacklog, error) {
	const query = `
        SELECT category_id, COUNT(*)
        FROM tickets
        WHERE status NOT IN ('RESOLVIDO','CANCELADO')
          AND ($1::uuid IS NULL OR target_sector_id = $1)
        GROUP BY category_id ORDER BY COUNT(*) DESC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CategoryBacklog
	for rows.Next() {
		var b CategoryBacklog
		if err := rows.Scan(&b.CategoryID, &b.Count); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// RoleAssignmentRepository reads user role memberships and access overrides.
type RoleAssignmentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
	ListCoordinators(ctx context.Context, sectorID string) ([]string, error)
	ListOverridesByUser(ctx context.Context, userID string) ([]domain.AccessOverride, error)
}

type roleAssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewRoleAssignmentRepository returns a Postgres-backed implementation.
func NewRoleAssignmentRepository(pool *pgxpool.Pool) RoleAssignmentRepository {
	return &roleAssignmentRepository{pool: pool}
}

func (r *roleAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	const query = `
        SELECT id, user_id, sector_id, role, created_at
        FROM role_assignments WHERE user_id=$1`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.SectorID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ListCoordinators returns user ids holding COORDINATOR or ADMIN in a sector.
func (r *roleAssignmentRepository) ListCoordinators(ctx context.Context, sectorID string) ([]string, error) {
	const query = `
        SELECT DISTINCT user_id FROM role_assignments
        WHERE sector_id=$1 AND role IN ('COORDINATOR','ADMIN')`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func (r *roleAssignmentRepository) ListOverridesByUser(ctx context.Context, userID string) ([]domain.AccessOverride, error) {
	const query = `
        SELECT id, user_id, resource_type, resource_id, effect, created_at
        FROM access_overrides WHERE user_id=$1`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AccessOverride
	for rows.Next() {
		var o domain.AccessOverride
		if err := rows.Scan(&o.ID, &o.UserID, &o.ResourceType, &o.ResourceID, &o.Effect, &o.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// SectorRepository defines persistence access for sectors.
type SectorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Sector, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Sector, error)
}

type sectorRepository struct {
	pool *pgxpool.Pool
}

// NewSectorRepository returns a Postgres-backed implementation.
func NewSectorRepository(pool *pgxpool.Pool) SectorRepository {
	return &sectorRepository{pool: pool}
}

func (r *sectorRepository) GetByID(ctx context.Context, id string) (*domain.Sector, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM sectors WHERE id=$1`
	var sector domain.Sector
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&sector.ID,
		&sector.Name,
		&sector.IsActive,
		&sector.CreatedAt,
		&sector.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sector, nil
}

func (r *sectorRepository) List(ctx context.Context, activeOnly bool) ([]domain.Sector, error) {
	query := `SELECT id, name, is_active, created_at, updated_at FROM sectors`
	if activeOnly {
		query += ` WHERE is_active=true`
	}
	query += ` ORDER BY name ASC`

	rows, err := querierFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Sector
	for rows.Next() {
		var sector domain.Sector
		if err := rows.Scan(
			&sector.ID,
			&sector.Name,
			&sector.IsActive,
			&sector.CreatedAt,
			&sector.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, sector)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// CategoryRepository defines persistence access for the category tree.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a Postgres-backed implementation.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, name, parent_id, description_template, form_schema, is_active, created_at, updated_at`

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id=$1`
	var cat domain.Category
	if err := scanCategory(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active=true ORDER BY name ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := scanCategory(rows, &cat); err != nil {
			return nil, err
		}
		result = append(result, cat)
	}
	return result, rows.Err()
}

func scanCategory(row rowScanner, cat *domain.Category) error {
	var schema []byte
	if err := row.Scan(
		&cat.ID,
		&cat.Name,
		&cat.ParentID,
		&cat.DescriptionTemplate,
		&schema,
		&cat.IsActive,
		&cat.CreatedAt,
		&cat.UpdatedAt,
	); err != nil {
		return err
	}
	if len(schema) > 0 {
		return json.Unmarshal(schema, &cat.FormSchema)
	}
	return nil
}

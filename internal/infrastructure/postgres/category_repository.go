package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "forum/backend/internal/domain/category"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository persists forum categories in PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository constructs a repository.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

var _ domain.Repository = (*CategoryRepository)(nil)

const categoryColumns = `id, name, description, slug, position, icon, active, COALESCE(created_by, 0), created_at, updated_at`

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	const query = `
INSERT INTO categories (name, description, slug, position, icon, active, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), $8, $9)
RETURNING id
`
	err := r.pool.QueryRow(ctx, query,
		c.Name,
		c.Description,
		c.Slug,
		c.Position,
		c.Icon,
		c.Active,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSlug
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetByID fetches a category by id.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategoryRow(row)
}

// GetBySlug fetches a category using its slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	return scanCategoryRow(row)
}

// List returns categories in board order.
func (r *CategoryRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories `
	if !includeInactive {
		query += "WHERE active "
	}
	query += "ORDER BY position, name"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update modifies an existing category.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	const query = `
UPDATE categories
SET name = $2, description = $3, slug = $4, position = $5, icon = $6, active = $7, updated_at = $8
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.Slug,
		c.Position,
		c.Icon,
		c.Active,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSlug
		}
		return fmt.Errorf("update category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate hides a category without removing it.
func (r *CategoryRepository) Deactivate(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `UPDATE categories SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCategoryRow(row pgx.Row) (*domain.Category, error) {
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	return c, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Slug,
		&c.Position,
		&c.Icon,
		&c.Active,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

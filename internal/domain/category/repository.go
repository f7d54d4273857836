package category

import "context"

// Repository defines persistence behaviours for categories.
type Repository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context, includeInactive bool) ([]*Category, error)
	Update(ctx context.Context, category *Category) error
	Deactivate(ctx context.Context, id int64) error
}

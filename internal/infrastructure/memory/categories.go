package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "forum/backend/internal/domain/category"
)

// CategoryRepository keeps categories in a map keyed by id.
type CategoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	categories map[int64]domain.Category
}

// NewCategoryRepository returns an empty repository.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{categories: make(map[int64]domain.Category)}
}

var _ domain.Repository = (*CategoryRepository)(nil)

// Create rejects a slug already in use.
func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(c.Slug, 0) {
		return domain.ErrDuplicateSlug
	}
	r.nextID++
	c.ID = r.nextID
	r.categories[c.ID] = *c
	return nil
}

// GetByID returns ErrNotFound for unknown ids.
func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetBySlug looks a category up by its unique slug.
func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns categories ordered by position then name. Inactive ones
// are skipped unless includeInactive is set.
func (r *CategoryRepository) List(_ context.Context, includeInactive bool) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Category
	for _, c := range r.categories {
		if !includeInactive && !c.Active {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].Name < out[j].Name
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// Update replaces an existing category, keeping slugs unique.
func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.slugTaken(c.Slug, c.ID) {
		return domain.ErrDuplicateSlug
	}
	r.categories[c.ID] = *c
	return nil
}

// Deactivate marks a category inactive without removing it.
func (r *CategoryRepository) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
	r.categories[id] = c
	return nil
}

// slugTaken must be called with the lock held.
func (r *CategoryRepository) slugTaken(slug string, except int64) bool {
	for id, c := range r.categories {
		if id != except && c.Slug == slug {
			return true
		}
	}
	return false
}

package category

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a category could not be located.
	ErrNotFound = errors.New("category not found")
	// ErrDuplicateSlug signals slug uniqueness constraint breaches.
	ErrDuplicateSlug = errors.New("category with slug already exists")
)

// Category groups forums on the board index.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	Position    int       `json:"position"`
	Icon        string    `json:"icon"`
	Active      bool      `json:"active"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Update applies arbitrary field updates to the category.
func (c *Category) Update(name, description, slug, icon *string, position *int, now time.Time) {
	if name != nil {
		c.Name = *name
	}
	if description != nil {
		c.Description = *description
	}
	if slug != nil {
		c.Slug = *slug
	}
	if icon != nil {
		c.Icon = *icon
	}
	if position != nil {
		c.Position = *position
	}
	c.UpdatedAt = now
}

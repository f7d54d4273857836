package category

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	domain "forum/backend/internal/domain/category"
)

var (
	// ErrNameRequired is returned when a category has no name.
	ErrNameRequired = errors.New("category name is required")
	// ErrSlugRequired is returned when an update blanks the slug.
	ErrSlugRequired = errors.New("category slug cannot be empty")
)

// Service encapsulates forum category use cases.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs a category service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// CreateInput contains the payload required for category creation.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Position    int    `json:"position"`
	Icon        string `json:"icon"`
}

// UpdateInput encapsulates partial category updates.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	Position    *int    `json:"position"`
	Icon        *string `json:"icon"`
}

// Create stores a new category. An empty slug is derived from the name.
func (s *Service) Create(ctx context.Context, creatorID int64, input CreateInput) (*domain.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(input.Name)
	}

	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return nil, domain.ErrDuplicateSlug
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.nowFunc().UTC()
	c := &domain.Category{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Slug:        slug,
		Position:    input.Position,
		Icon:        strings.TrimSpace(input.Icon),
		Active:      true,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List retrieves active categories in board order.
func (s *Service) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.List(ctx, false)
}

// Get fetches a category by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies partial updates to a category.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		input.Name = &name
	}
	if input.Slug != nil {
		slug := Slugify(*input.Slug)
		if slug == "" {
			return nil, ErrSlugRequired
		}
		if slug != c.Slug {
			if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
				return nil, domain.ErrDuplicateSlug
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
		input.Slug = &slug
	}

	c.Update(input.Name, input.Description, input.Slug, input.Icon, input.Position, s.nowFunc().UTC())

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete hides a category; its forums stay in storage.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

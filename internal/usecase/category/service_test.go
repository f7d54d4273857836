package category

import (
	"context"
	"testing"

	domain "forum/backend/internal/domain/category"
	"forum/backend/internal/infrastructure/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"General Discussion": "general-discussion",
		"  Go / Rust  ":      "go-rust",
		"Año 2026!":          "año-2026",
		"---":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewCategoryRepository())

	created, err := svc.Create(ctx, 1, CreateInput{Name: "General Discussion", Position: 2})
	require.NoError(t, err)
	assert.Equal(t, "general-discussion", created.Slug)
	assert.True(t, created.Active)

	_, err = svc.Create(ctx, 1, CreateInput{Name: "General   discussion"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = svc.Create(ctx, 1, CreateInput{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)

	other, err := svc.Create(ctx, 1, CreateInput{Name: "Announcements", Position: 1})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID)

	name := "News"
	updated, err := svc.Update(ctx, other.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "News", updated.Name)
	assert.Equal(t, "announcements", updated.Slug)

	slug := "general-discussion"
	_, err = svc.Update(ctx, other.ID, UpdateInput{Slug: &slug})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	require.NoError(t, svc.Delete(ctx, created.ID))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.Delete(ctx, 99), domain.ErrNotFound)
}

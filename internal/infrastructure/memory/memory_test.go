package memory

import (
	"context"
	"testing"
	"time"

	auth "forum/backend/internal/domain/auth"
	category "forum/backend/internal/domain/category"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_EmailsMatchExactly(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	require.NoError(t, repo.Create(ctx, &auth.Account{Email: "Ana@Example.com"}))
	assert.ErrorIs(t, repo.Create(ctx, &auth.Account{Email: "Ana@Example.com"}), auth.ErrEmailExists)

	got, err := repo.GetByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ID)

	_, err = repo.GetByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestAccountRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &auth.Account{Email: "old@x.io", Role: auth.RoleMember, CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &auth.Account{Email: "new@x.io", Role: auth.RoleMember, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &auth.Account{Email: "admin@x.io", Role: auth.RoleAdmin, CreatedAt: base}))

	members, err := repo.List(ctx, auth.AccountFilter{Role: auth.RoleMember})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "new@x.io", members[0].Email)
	assert.Equal(t, "old@x.io", members[1].Email)

	require.NoError(t, repo.UpdateStatus(ctx, 1, auth.StatusSuspended, base))
	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusSuspended, stored.Status)
}

func TestCategoryRepository_SlugsAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository()

	require.NoError(t, repo.Create(ctx, &category.Category{Name: "Zeta", Slug: "zeta", Position: 1, Active: true}))
	require.NoError(t, repo.Create(ctx, &category.Category{Name: "Alpha", Slug: "alpha", Position: 1, Active: true}))
	require.NoError(t, repo.Create(ctx, &category.Category{Name: "First", Slug: "first", Position: 0, Active: true}))
	assert.ErrorIs(t, repo.Create(ctx, &category.Category{Name: "Dup", Slug: "zeta"}), category.ErrDuplicateSlug)

	require.NoError(t, repo.Deactivate(ctx, 1))

	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "First", active[0].Name)
	assert.Equal(t, "Alpha", active[1].Name)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bySlug, err := repo.GetBySlug(ctx, "alpha")
	require.NoError(t, err)
	assert.EqualValues(t, 2, bySlug.ID)

	bySlug.Slug = "first"
	assert.ErrorIs(t, repo.Update(ctx, bySlug), category.ErrDuplicateSlug)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, category.ErrNotFound)
	assert.ErrorIs(t, repo.Deactivate(ctx, 99), category.ErrNotFound)
}

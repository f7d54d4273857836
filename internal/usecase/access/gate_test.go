package access

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "forum/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCodec accepts the tokens in its map and fails every other one with err.
type stubCodec struct {
	valid map[string]domain.Claims
	err   error
}

func (s stubCodec) Issue(domain.Claims, time.Duration) (string, error) { return "", nil }

func (s stubCodec) Verify(token string) (domain.Claims, error) {
	if c, ok := s.valid[token]; ok {
		return c, nil
	}
	return domain.Claims{}, s.err
}

func TestRequireToken_HeaderShapes(t *testing.T) {
	t.Parallel()

	codec := stubCodec{
		valid: map[string]domain.Claims{"good": {SubjectID: 1, Role: domain.RoleMember}},
		err:   domain.ErrMalformedToken,
	}
	gate := RequireToken(codec)

	cases := []struct {
		name   string
		header string
		want   domain.Kind
	}{
		{"missing", "", domain.KindNoToken},
		{"basic scheme", "Basic abc", domain.KindInvalidFormat},
		{"lowercase scheme", "bearer good", domain.KindInvalidFormat},
		{"no separator", "Bearergood", domain.KindInvalidFormat},
		{"empty token", "Bearer ", domain.KindEmptyToken},
		{"blank token", "Bearer    ", domain.KindEmptyToken},
		{"unknown token", "Bearer nope", domain.KindMalformedToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := gate(NewContext(tc.header, nil))
			require.False(t, d.Allowed())
			assert.Equal(t, tc.want, d.Err.Kind)
		})
	}

	d := gate(NewContext("Bearer good", nil))
	require.True(t, d.Allowed())
	claims, ok := d.Context.Claims()
	require.True(t, ok)
	assert.Equal(t, int64(1), claims.SubjectID)
}

func TestRequireToken_MapsCodecErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want domain.Kind
	}{
		"expired":   {domain.ErrExpired, domain.KindExpired},
		"signature": {domain.ErrBadSignature, domain.KindBadSignature},
		"malformed": {domain.ErrMalformedToken, domain.KindMalformedToken},
		"unknown":   {assert.AnError, domain.KindMalformedToken},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := RequireToken(stubCodec{err: tc.err})(NewContext("Bearer x", nil))
			require.False(t, d.Allowed())
			assert.Equal(t, tc.want, d.Err.Kind)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	base := NewContext("", nil)
	gate := RequireRole(domain.RoleAdmin, domain.RoleInstructor)

	d := gate(base)
	assert.Equal(t, domain.KindNoRoleDefined, d.Err.Kind)

	d = gate(base.WithClaims(domain.Claims{SubjectID: 1}))
	assert.Equal(t, domain.KindNoRoleDefined, d.Err.Kind)

	d = gate(base.WithClaims(domain.Claims{SubjectID: 1, Role: domain.RoleMember}))
	assert.Equal(t, domain.KindRoleNotAllowed, d.Err.Kind)

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleInstructor} {
		d = gate(base.WithClaims(domain.Claims{SubjectID: 1, Role: role}))
		assert.True(t, d.Allowed(), role.String())
	}
}

func TestRequireSelfOrRole(t *testing.T) {
	t.Parallel()

	gate := RequireSelfOrRole("id", domain.RoleAdmin)
	ctx := NewContext("", map[string]string{"id": "5"})

	assert.Equal(t, domain.KindNoRoleDefined, gate(ctx).Err.Kind)
	assert.True(t, gate(ctx.WithClaims(domain.Claims{SubjectID: 5, Role: domain.RoleMember})).Allowed())
	assert.True(t, gate(ctx.WithClaims(domain.Claims{SubjectID: 9, Role: domain.RoleAdmin})).Allowed())

	d := gate(ctx.WithClaims(domain.Claims{SubjectID: 9, Role: domain.RoleMember}))
	assert.Equal(t, domain.KindRoleNotAllowed, d.Err.Kind)

	bad := NewContext("", map[string]string{"id": "abc"})
	d = gate(bad.WithClaims(domain.Claims{SubjectID: 9, Role: domain.RoleInstructor}))
	assert.Equal(t, domain.KindRoleNotAllowed, d.Err.Kind)
}

func TestChain_ShortCircuits(t *testing.T) {
	t.Parallel()

	calls := 0
	counting := func(ctx Context) Decision {
		calls++
		return Allow(ctx)
	}
	deny := func(Context) Decision { return Deny(domain.ErrRoleNotAllowed) }

	d := Chain(counting, deny, counting)(NewContext("", nil))
	assert.False(t, d.Allowed())
	assert.Equal(t, 1, calls)

	d = Chain()(NewContext("", nil))
	assert.True(t, d.Allowed())
}

func TestAdminOnly_ThreadsClaims(t *testing.T) {
	t.Parallel()

	codec := stubCodec{
		valid: map[string]domain.Claims{
			"admin":  {SubjectID: 1, Role: domain.RoleAdmin},
			"member": {SubjectID: 2, Role: domain.RoleMember},
			"norole": {SubjectID: 3},
		},
		err: domain.ErrBadSignature,
	}
	gate := AdminOnly(codec, accountsOf(map[int64]domain.Account{
		1: {ID: 1, Role: domain.RoleAdmin, Status: domain.StatusActive},
		2: {ID: 2, Role: domain.RoleMember, Status: domain.StatusActive},
		3: {ID: 3, Status: domain.StatusActive},
	}))

	assert.True(t, gate(NewContext("Bearer admin", nil)).Allowed())
	assert.Equal(t, domain.KindRoleNotAllowed, gate(NewContext("Bearer member", nil)).Err.Kind)
	assert.Equal(t, domain.KindNoRoleDefined, gate(NewContext("Bearer norole", nil)).Err.Kind)
	assert.Equal(t, domain.KindBadSignature, gate(NewContext("Bearer forged", nil)).Err.Kind)
}

func TestContext_Immutable(t *testing.T) {
	t.Parallel()

	params := map[string]string{"id": "1"}
	ctx := NewContext("Bearer x", params)
	params["id"] = "2"
	assert.Equal(t, "1", ctx.Param("id"))

	derived := ctx.WithClaims(domain.Claims{SubjectID: 1})
	_, ok := ctx.Claims()
	assert.False(t, ok)
	_, ok = derived.Claims()
	assert.True(t, ok)
}

// accountsOf serves account lookups from a fixed map.
func accountsOf(accounts map[int64]domain.Account) AccountLookup {
	return func(_ context.Context, id int64) (*domain.Account, error) {
		a, ok := accounts[id]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		return &a, nil
	}
}

func TestRequireActiveAccount(t *testing.T) {
	t.Parallel()

	lookup := accountsOf(map[int64]domain.Account{
		1: {ID: 1, Role: domain.RoleAdmin, Status: domain.StatusActive},
		2: {ID: 2, Role: domain.RoleAdmin, Status: domain.StatusSuspended},
		3: {ID: 3, Role: domain.RoleMember, Status: domain.StatusActive},
	})
	gate := RequireActiveAccount(lookup)
	withClaims := func(id int64, role domain.Role) Context {
		return NewContext("Bearer x", nil).WithClaims(domain.Claims{SubjectID: id, Role: role})
	}

	d := gate(withClaims(1, domain.RoleAdmin))
	require.True(t, d.Allowed())

	d = gate(withClaims(2, domain.RoleAdmin))
	require.False(t, d.Allowed())
	assert.Equal(t, domain.KindAccountNotActive, d.Err.Kind)

	d = gate(withClaims(404, domain.RoleAdmin))
	require.False(t, d.Allowed())
	assert.Equal(t, domain.KindAccountNotFound, d.Err.Kind)

	d = gate(NewContext("Bearer x", nil))
	require.False(t, d.Allowed())
	assert.Equal(t, domain.KindNoToken, d.Err.Kind)

	// stored role wins over the one in the token
	d = Chain(gate, RequireRole(domain.RoleAdmin))(withClaims(3, domain.RoleAdmin))
	require.False(t, d.Allowed())
	assert.Equal(t, domain.KindRoleNotAllowed, d.Err.Kind)
}

func TestRequireActiveAccount_LookupFailureDenies(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	var seen context.Context
	gate := RequireActiveAccount(func(ctx context.Context, _ int64) (*domain.Account, error) {
		seen = ctx
		return nil, boom
	})

	type key struct{}
	reqCtx := context.WithValue(context.Background(), key{}, "req")
	d := gate(NewContext("Bearer x", nil).WithRequest(reqCtx).WithClaims(domain.Claims{SubjectID: 1, Role: domain.RoleAdmin}))
	require.False(t, d.Allowed())
	assert.Equal(t, domain.KindAccountNotActive, d.Err.Kind)
	assert.ErrorIs(t, d.Err, boom)
	assert.Equal(t, "req", seen.Value(key{}))
}

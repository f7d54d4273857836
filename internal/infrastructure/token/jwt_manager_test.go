package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	domain "forum/backend/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func newManager(t *testing.T, now *time.Time) *JWTManager {
	t.Helper()
	return NewJWTManager("test-secret", time.Hour, "forum").WithClock(fixedClock(now))
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	now := epoch
	m := newManager(t, &now)

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleInstructor, domain.RoleMember} {
		tok, err := m.Issue(domain.Claims{SubjectID: 42, Identifier: "ana@forum.test", Role: role}, 0)
		require.NoError(t, err)

		claims, err := m.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.SubjectID)
		assert.Equal(t, "ana@forum.test", claims.Identifier)
		assert.Equal(t, role, claims.Role)
		assert.Equal(t, epoch, claims.IssuedAt.UTC())
		assert.Equal(t, epoch.Add(time.Hour), claims.ExpiresAt.UTC())
		assert.NotEmpty(t, claims.TokenID)
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	now := epoch
	m := newManager(t, &now)
	ttl := 10 * time.Minute
	tok, err := m.Issue(domain.Claims{SubjectID: 1, Identifier: "a@b.c", Role: domain.RoleMember}, ttl)
	require.NoError(t, err)

	now = epoch.Add(ttl - time.Second)
	_, err = m.Verify(tok)
	require.NoError(t, err)

	now = epoch.Add(ttl)
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrExpired)

	now = epoch.Add(ttl + time.Second)
	_, err = m.Verify(tok)
	assert.Equal(t, domain.KindExpired, domain.KindOf(err))
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	now := epoch
	m := newManager(t, &now)
	tok, err := m.Issue(domain.Claims{SubjectID: 7, Identifier: "m@forum.test", Role: domain.RoleMember}, 0)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["role"] = 1
	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = m.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, domain.ErrBadSignature)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	now := epoch
	tok, err := NewJWTManager("other", time.Hour, "").WithClock(fixedClock(&now)).
		Issue(domain.Claims{SubjectID: 1, Role: domain.RoleAdmin}, 0)
	require.NoError(t, err)

	_, err = newManager(t, &now).Verify(tok)
	assert.ErrorIs(t, err, domain.ErrBadSignature)
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	now := epoch
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"uid": 1,
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager(t, &now).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	now := epoch
	m := newManager(t, &now)
	for _, tok := range []string{"", "abc", "a.b", "a.b.c.d", "not.a.jwt"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, "token %q", tok)
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	now := epoch
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 3, "role": 3})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager(t, &now).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

func TestVerify_LegacyRoleID(t *testing.T) {
	t.Parallel()

	now := epoch
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":      9,
		"email":   "prof@forum.test",
		"role_id": 2,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := newManager(t, &now).Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.SubjectID)
	assert.Equal(t, domain.RoleInstructor, claims.Role)
}

func TestVerify_RoleByName(t *testing.T) {
	t.Parallel()

	now := epoch
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  4,
		"role": "admin",
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := newManager(t, &now).Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestVerify_MissingSubject(t *testing.T) {
	t.Parallel()

	now := epoch
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": 1,
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager(t, &now).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

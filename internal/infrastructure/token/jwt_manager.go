package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"
	usecase "forum/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// JWTManager issues and validates HS256 session tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTManager constructs a manager with the provided secret and default lifetime.
func NewJWTManager(secret string, ttl time.Duration, issuer string) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWTManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used to pin expiry boundaries.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// TTL returns the default token lifetime.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Ensure JWTManager implements the TokenCodec interface.
var _ usecase.TokenCodec = (*JWTManager)(nil)

// wireClaims is the JSON payload of a token. Older tokens carried the user id
// as "id" and the role as "role_id"; both are still read and folded into the
// canonical fields by toDomain.
type wireClaims struct {
	UserID   int64        `json:"uid,omitempty"`
	LegacyID int64        `json:"id,omitempty"`
	Email    string       `json:"email"`
	Role     *domain.Role `json:"role,omitempty"`
	RoleID   *domain.Role `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs claims with an expiry of now+ttl. A non-positive ttl selects the default.
func (m *JWTManager) Issue(claims domain.Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	now := m.now().UTC()
	role := claims.Role
	wire := wireClaims{
		UserID: claims.SubjectID,
		Email:  claims.Identifier,
		Role:   &role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.SubjectID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature and expiry and returns the canonical claims.
func (m *JWTManager) Verify(tokenString string) (domain.Claims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return domain.Claims{}, domain.ErrMalformedToken
	}

	wire := &wireClaims{}
	token, err := jwt.ParseWithClaims(tokenString, wire, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Claims{}, classify(err)
	}
	if !token.Valid {
		return domain.Claims{}, domain.ErrMalformedToken
	}

	claims, err := wire.toDomain()
	if err != nil {
		return domain.Claims{}, domain.ErrMalformedToken.WithCause(err)
	}
	return claims, nil
}

// classify maps library errors onto the closed taxonomy. Anything not
// recognised is reported as malformed so callers always deny.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrBadSignature.WithCause(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrExpired.WithCause(err)
	default:
		return domain.ErrMalformedToken.WithCause(err)
	}
}

func (w *wireClaims) toDomain() (domain.Claims, error) {
	subject := w.UserID
	if subject == 0 {
		subject = w.LegacyID
	}
	if subject == 0 && w.Subject != "" {
		n, err := strconv.ParseInt(w.Subject, 10, 64)
		if err != nil {
			return domain.Claims{}, fmt.Errorf("subject %q is not numeric", w.Subject)
		}
		subject = n
	}
	if subject == 0 {
		return domain.Claims{}, errors.New("missing subject")
	}

	role := domain.RoleNone
	if w.Role != nil && *w.Role != domain.RoleNone {
		role = *w.Role
	} else if w.RoleID != nil {
		role = *w.RoleID
	}

	claims := domain.Claims{
		SubjectID:  subject,
		Identifier: w.Email,
		Role:       role,
		TokenID:    w.ID,
	}
	if w.IssuedAt != nil {
		claims.IssuedAt = w.IssuedAt.Time
	}
	if w.ExpiresAt != nil {
		claims.ExpiresAt = w.ExpiresAt.Time
	}
	return claims, nil
}

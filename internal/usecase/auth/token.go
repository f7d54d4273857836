package auth

import (
	"context"
	"time"

	domain "forum/backend/internal/domain/auth"
)

// TokenCodec abstracts token issuance and verification.
type TokenCodec interface {
	Issue(claims domain.Claims, ttl time.Duration) (string, error)
	Verify(token string) (domain.Claims, error)
}

// PasswordHasher hashes and verifies account secrets.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// LoginLimiter throttles repeated failed logins.
type LoginLimiter interface {
	Check(ctx context.Context, identifier, ip string) error
	Fail(ctx context.Context, identifier, ip string) error
	Reset(ctx context.Context, identifier, ip string) error
}

type noopLimiter struct{}

func (noopLimiter) Check(context.Context, string, string) error { return nil }
func (noopLimiter) Fail(context.Context, string, string) error  { return nil }
func (noopLimiter) Reset(context.Context, string, string) error { return nil }

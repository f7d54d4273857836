// Package access holds the route gates. Gates are pure functions over an
// immutable request context; the HTTP adapter lives in httpserver.
package access

import (
	"context"
	"errors"
	"strconv"
	"strings"

	domain "forum/backend/internal/domain/auth"
	usecase "forum/backend/internal/usecase/auth"
)

const bearerPrefix = "Bearer "

// Context is the request view a gate evaluates. Gates never mutate it; an
// allowing gate returns a derived copy.
type Context struct {
	authorization string
	params        map[string]string
	claims        *domain.Claims
	request       context.Context
}

// NewContext builds a context from the raw Authorization header and route params.
func NewContext(authorization string, params map[string]string) Context {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return Context{authorization: authorization, params: copied}
}

// Authorization returns the raw header value.
func (c Context) Authorization() string { return c.authorization }

// Param returns a route parameter.
func (c Context) Param(name string) string { return c.params[name] }

// Claims returns the verified claims, if a token gate has run.
func (c Context) Claims() (domain.Claims, bool) {
	if c.claims == nil {
		return domain.Claims{}, false
	}
	return *c.claims, true
}

// Request returns the request context, or context.Background when none was attached.
func (c Context) Request() context.Context {
	if c.request == nil {
		return context.Background()
	}
	return c.request
}

// WithRequest returns a copy of c bound to the request context used for lookups.
func (c Context) WithRequest(ctx context.Context) Context {
	c.request = ctx
	return c
}

// WithClaims returns a copy of c carrying claims.
func (c Context) WithClaims(claims domain.Claims) Context {
	c.claims = &claims
	return c
}

// Decision is the outcome of a gate.
type Decision struct {
	Context Context
	Err     *domain.Error
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Err == nil }

// Allow continues with ctx.
func Allow(ctx Context) Decision { return Decision{Context: ctx} }

// Deny stops the chain with err.
func Deny(err *domain.Error) Decision { return Decision{Err: err} }

// Gate decides whether a request may proceed.
type Gate func(Context) Decision

// Chain combines gates with short-circuit AND semantics, threading the context.
func Chain(gates ...Gate) Gate {
	return func(ctx Context) Decision {
		for _, gate := range gates {
			d := gate(ctx)
			if !d.Allowed() {
				return d
			}
			ctx = d.Context
		}
		return Allow(ctx)
	}
}

// RequireToken verifies the bearer token and attaches its claims.
func RequireToken(codec usecase.TokenCodec) Gate {
	return func(ctx Context) Decision {
		header := ctx.authorization
		if header == "" {
			return Deny(domain.ErrNoToken)
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			return Deny(domain.ErrInvalidFormat)
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if raw == "" {
			return Deny(domain.ErrEmptyToken)
		}

		claims, err := codec.Verify(raw)
		if err != nil {
			return Deny(tokenError(err))
		}
		return Allow(ctx.WithClaims(claims))
	}
}

func tokenError(err error) *domain.Error {
	switch domain.KindOf(err) {
	case domain.KindExpired:
		return domain.ErrExpired
	case domain.KindBadSignature:
		return domain.ErrBadSignature
	default:
		return domain.ErrMalformedToken
	}
}

// RequireRole allows only claims whose role is in allowed.
func RequireRole(allowed ...domain.Role) Gate {
	return func(ctx Context) Decision {
		claims, ok := ctx.Claims()
		if !ok || claims.Role == domain.RoleNone {
			return Deny(domain.ErrNoRoleDefined)
		}
		if !hasRole(claims.Role, allowed) {
			return Deny(domain.ErrRoleNotAllowed)
		}
		return Allow(ctx)
	}
}

// AccountLookup loads the current state of an account.
type AccountLookup func(ctx context.Context, id int64) (*domain.Account, error)

// RequireActiveAccount re-reads the token subject and denies accounts that no
// longer exist or are not active. The claims role is replaced by the stored
// one, so later role gates see demotions made after the token was issued.
func RequireActiveAccount(lookup AccountLookup) Gate {
	return func(ctx Context) Decision {
		claims, ok := ctx.Claims()
		if !ok {
			return Deny(domain.ErrNoToken)
		}
		account, err := lookup(ctx.Request(), claims.SubjectID)
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			return Deny(domain.ErrAccountNotFound)
		case err != nil:
			return Deny(domain.ErrAccountNotActive.WithMessage("account state could not be confirmed").WithCause(err))
		case !account.Active():
			return Deny(domain.ErrAccountNotActive)
		}
		claims.Role = account.Role
		return Allow(ctx.WithClaims(claims))
	}
}

// RequireSelfOrRole allows the subject named by the route param, or any role in allowed.
func RequireSelfOrRole(param string, allowed ...domain.Role) Gate {
	return func(ctx Context) Decision {
		claims, ok := ctx.Claims()
		if !ok {
			return Deny(domain.ErrNoRoleDefined)
		}
		if id, err := strconv.ParseInt(ctx.Param(param), 10, 64); err == nil && id == claims.SubjectID {
			return Allow(ctx)
		}
		if claims.Role != domain.RoleNone && hasRole(claims.Role, allowed) {
			return Allow(ctx)
		}
		return Deny(domain.ErrRoleNotAllowed.WithMessage("you can only access your own resources"))
	}
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Common compositions.

// Authenticated requires a valid token only.
func Authenticated(codec usecase.TokenCodec) Gate {
	return RequireToken(codec)
}

// The privileged compositions confirm the account is still active with its
// current role before any role check.

// AdminOnly requires an active administrator.
func AdminOnly(codec usecase.TokenCodec, accounts AccountLookup) Gate {
	return Chain(RequireToken(codec), RequireActiveAccount(accounts), RequireRole(domain.RoleAdmin))
}

// AdminOrInstructor requires an active administrator or instructor.
func AdminOrInstructor(codec usecase.TokenCodec, accounts AccountLookup) Gate {
	return Chain(RequireToken(codec), RequireActiveAccount(accounts), RequireRole(domain.RoleAdmin, domain.RoleInstructor))
}

// SelfOrAdmin requires an active account whose id matches param, or an active administrator.
func SelfOrAdmin(codec usecase.TokenCodec, accounts AccountLookup, param string) Gate {
	return Chain(RequireToken(codec), RequireActiveAccount(accounts), RequireSelfOrRole(param, domain.RoleAdmin))
}

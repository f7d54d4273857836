package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"
)

const (
	// DefaultWarnThreshold marks a session as expiring soon.
	DefaultWarnThreshold = 30 * time.Minute
	// MinPasswordLength is the shortest secret accepted on registration and change.
	MinPasswordLength = 6
)

// Options tunes the auth service. Zero values select defaults.
type Options struct {
	TokenTTL      time.Duration
	WarnThreshold time.Duration
	// EmailDomain, when set, restricts self registration to addresses ending with it.
	EmailDomain string
	Limiter     LoginLimiter
}

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	accounts domain.AccountRepository
	tokens   TokenCodec
	hasher   PasswordHasher
	limiter  LoginLimiter
	opts     Options
	nowFunc  func() time.Time
}

// NewService constructs an auth service.
func NewService(accounts domain.AccountRepository, tokens TokenCodec, hasher PasswordHasher, opts Options) *Service {
	if opts.WarnThreshold <= 0 {
		opts.WarnThreshold = DefaultWarnThreshold
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = noopLimiter{}
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		opts:     opts,
		nowFunc:  time.Now,
	}
}

// WithClock overrides the service time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFunc = now
	return s
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

// SessionStatus reports the lifetime of a verified token.
type SessionStatus struct {
	Claims       domain.Claims
	Remaining    time.Duration
	ExpiringSoon bool
}

// TokenInfo is the client-facing expiry summary of a token.
type TokenInfo struct {
	ExpiresAt        time.Time `json:"expires_at"`
	MinutesRemaining int       `json:"minutes_remaining"`
	ExpiringSoon     bool      `json:"expiring_soon"`
}

// Introspection is the result of verifying a token against current account state.
type Introspection struct {
	Valid     bool           `json:"valid"`
	Profile   domain.Profile `json:"profile"`
	TokenInfo TokenInfo      `json:"token_info"`
}

// RegisterInput carries self registration fields.
type RegisterInput struct {
	Name     string
	LastName string
	Email    string
	Password string
	// Type is the requested role name; empty means member.
	Type string
}

// Login validates credentials and returns a token plus profile. Checks run in a
// fixed order: required fields, throttle, existence, status, secret.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	// Identifiers match exactly as stored; only the emptiness check ignores whitespace.
	identifier := creds.Identifier
	if strings.TrimSpace(identifier) == "" || creds.Secret == "" {
		return nil, domain.ErrMissingFields.WithMessage("email and password are required")
	}

	if err := s.limiter.Check(ctx, identifier, creds.ClientIP); err != nil {
		return nil, err
	}

	result, err := s.login(ctx, identifier, creds.Secret)
	if err != nil {
		if domain.KindOf(err) != "" {
			// throttle bookkeeping never masks the login outcome
			_ = s.limiter.Fail(ctx, identifier, creds.ClientIP)
		}
		return nil, err
	}
	// a stale counter only delays the next throttle decision
	_ = s.limiter.Reset(ctx, identifier, creds.ClientIP)
	return result, nil
}

func (s *Service) login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !account.Active() {
		return nil, domain.ErrAccountNotActive
	}
	if !s.hasher.Verify(secret, account.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}

	token, err := s.issue(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Profile: domain.ProfileOf(account)}, nil
}

func (s *Service) issue(account *domain.Account) (string, error) {
	return s.tokens.Issue(domain.Claims{
		SubjectID:  account.ID,
		Identifier: account.Email,
		Role:       account.Role,
	}, s.opts.TokenTTL)
}

// IsSessionValid verifies token and reports its remaining lifetime. A
// non-positive threshold selects the configured warning threshold.
func (s *Service) IsSessionValid(token string, threshold time.Duration) (*SessionStatus, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = s.opts.WarnThreshold
	}
	remaining := claims.Remaining(s.nowFunc())
	return &SessionStatus{
		Claims:       claims,
		Remaining:    remaining,
		ExpiringSoon: remaining < threshold,
	}, nil
}

// Introspect verifies the token and confirms the account still exists and is active.
func (s *Service) Introspect(ctx context.Context, token string) (*Introspection, error) {
	status, err := s.IsSessionValid(token, 0)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, status.Claims.SubjectID)
	if err != nil {
		return nil, err
	}
	if !account.Active() {
		return nil, domain.ErrAccountNotActive
	}
	return &Introspection{
		Valid:   true,
		Profile: domain.ProfileOf(account),
		TokenInfo: TokenInfo{
			ExpiresAt:        status.Claims.ExpiresAt,
			MinutesRemaining: int(status.Remaining / time.Minute),
			ExpiringSoon:     status.ExpiringSoon,
		},
	}, nil
}

// RenewToken issues a fresh token for a still valid session.
func (s *Service) RenewToken(ctx context.Context, token string) (*LoginResult, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, err
	}
	if !account.Active() {
		return nil, domain.ErrAccountNotActive
	}
	fresh, err := s.issue(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: fresh, Profile: domain.ProfileOf(account)}, nil
}

// Register creates a self-registered account and returns its profile.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Profile, error) {
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, domain.ErrMissingFields.WithMessage("name, email and password are required")
	}
	if domainSuffix := strings.ToLower(strings.TrimSpace(s.opts.EmailDomain)); domainSuffix != "" && !strings.HasSuffix(strings.ToLower(email), domainSuffix) {
		return nil, domain.ErrMissingFields.WithMessage("email must belong to " + domainSuffix)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, passwordTooShort()
	}

	role, err := domain.ParseRole(input.Type)
	if err != nil {
		return nil, domain.ErrInvalidRole.WithCause(err)
	}
	if role == domain.RoleNone {
		role = domain.RoleMember
	}
	if role == domain.RoleAdmin {
		return nil, domain.ErrInvalidRole.WithMessage("administrators cannot self register")
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFunc().UTC()
	account := &domain.Account{
		Email:        email,
		Name:         name,
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		Status:       domain.StatusActive,
		Validation:   InitialValidation(role),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	profile := domain.ProfileOf(account)
	return &profile, nil
}

// ChangePassword replaces the account secret after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	if current == "" || next == "" {
		return domain.ErrMissingFields.WithMessage("current and new password are required")
	}
	if len(next) < MinPasswordLength {
		return passwordTooShort()
	}
	if current == next {
		return domain.ErrPasswordPolicy.WithMessage("new password must differ from the current one")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return domain.ErrInvalidCredential.WithMessage("current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.UpdatePassword(ctx, accountID, hash, s.nowFunc().UTC())
}

// CheckEmail reports whether an account already uses email.
func (s *Service) CheckEmail(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, domain.ErrMissingFields.WithMessage("email is required")
	}
	_, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}

// InitialValidation is the validation state a new account of role starts in.
func InitialValidation(role domain.Role) domain.ValidationStatus {
	if role == domain.RoleInstructor {
		return domain.ValidationPending
	}
	return domain.ValidationNotRequired
}

func passwordTooShort() error {
	return domain.ErrPasswordPolicy.WithMessage(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
}

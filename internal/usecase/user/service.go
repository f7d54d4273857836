package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"
	authuc "forum/backend/internal/usecase/auth"
)

// Service provides account administration use cases.
type Service struct {
	repo           domain.AccountRepository
	hasher         authuc.PasswordHasher
	protectedEmail string
	nowFunc        func() time.Time
}

// NewService constructs a user service. protectedEmail names the primary
// administrator, who can never be deactivated.
func NewService(repo domain.AccountRepository, hasher authuc.PasswordHasher, protectedEmail string) *Service {
	return &Service{
		repo:           repo,
		hasher:         hasher,
		protectedEmail: strings.TrimSpace(protectedEmail),
		nowFunc:        time.Now,
	}
}

// Filter captures supported filters for listing accounts.
type Filter struct {
	Role   string
	Status string
}

// CreateInput defines the payload to create an account administratively.
type CreateInput struct {
	Email    string
	Name     string
	LastName string
	Password string
	Role     string
}

// UpdateInput defines a partial account update.
type UpdateInput struct {
	Email    *string
	Name     *string
	LastName *string
	Role     *string
	Status   *string
}

// List returns accounts matching the supplied filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.Account, error) {
	domainFilter := domain.AccountFilter{}
	if filter.Role != "" {
		role, err := domain.ParseRole(filter.Role)
		if err != nil {
			return nil, domain.ErrInvalidRole.WithCause(err)
		}
		domainFilter.Role = role
	}
	if filter.Status != "" {
		status, err := parseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		domainFilter.Status = status
	}
	return s.list(ctx, domainFilter)
}

// ListActive returns active accounts.
func (s *Service) ListActive(ctx context.Context) ([]*domain.Account, error) {
	return s.list(ctx, domain.AccountFilter{Status: domain.StatusActive})
}

// PendingInstructors returns instructors awaiting validation.
func (s *Service) PendingInstructors(ctx context.Context) ([]*domain.Account, error) {
	return s.list(ctx, domain.AccountFilter{Role: domain.RoleInstructor, Validation: domain.ValidationPending})
}

// ListByType returns active accounts of the named role.
func (s *Service) ListByType(ctx context.Context, accountType string) ([]*domain.Account, error) {
	role, err := domain.ParseRole(accountType)
	if err != nil || role == domain.RoleNone {
		return nil, domain.ErrInvalidRole.WithMessage(fmt.Sprintf("unknown account type %q", accountType))
	}
	return s.list(ctx, domain.AccountFilter{Role: role, Status: domain.StatusActive})
}

func (s *Service) list(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	accounts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return sanitizeAccounts(accounts), nil
}

// Get retrieves a single account by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeAccount(account), nil
}

// Create persists a new account with any role.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Account, error) {
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, domain.ErrMissingFields.WithMessage("name, email and password are required")
	}
	if len(input.Password) < authuc.MinPasswordLength {
		return nil, domain.ErrPasswordPolicy.WithMessage(fmt.Sprintf("password must be at least %d characters", authuc.MinPasswordLength))
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, domain.ErrInvalidRole.WithCause(err)
	}
	if role == domain.RoleNone {
		role = domain.RoleMember
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
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
		Validation:   authuc.InitialValidation(role),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return sanitizeAccount(account), nil
}

// Update modifies an account. Only administrators may change role or status.
func (s *Service) Update(ctx context.Context, actor domain.Claims, id int64, input UpdateInput) (*domain.Account, error) {
	if (input.Role != nil || input.Status != nil) && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrRoleNotAllowed.WithMessage("only administrators can change role or status")
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, domain.ErrMissingFields.WithMessage("email cannot be empty")
		}
		account.Email = email
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.ErrMissingFields.WithMessage("name cannot be empty")
		}
		account.Name = name
	}
	if input.LastName != nil {
		account.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		role, err := domain.ParseRole(*input.Role)
		if err != nil || role == domain.RoleNone {
			return nil, domain.ErrInvalidRole
		}
		if role != account.Role {
			account.Validation = authuc.InitialValidation(role)
		}
		account.Role = role
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		if status != domain.StatusActive && s.isProtected(account) {
			return nil, domain.ErrProtectedAccount
		}
		account.Status = status
	}

	account.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return sanitizeAccount(account), nil
}

// SetStatus changes the lifecycle status of an account.
func (s *Service) SetStatus(ctx context.Context, id int64, raw string) (*domain.Account, error) {
	status, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status != domain.StatusActive && s.isProtected(account) {
		return nil, domain.ErrProtectedAccount
	}
	now := s.nowFunc().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		return nil, err
	}
	account.Status = status
	account.UpdatedAt = now
	return sanitizeAccount(account), nil
}

// Deactivate soft deletes an account by marking it inactive.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	_, err := s.SetStatus(ctx, id, string(domain.StatusInactive))
	return err
}

// ResetPassword replaces an account secret without the current one; reserved
// for administrators acting on other accounts.
func (s *Service) ResetPassword(ctx context.Context, id int64, next string) error {
	if len(next) < authuc.MinPasswordLength {
		return domain.ErrPasswordPolicy.WithMessage(fmt.Sprintf("password must be at least %d characters", authuc.MinPasswordLength))
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash, s.nowFunc().UTC())
}

// ValidateInstructor approves or rejects a pending instructor.
func (s *Service) ValidateInstructor(ctx context.Context, validatorID, id int64, approve bool, comment string) (*domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Role != domain.RoleInstructor {
		return nil, domain.ErrNotInstructor
	}
	if account.Validation != domain.ValidationPending {
		return nil, domain.ErrAlreadyValidated
	}

	outcome := domain.ValidationRejected
	if approve {
		outcome = domain.ValidationApproved
	}
	now := s.nowFunc().UTC()
	comment = strings.TrimSpace(comment)
	if err := s.repo.RecordValidation(ctx, id, outcome, validatorID, comment, now); err != nil {
		return nil, err
	}

	account.Validation = outcome
	account.ValidatedBy = &validatorID
	account.ValidatedAt = &now
	account.ValidationNote = comment
	account.UpdatedAt = now
	return sanitizeAccount(account), nil
}

func (s *Service) isProtected(a *domain.Account) bool {
	return s.protectedEmail != "" && a.Email == s.protectedEmail
}

func parseStatus(raw string) (domain.AccountStatus, error) {
	status := domain.AccountStatus(strings.TrimSpace(strings.ToLower(raw)))
	switch status {
	case "activo":
		status = domain.StatusActive
	case "inactivo":
		status = domain.StatusInactive
	case "suspendido":
		status = domain.StatusSuspended
	}
	if !status.Valid() {
		return "", domain.ErrInvalidStatus
	}
	return status, nil
}

func sanitizeAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	copy := *a
	copy.PasswordHash = ""
	return &copy
}

func sanitizeAccounts(items []*domain.Account) []*domain.Account {
	out := make([]*domain.Account, 0, len(items))
	for _, item := range items {
		out = append(out, sanitizeAccount(item))
	}
	return out
}

// Package memory provides mutex-guarded in-process repositories used by tests
// and by the server when STORAGE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "forum/backend/internal/domain/auth"
)

// AccountRepository keeps accounts in a map keyed by id.
type AccountRepository struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]domain.Account
}

// NewAccountRepository returns an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[int64]domain.Account)}
}

var _ domain.AccountRepository = (*AccountRepository)(nil)

// Create assigns the next id and stores a copy. Emails must be unique.
func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == account.Email {
			return domain.ErrEmailExists
		}
	}
	r.nextID++
	account.ID = r.nextID
	r.accounts[account.ID] = *account
	return nil
}

// GetByEmail matches the stored email exactly.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// GetByID returns ErrAccountNotFound for unknown ids.
func (r *AccountRepository) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

// List returns accounts matching the filter, newest first.
func (r *AccountRepository) List(_ context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Account
	for _, a := range r.accounts {
		if filter.Role != domain.RoleNone && a.Role != filter.Role {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Validation != "" && a.Validation != filter.Validation {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces the mutable fields of an existing account, keeping emails unique.
func (r *AccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for id, a := range r.accounts {
		if id != account.ID && a.Email == account.Email {
			return domain.ErrEmailExists
		}
	}
	current.Email = account.Email
	current.Name = account.Name
	current.LastName = account.LastName
	current.Role = account.Role
	current.Status = account.Status
	current.Validation = account.Validation
	current.UpdatedAt = account.UpdatedAt
	r.accounts[account.ID] = current
	return nil
}

// UpdatePassword stores a new hash.
func (r *AccountRepository) UpdatePassword(_ context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	return r.mutate(id, func(a *domain.Account) {
		a.PasswordHash = passwordHash
		a.UpdatedAt = updatedAt
	})
}

// UpdateStatus changes the lifecycle status.
func (r *AccountRepository) UpdateStatus(_ context.Context, id int64, status domain.AccountStatus, updatedAt time.Time) error {
	return r.mutate(id, func(a *domain.Account) {
		a.Status = status
		a.UpdatedAt = updatedAt
	})
}

// RecordValidation stores an instructor validation decision.
func (r *AccountRepository) RecordValidation(_ context.Context, id int64, outcome domain.ValidationStatus, validatorID int64, comment string, at time.Time) error {
	return r.mutate(id, func(a *domain.Account) {
		a.Validation = outcome
		a.ValidatedBy = &validatorID
		a.ValidatedAt = &at
		a.ValidationNote = comment
		a.UpdatedAt = at
	})
}

func (r *AccountRepository) mutate(id int64, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	fn(&a)
	r.accounts[id] = a
	return nil
}

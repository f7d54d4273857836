package auth

import (
	"context"
	"time"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*Account, error)
	Update(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id int64, status AccountStatus, updatedAt time.Time) error
	RecordValidation(ctx context.Context, id int64, outcome ValidationStatus, validatorID int64, comment string, at time.Time) error
}

// AccountFilter allows narrowing account queries. Zero values match all.
type AccountFilter struct {
	Role       Role
	Status     AccountStatus
	Validation ValidationStatus
}

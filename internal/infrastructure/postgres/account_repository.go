package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository persists accounts in PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

var _ domain.AccountRepository = (*AccountRepository)(nil)

const accountColumns = `id, email, name, last_name, role, account_status, validation_status,
validated_by, validated_at, validation_comment, password_hash, created_at, updated_at`

// Create inserts a new account and assigns its id.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
INSERT INTO accounts (email, name, last_name, role, account_status, validation_status, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`
	err := r.pool.QueryRow(ctx, query,
		account.Email,
		account.Name,
		account.LastName,
		account.Role,
		account.Status,
		account.Validation,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByEmail fetches an account by its exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccountRow(row)
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccountRow(row)
}

// List returns accounts filtered by the provided criteria, newest first.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != domain.RoleNone {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("account_status = $%d", len(args)))
	}
	if filter.Validation != "" {
		args = append(args, filter.Validation)
		where = append(where, fmt.Sprintf("validation_status = $%d", len(args)))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts `
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + " "
	}
	query += "ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Update modifies profile, role and status fields of an existing account.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
UPDATE accounts
SET email = $2, name = $3, last_name = $4, role = $5, account_status = $6, validation_status = $7, updated_at = $8
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.LastName,
		account.Role,
		account.Status,
		account.Validation,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash in a single statement.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, passwordHash, updatedAt)
}

// UpdateStatus sets the lifecycle status of an account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus, updatedAt time.Time) error {
	const query = `UPDATE accounts SET account_status = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, status, updatedAt)
}

// RecordValidation stores the outcome of an instructor review.
func (r *AccountRepository) RecordValidation(ctx context.Context, id int64, outcome domain.ValidationStatus, validatorID int64, comment string, at time.Time) error {
	const query = `
UPDATE accounts
SET validation_status = $2, validated_by = $3, validated_at = $4, validation_comment = $5, updated_at = $4
WHERE id = $1
`
	return r.exec(ctx, query, id, outcome, validatorID, at, comment)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccountRow(row pgx.Row) (*domain.Account, error) {
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.LastName,
		&a.Role,
		&a.Status,
		&a.Validation,
		&a.ValidatedBy,
		&a.ValidatedAt,
		&a.ValidationNote,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

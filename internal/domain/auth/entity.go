package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role identifies the privileges assigned to an account.
type Role int

const (
	// RoleNone is the zero value; it never grants access.
	RoleNone Role = 0
	// RoleAdmin represents a forum administrator.
	RoleAdmin Role = 1
	// RoleInstructor represents a teaching account.
	RoleInstructor Role = 2
	// RoleMember represents a regular (student) account.
	RoleMember Role = 3
)

var roleNames = map[Role]string{
	RoleAdmin:      "admin",
	RoleInstructor: "instructor",
	RoleMember:     "member",
}

// String returns the canonical name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "none"
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole accepts a numeric id ("1"), a canonical name ("admin") or one of
// the legacy account type names ("administrador", "profesor", "estudiante").
func ParseRole(raw string) (Role, error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	if value == "" {
		return RoleNone, nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		role := Role(n)
		if !role.Valid() {
			return RoleNone, fmt.Errorf("%w: %d", ErrInvalidRole, n)
		}
		return role, nil
	}
	switch value {
	case "admin", "administrator", "administrador":
		return RoleAdmin, nil
	case "instructor", "profesor", "teacher":
		return RoleInstructor, nil
	case "member", "student", "estudiante":
		return RoleMember, nil
	}
	return RoleNone, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// UnmarshalJSON accepts numbers, numeric strings and role names.
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleNone
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Role(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role: %w", err)
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// ValidationStatus tracks administrative approval of instructor accounts.
type ValidationStatus string

const (
	ValidationNotRequired ValidationStatus = "not_required"
	ValidationPending     ValidationStatus = "pending"
	ValidationApproved    ValidationStatus = "approved"
	ValidationRejected    ValidationStatus = "rejected"
)

// Account models the authentication entity persisted in storage.
type Account struct {
	ID             int64            `json:"id"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	LastName       string           `json:"last_name"`
	Role           Role             `json:"role"`
	Status         AccountStatus    `json:"account_status"`
	Validation     ValidationStatus `json:"validation_status"`
	ValidatedBy    *int64           `json:"validated_by,omitempty"`
	ValidatedAt    *time.Time       `json:"validated_at,omitempty"`
	ValidationNote string           `json:"validation_comment,omitempty"`
	PasswordHash   string           `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Active reports whether the account may hold a session.
func (a *Account) Active() bool {
	return a != nil && a.Status == StatusActive
}

// Profile is the redacted view of an account handed to clients.
type Profile struct {
	ID       int64         `json:"id"`
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	LastName string        `json:"last_name"`
	Role     Role          `json:"role"`
	RoleName string        `json:"role_name"`
	Status   AccountStatus `json:"account_status"`
}

// ProfileOf builds the redacted profile of an account.
func ProfileOf(a *Account) Profile {
	return Profile{
		ID:       a.ID,
		Email:    a.Email,
		Name:     a.Name,
		LastName: a.LastName,
		Role:     a.Role,
		RoleName: a.Role.String(),
		Status:   a.Status,
	}
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Identifier string
	Secret     string
	// ClientIP is optional; it only scopes login throttling.
	ClientIP string
}

// Claims is the canonical, decoded content of a session token.
type Claims struct {
	SubjectID  int64
	Identifier string
	Role       Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
	TokenID    string
}

// Remaining returns the lifetime left at now, never negative.
func (c Claims) Remaining(now time.Time) time.Duration {
	left := c.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

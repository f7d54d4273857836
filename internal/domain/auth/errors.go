package auth

import (
	"errors"
	"net/http"
)

// Kind is the machine-checkable reason attached to every auth failure.
type Kind string

const (
	KindNoToken           Kind = "NO_TOKEN"
	KindInvalidFormat     Kind = "INVALID_TOKEN_FORMAT"
	KindEmptyToken        Kind = "EMPTY_TOKEN"
	KindMalformedToken    Kind = "MALFORMED_TOKEN"
	KindBadSignature      Kind = "BAD_SIGNATURE"
	KindExpired           Kind = "TOKEN_EXPIRED"
	KindNoRoleDefined     Kind = "NO_ROLE_DEFINED"
	KindRoleNotAllowed    Kind = "ROLE_NOT_ALLOWED"
	KindAccountNotFound   Kind = "ACCOUNT_NOT_FOUND"
	KindAccountNotActive  Kind = "ACCOUNT_NOT_ACTIVE"
	KindInvalidCredential Kind = "INVALID_CREDENTIAL"
	KindMissingFields     Kind = "MISSING_FIELDS"
	KindEmailExists       Kind = "EMAIL_EXISTS"
	KindInvalidRole       Kind = "INVALID_ROLE"
	KindPasswordPolicy    Kind = "PASSWORD_POLICY"
	KindRateLimited       Kind = "RATE_LIMITED"
)

var kindStatus = map[Kind]int{
	KindNoToken:           http.StatusUnauthorized,
	KindInvalidFormat:     http.StatusUnauthorized,
	KindEmptyToken:        http.StatusUnauthorized,
	KindMalformedToken:    http.StatusUnauthorized,
	KindBadSignature:      http.StatusUnauthorized,
	KindExpired:           http.StatusUnauthorized,
	KindNoRoleDefined:     http.StatusForbidden,
	KindRoleNotAllowed:    http.StatusForbidden,
	KindAccountNotFound:   http.StatusNotFound,
	KindAccountNotActive:  http.StatusForbidden,
	KindInvalidCredential: http.StatusUnauthorized,
	KindMissingFields:     http.StatusBadRequest,
	KindEmailExists:       http.StatusConflict,
	KindInvalidRole:       http.StatusBadRequest,
	KindPasswordPolicy:    http.StatusBadRequest,
	KindRateLimited:       http.StatusTooManyRequests,
}

// Status returns the HTTP status code fixed for the kind.
func (k Kind) Status() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is the closed error type of the auth subsystem.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpired) holds
// for every expired-token failure regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy of e with a different display message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// KindOf extracts the kind of an auth error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrNoToken           = &Error{Kind: KindNoToken, Message: "authorization token not provided"}
	ErrInvalidFormat     = &Error{Kind: KindInvalidFormat, Message: "authorization header must be: Bearer {token}"}
	ErrEmptyToken        = &Error{Kind: KindEmptyToken, Message: "token missing after Bearer scheme"}
	ErrMalformedToken    = &Error{Kind: KindMalformedToken, Message: "token is malformed"}
	ErrBadSignature      = &Error{Kind: KindBadSignature, Message: "token signature is invalid"}
	ErrExpired           = &Error{Kind: KindExpired, Message: "session expired, please log in again"}
	ErrNoRoleDefined     = &Error{Kind: KindNoRoleDefined, Message: "account has no role defined"}
	ErrRoleNotAllowed    = &Error{Kind: KindRoleNotAllowed, Message: "access denied for this role"}
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound, Message: "account not found"}
	ErrAccountNotActive  = &Error{Kind: KindAccountNotActive, Message: "account is inactive or suspended"}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential, Message: "invalid credentials"}
	ErrMissingFields     = &Error{Kind: KindMissingFields, Message: "required fields are missing"}
	ErrEmailExists       = &Error{Kind: KindEmailExists, Message: "email already registered"}
	ErrInvalidRole       = &Error{Kind: KindInvalidRole, Message: "invalid role"}
	ErrPasswordPolicy    = &Error{Kind: KindPasswordPolicy, Message: "password does not meet policy"}
	ErrRateLimited       = &Error{Kind: KindRateLimited, Message: "too many login attempts, try again later"}
)

var (
	// ErrProtectedAccount guards the primary administrator from deactivation.
	ErrProtectedAccount = errors.New("the primary administrator cannot be deactivated")
	// ErrAlreadyValidated indicates the instructor is no longer pending.
	ErrAlreadyValidated = errors.New("instructor is not pending validation")
	// ErrNotInstructor indicates a validation request against a non-instructor.
	ErrNotInstructor = errors.New("account is not an instructor")
	// ErrInvalidStatus indicates an unknown account status.
	ErrInvalidStatus = errors.New("invalid account status")
)

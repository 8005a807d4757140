package infrastructure

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrCodeNotFound = errors.New("verification code not found or expired")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("invalid verification code")

	ErrResetTokenInvalid = errors.New("invalid or expired token")
	ErrResetTokenExpired = errors.New("token expired")
)

// ValidationError reports malformed or missing input. It is always raised
// before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConstraintViolation is returned by the store layer when an insert trips a
// unique constraint. Field names the conflicting column so callers can tell
// an email conflict from an account-number conflict without parsing driver
// messages.
type ConstraintViolation struct {
	Field string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("unique constraint violated on %s", e.Field)
}

// AsConstraintViolation unwraps err into a ConstraintViolation, if it is one.
func AsConstraintViolation(err error) (*ConstraintViolation, bool) {
	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}

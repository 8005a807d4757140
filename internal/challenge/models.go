package challenge

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationCode is the outstanding email-verification challenge for an
// address that has no account yet. At most one row exists per email; a new
// request overwrites code hash and expiry alike.
type RegistrationCode struct {
	Email     string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (c *RegistrationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ResetTicket is the outstanding password-reset challenge for an account.
// Issuing a new ticket removes every prior one for the same account.
type ResetTicket struct {
	AccountID uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t *ResetTicket) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

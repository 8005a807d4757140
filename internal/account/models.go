package account

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Account is the identity record. Email and AccountNumber are unique; the
// database constraints are the final authority on that.
type Account struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FullName      sql.NullString
	AccountNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package challenge

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"sweetbaker/infrastructure"
)

type RegistrationStore interface {
	UpsertRegistrationCode(ctx context.Context, tx *sql.Tx, code *RegistrationCode) error
	RegistrationCodeByEmail(ctx context.Context, tx *sql.Tx, email string) (*RegistrationCode, error)
	DeleteRegistrationCode(ctx context.Context, tx *sql.Tx, email string) error
}

type ResetStore interface {
	StoreResetTicket(ctx context.Context, tx *sql.Tx, ticket *ResetTicket) error
	ResetTicketByTokenHash(ctx context.Context, tx *sql.Tx, tokenHash string) (*ResetTicket, error)
	DeleteResetTickets(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) error
}

type PostgresStorage struct {
	db *sql.DB
}

func NewChallengePostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) q(tx *sql.Tx) infrastructure.DBTX {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *PostgresStorage) UpsertRegistrationCode(ctx context.Context, tx *sql.Tx, code *RegistrationCode) error {
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO registration_codes (email, code_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email)
		DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()`,
		code.Email, code.CodeHash, code.ExpiresAt)
	return err
}

// RegistrationCodeByEmail locks the row for the duration of the surrounding
// transaction so a concurrent registration for the same email serializes on
// the challenge instead of racing past the check.
func (s *PostgresStorage) RegistrationCodeByEmail(ctx context.Context, tx *sql.Tx, email string) (*RegistrationCode, error) {
	code := &RegistrationCode{}
	err := s.q(tx).QueryRowContext(ctx, `
		SELECT email, code_hash, created_at, expires_at
		FROM registration_codes
		WHERE email = $1
		FOR UPDATE`,
		email).Scan(&code.Email, &code.CodeHash, &code.CreatedAt, &code.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrNotFound
		}
		return nil, err
	}
	return code, nil
}

func (s *PostgresStorage) DeleteRegistrationCode(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := s.q(tx).ExecContext(ctx, "DELETE FROM registration_codes WHERE email = $1", email)
	return err
}

func (s *PostgresStorage) StoreResetTicket(ctx context.Context, tx *sql.Tx, ticket *ResetTicket) error {
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO password_resets (account_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		ticket.AccountID, ticket.TokenHash, ticket.ExpiresAt)
	return err
}

// ResetTicketByTokenHash locks the matching ticket so that of two concurrent
// redemptions of the same token exactly one proceeds; the other blocks until
// commit and then sees no row.
func (s *PostgresStorage) ResetTicketByTokenHash(ctx context.Context, tx *sql.Tx, tokenHash string) (*ResetTicket, error) {
	ticket := &ResetTicket{}
	err := s.q(tx).QueryRowContext(ctx, `
		SELECT account_id, token_hash, created_at, expires_at
		FROM password_resets
		WHERE token_hash = $1
		FOR UPDATE`,
		tokenHash).Scan(&ticket.AccountID, &ticket.TokenHash, &ticket.CreatedAt, &ticket.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *PostgresStorage) DeleteResetTickets(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) error {
	_, err := s.q(tx).ExecContext(ctx, "DELETE FROM password_resets WHERE account_id = $1", accountID)
	return err
}

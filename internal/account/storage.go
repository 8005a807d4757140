package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sweetbaker/infrastructure"
)

type Saver interface {
	SaveAccount(ctx context.Context, tx *sql.Tx, account *Account) error
}

type Updater interface {
	UpdatePasswordHash(ctx context.Context, tx *sql.Tx, id uuid.UUID, passwordHash string) error
}

type Provider interface {
	AccountByEmail(ctx context.Context, tx *sql.Tx, email string) (*Account, error)
	AccountByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Account, error)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewAccountPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// q picks the transactional handle when one is supplied.
func (s *PostgresStorage) q(tx *sql.Tx) infrastructure.DBTX {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *PostgresStorage) SaveAccount(ctx context.Context, tx *sql.Tx, account *Account) error {
	err := s.q(tx).QueryRowContext(ctx, `
		INSERT INTO accounts (email, password_hash, full_name, account_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		account.Email, account.PasswordHash, account.FullName, account.AccountNumber,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return translateConstraint(err)
	}
	return nil
}

func (s *PostgresStorage) AccountByEmail(ctx context.Context, tx *sql.Tx, email string) (*Account, error) {
	return s.scanAccount(s.q(tx).QueryRowContext(ctx, `
		SELECT id, email, password_hash, full_name, account_number, created_at, updated_at
		FROM accounts
		WHERE email = $1`,
		email))
}

func (s *PostgresStorage) AccountByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Account, error) {
	return s.scanAccount(s.q(tx).QueryRowContext(ctx, `
		SELECT id, email, password_hash, full_name, account_number, created_at, updated_at
		FROM accounts
		WHERE id = $1`,
		id))
}

func (s *PostgresStorage) UpdatePasswordHash(ctx context.Context, tx *sql.Tx, id uuid.UUID, passwordHash string) error {
	res, err := s.q(tx).ExecContext(ctx, `
		UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return infrastructure.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) scanAccount(row *sql.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.AccountNumber, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// translateConstraint turns a unique-violation driver error into the tagged
// domain error. Any other failure passes through untouched.
func translateConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		field := "email"
		if strings.Contains(pqErr.Constraint, "account_number") {
			field = "account_number"
		}
		return &infrastructure.ConstraintViolation{Field: field}
	}
	return err
}

package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"

	"sweetbaker/infrastructure"
	"sweetbaker/internal/account"
	"sweetbaker/internal/challenge"
	"sweetbaker/pkg/jwt"
)

const (
	codeLength = 6
	codeTTL    = 15 * time.Minute
	resetTTL   = 30 * time.Minute

	PasswordMinLength      = 8
	PasswordMinEntropyBits = 30
)

// Mailer is the slice of the mail collaborator the flows need.
type Mailer interface {
	SendVerificationCode(to, code string) error
	SendResetLink(to, name, link string) error
	SendWelcome(to, name string) error
}

type Service struct {
	db *sql.DB

	accountSaver    account.Saver
	accountProvider account.Provider
	accountUpdater  account.Updater

	registrations challenge.RegistrationStore
	resets        challenge.ResetStore

	sender Mailer
	tokens *jwt.JWT

	resetURLBase string
}

func NewService(
	db *sql.DB,
	accountSaver account.Saver,
	accountProvider account.Provider,
	accountUpdater account.Updater,
	registrations challenge.RegistrationStore,
	resets challenge.ResetStore,
	sender Mailer,
	tokens *jwt.JWT,
	resetURLBase string,
) *Service {
	return &Service{
		db:              db,
		accountSaver:    accountSaver,
		accountProvider: accountProvider,
		accountUpdater:  accountUpdater,
		registrations:   registrations,
		resets:          resets,
		sender:          sender,
		tokens:          tokens,
		resetURLBase:    resetURLBase,
	}
}

// RequestCode issues a fresh verification challenge for an unregistered email
// and mails the code. A prior challenge for the same address is overwritten,
// expiry included. Only the fingerprint of the code is stored.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	_, err = s.accountProvider.AccountByEmail(ctx, nil, normalized)
	if err == nil {
		return infrastructure.ErrAlreadyRegistered
	}
	if !errors.Is(err, infrastructure.ErrNotFound) {
		return err
	}

	code, err := infrastructure.GenerateNumericCode(codeLength)
	if err != nil {
		return err
	}

	err = s.registrations.UpsertRegistrationCode(ctx, nil, &challenge.RegistrationCode{
		Email:     normalized,
		CodeHash:  infrastructure.Fingerprint(code),
		ExpiresAt: time.Now().Add(codeTTL),
	})
	if err != nil {
		return err
	}

	// The user cannot proceed without the code, so a send failure surfaces.
	return s.sender.SendVerificationCode(normalized, code)
}

type RegisterParams struct {
	Email            string
	Password         string
	FullName         string
	AccountNumber    string
	VerificationCode string
}

// Register redeems a verification code and creates the account. The challenge
// lookup, account insert, and challenge deletion run in one transaction; the
// unique constraints on email and account number are the final authority on
// duplicates, so a concurrent twin registration surfaces as a
// ConstraintViolation rather than a half-applied state.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*account.Account, error) {
	normalized, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	suppliedCode := strings.TrimSpace(params.VerificationCode)
	if suppliedCode == "" {
		return nil, infrastructure.Invalid("verification code is required")
	}
	if err := checkPassword(params.Password); err != nil {
		return nil, err
	}

	passwordHash, err := infrastructure.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	accountNumber := strings.TrimSpace(params.AccountNumber)
	if accountNumber == "" {
		accountNumber, err = generateAccountNumber()
		if err != nil {
			return nil, err
		}
	}

	fullName := strings.TrimSpace(params.FullName)

	created := &account.Account{
		Email:         normalized,
		PasswordHash:  passwordHash,
		FullName:      sql.NullString{String: fullName, Valid: fullName != ""},
		AccountNumber: accountNumber,
	}

	var staleChallenge bool
	err = infrastructure.WithTransaction(s.db, ctx, func(tx *sql.Tx) error {
		code, err := s.registrations.RegistrationCodeByEmail(ctx, tx, normalized)
		if err != nil {
			if errors.Is(err, infrastructure.ErrNotFound) {
				return infrastructure.ErrCodeNotFound
			}
			return err
		}

		if code.Expired(time.Now()) {
			// Commit the lazy cleanup, then fail the attempt.
			staleChallenge = true
			return s.registrations.DeleteRegistrationCode(ctx, tx, normalized)
		}

		if code.CodeHash != infrastructure.Fingerprint(suppliedCode) {
			return infrastructure.ErrCodeMismatch
		}

		if err := s.accountSaver.SaveAccount(ctx, tx, created); err != nil {
			return err
		}

		return s.registrations.DeleteRegistrationCode(ctx, tx, normalized)
	})
	if err != nil {
		return nil, err
	}
	if staleChallenge {
		return nil, infrastructure.ErrCodeExpired
	}

	s.sendWelcome(created.Email, fullName)

	return created, nil
}

// sendWelcome dispatches the welcome message without blocking the caller.
// One retry, then a log line; registration already succeeded either way.
func (s *Service) sendWelcome(email, name string) {
	go func() {
		if err := s.sender.SendWelcome(email, name); err != nil {
			if err = s.sender.SendWelcome(email, name); err != nil {
				slog.Warn("failed to send welcome email", "email", email, "err", err)
			}
		}
	}()
}

// Login verifies the credentials and issues a session token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*account.Account, string, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if password == "" {
		return nil, "", infrastructure.Invalid("email and password are required")
	}

	acc, err := s.accountProvider.AccountByEmail(ctx, nil, normalized)
	if err != nil {
		if errors.Is(err, infrastructure.ErrNotFound) {
			return nil, "", infrastructure.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !infrastructure.VerifyPassword(password, acc.PasswordHash) {
		return nil, "", infrastructure.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(acc.ID.String(), acc.Email)
	if err != nil {
		return nil, "", err
	}

	return acc, token, nil
}

// Account loads the account behind a verified session subject.
func (s *Service) Account(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountProvider.AccountByID(ctx, nil, id)
}

// RequestReset issues a reset ticket and mails the link. When the email is
// not registered the call still reports success so the endpoint cannot be
// used to probe which addresses exist.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	acc, err := s.accountProvider.AccountByEmail(ctx, nil, normalized)
	if err != nil {
		if errors.Is(err, infrastructure.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := infrastructure.GenerateResetToken()
	if err != nil {
		return err
	}

	err = infrastructure.WithTransaction(s.db, ctx, func(tx *sql.Tx) error {
		// At most one live ticket per account.
		if err := s.resets.DeleteResetTickets(ctx, tx, acc.ID); err != nil {
			return err
		}
		return s.resets.StoreResetTicket(ctx, tx, &challenge.ResetTicket{
			AccountID: acc.ID,
			TokenHash: infrastructure.Fingerprint(token),
			ExpiresAt: time.Now().Add(resetTTL),
		})
	})
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.resetURLBase, token)
	return s.sender.SendResetLink(acc.Email, acc.FullName.String, link)
}

// ResetPassword redeems a reset token and replaces the credential. The ticket
// lookup locks the row, and the credential update and ticket deletion commit
// together; of two concurrent redemptions exactly one can succeed.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return infrastructure.Invalid("token is required")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := infrastructure.HashPassword(newPassword)
	if err != nil {
		return err
	}

	var staleTicket bool
	err = infrastructure.WithTransaction(s.db, ctx, func(tx *sql.Tx) error {
		ticket, err := s.resets.ResetTicketByTokenHash(ctx, tx, infrastructure.Fingerprint(token))
		if err != nil {
			if errors.Is(err, infrastructure.ErrNotFound) {
				return infrastructure.ErrResetTokenInvalid
			}
			return err
		}

		if ticket.Expired(time.Now()) {
			staleTicket = true
			return s.resets.DeleteResetTickets(ctx, tx, ticket.AccountID)
		}

		if err := s.accountUpdater.UpdatePasswordHash(ctx, tx, ticket.AccountID, passwordHash); err != nil {
			return err
		}

		return s.resets.DeleteResetTickets(ctx, tx, ticket.AccountID)
	})
	if err != nil {
		return err
	}
	if staleTicket {
		return infrastructure.ErrResetTokenExpired
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", infrastructure.Invalid("email is required")
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", infrastructure.Invalid("email is not a valid address")
	}
	return trimmed, nil
}

func checkPassword(password string) error {
	if len(password) < PasswordMinLength {
		return infrastructure.Invalid("password must be at least %d characters", PasswordMinLength)
	}
	if err := passwordvalidator.Validate(password, PasswordMinEntropyBits); err != nil {
		return infrastructure.Invalid("password is not strong enough: %v", err)
	}
	return nil
}

// generateAccountNumber builds the externally visible identifier: a fixed
// prefix, the trailing digits of the current time, and a random hex suffix.
// Collisions are caught by the unique constraint on insert.
func generateAccountNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate account number: %w", err)
	}
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	return fmt.Sprintf("BAK-%s-%s", millis[len(millis)-6:], strings.ToUpper(hex.EncodeToString(buf))), nil
}

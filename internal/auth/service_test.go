package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweetbaker/infrastructure"
	"sweetbaker/internal/account"
	"sweetbaker/internal/challenge"
	"sweetbaker/pkg/jwt"
)

// --- fakes ---

type fakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*account.Account
	saveErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: make(map[string]*account.Account)}
}

func (f *fakeAccounts) SaveAccount(_ context.Context, _ *sql.Tx, acc *account.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.byEmail[acc.Email]; ok {
		return &infrastructure.ConstraintViolation{Field: "email"}
	}
	for _, existing := range f.byEmail {
		if existing.AccountNumber == acc.AccountNumber {
			return &infrastructure.ConstraintViolation{Field: "account_number"}
		}
	}
	acc.ID = uuid.New()
	acc.CreatedAt = time.Now()
	acc.UpdatedAt = acc.CreatedAt
	f.byEmail[acc.Email] = acc
	return nil
}

func (f *fakeAccounts) AccountByEmail(_ context.Context, _ *sql.Tx, email string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc, ok := f.byEmail[email]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeAccounts) AccountByID(_ context.Context, _ *sql.Tx, id uuid.UUID) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.byEmail {
		if acc.ID == id {
			copied := *acc
			return &copied, nil
		}
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeAccounts) UpdatePasswordHash(_ context.Context, _ *sql.Tx, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.byEmail {
		if acc.ID == id {
			acc.PasswordHash = passwordHash
			return nil
		}
	}
	return infrastructure.ErrNotFound
}

type fakeChallenges struct {
	mu      sync.Mutex
	codes   map[string]*challenge.RegistrationCode
	tickets map[string]*challenge.ResetTicket
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{
		codes:   make(map[string]*challenge.RegistrationCode),
		tickets: make(map[string]*challenge.ResetTicket),
	}
}

func (f *fakeChallenges) UpsertRegistrationCode(_ context.Context, _ *sql.Tx, code *challenge.RegistrationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *code
	f.codes[code.Email] = &copied
	return nil
}

func (f *fakeChallenges) RegistrationCodeByEmail(_ context.Context, _ *sql.Tx, email string) (*challenge.RegistrationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code, ok := f.codes[email]; ok {
		copied := *code
		return &copied, nil
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeChallenges) DeleteRegistrationCode(_ context.Context, _ *sql.Tx, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, email)
	return nil
}

func (f *fakeChallenges) StoreResetTicket(_ context.Context, _ *sql.Tx, ticket *challenge.ResetTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *ticket
	f.tickets[ticket.TokenHash] = &copied
	return nil
}

func (f *fakeChallenges) ResetTicketByTokenHash(_ context.Context, _ *sql.Tx, tokenHash string) (*challenge.ResetTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket, ok := f.tickets[tokenHash]; ok {
		copied := *ticket
		return &copied, nil
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeChallenges) DeleteResetTickets(_ context.Context, _ *sql.Tx, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, ticket := range f.tickets {
		if ticket.AccountID == accountID {
			delete(f.tickets, hash)
		}
	}
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	codes   []string
	links   []string
	welcome chan string

	codeErr error
	linkErr error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{welcome: make(chan string, 4)}
}

func (f *fakeMailer) SendVerificationCode(_, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codeErr != nil {
		return f.codeErr
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeMailer) SendResetLink(_, _, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkErr != nil {
		return f.linkErr
	}
	f.links = append(f.links, link)
	return nil
}

func (f *fakeMailer) SendWelcome(to, _ string) error {
	f.welcome <- to
	return nil
}

func (f *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.codes)
	return f.codes[len(f.codes)-1]
}

func (f *fakeMailer) lastLink(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.links)
	return f.links[len(f.links)-1]
}

// --- helpers ---

type testEnv struct {
	service    *Service
	accounts   *fakeAccounts
	challenges *fakeChallenges
	mailer     *fakeMailer
	mock       sqlmock.Sqlmock
	db         *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	accounts := newFakeAccounts()
	challenges := newFakeChallenges()
	mailer := newFakeMailer()

	tokens, err := jwt.New("test-secret", time.Hour)
	require.NoError(t, err)

	service := NewService(db, accounts, accounts, accounts, challenges, challenges, mailer, tokens, "https://shop.example/reset")
	return &testEnv{
		service:    service,
		accounts:   accounts,
		challenges: challenges,
		mailer:     mailer,
		mock:       mock,
		db:         db,
	}
}

func (e *testEnv) registeredAccount(t *testing.T, email, password string) *account.Account {
	t.Helper()
	hash, err := infrastructure.HashPassword(password)
	require.NoError(t, err)
	acc := &account.Account{Email: email, PasswordHash: hash, AccountNumber: "BAK-000000-TEST" + email}
	require.NoError(t, e.accounts.SaveAccount(context.Background(), nil, acc))
	return acc
}

func awaitWelcome(t *testing.T, mailer *fakeMailer) string {
	t.Helper()
	select {
	case to := <-mailer.welcome:
		return to
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was never sent")
		return ""
	}
}

// --- RequestCode ---

func TestRequestCode_StoresFingerprintAndMailsCode(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.RequestCode(context.Background(), "  A@X.com ")
	require.NoError(t, err)

	code := env.mailer.lastCode(t)
	assert.Len(t, code, 6)

	stored, err := env.challenges.RegistrationCodeByEmail(context.Background(), nil, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, infrastructure.Fingerprint(code), stored.CodeHash)
	assert.NotEqual(t, code, stored.CodeHash)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), stored.ExpiresAt, time.Minute)
}

func TestRequestCode_ReplacesPriorChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))
	first := env.mailer.lastCode(t)
	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))
	second := env.mailer.lastCode(t)

	stored, err := env.challenges.RegistrationCodeByEmail(ctx, nil, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, infrastructure.Fingerprint(second), stored.CodeHash)
	if first != second {
		assert.NotEqual(t, infrastructure.Fingerprint(first), stored.CodeHash)
	}
}

func TestRequestCode_AlreadyRegistered(t *testing.T) {
	env := newTestEnv(t)
	env.registeredAccount(t, "a@x.com", "longenough1")

	err := env.service.RequestCode(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, infrastructure.ErrAlreadyRegistered)
	assert.Empty(t, env.mailer.codes)
}

func TestRequestCode_MailFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.codeErr = assert.AnError

	err := env.service.RequestCode(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, assert.AnError)
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))
	code := env.mailer.lastCode(t)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	acc, err := env.service.Register(ctx, RegisterParams{
		Email:            "A@X.com",
		Password:         "longenough1",
		FullName:         "Ada Baker",
		VerificationCode: code,
	})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", acc.Email)
	assert.Equal(t, "Ada Baker", acc.FullName.String)
	assert.True(t, strings.HasPrefix(acc.AccountNumber, "BAK-"))
	assert.True(t, infrastructure.VerifyPassword("longenough1", acc.PasswordHash))

	_, err = env.challenges.RegistrationCodeByEmail(ctx, nil, "a@x.com")
	assert.ErrorIs(t, err, infrastructure.ErrNotFound)

	assert.Equal(t, "a@x.com", awaitWelcome(t, env.mailer))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRegister_ReplayFailsAfterSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))
	code := env.mailer.lastCode(t)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	_, err := env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "longenough1", VerificationCode: code})
	require.NoError(t, err)
	awaitWelcome(t, env.mailer)

	env.mock.ExpectBegin()
	env.mock.ExpectRollback()
	_, err = env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "longenough1", VerificationCode: code})
	assert.ErrorIs(t, err, infrastructure.ErrCodeNotFound)
}

func TestRegister_ExpiredCodeIsDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.challenges.UpsertRegistrationCode(ctx, nil, &challenge.RegistrationCode{
		Email:     "a@x.com",
		CodeHash:  infrastructure.Fingerprint("123456"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	// The stale-entry cleanup commits even though the attempt fails.
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	_, err := env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "longenough1", VerificationCode: "123456"})
	assert.ErrorIs(t, err, infrastructure.ErrCodeExpired)

	_, err = env.challenges.RegistrationCodeByEmail(ctx, nil, "a@x.com")
	assert.ErrorIs(t, err, infrastructure.ErrNotFound)
}

func TestRegister_WrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))

	env.mock.ExpectBegin()
	env.mock.ExpectRollback()
	_, err := env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "longenough1", VerificationCode: "000000x"})
	assert.ErrorIs(t, err, infrastructure.ErrCodeMismatch)

	// The challenge survives a mismatch.
	_, err = env.challenges.RegistrationCodeByEmail(ctx, nil, "a@x.com")
	assert.NoError(t, err)
}

func TestRegister_ValidationBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ve *infrastructure.ValidationError

	_, err := env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "short", VerificationCode: "123456"})
	assert.ErrorAs(t, err, &ve)

	_, err = env.service.Register(ctx, RegisterParams{Email: "a@x.com", Password: "longenough1"})
	assert.ErrorAs(t, err, &ve)

	_, err = env.service.Register(ctx, RegisterParams{Email: "", Password: "longenough1", VerificationCode: "123456"})
	assert.ErrorAs(t, err, &ve)

	// Nothing was expected on the DB and nothing happened.
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRegister_KeepsSuppliedAccountNumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.RequestCode(ctx, "a@x.com"))
	code := env.mailer.lastCode(t)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	acc, err := env.service.Register(ctx, RegisterParams{
		Email:            "a@x.com",
		Password:         "longenough1",
		AccountNumber:    "BAK-CUSTOM-01",
		VerificationCode: code,
	})
	require.NoError(t, err)
	assert.Equal(t, "BAK-CUSTOM-01", acc.AccountNumber)
	awaitWelcome(t, env.mailer)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registeredAccount(t, "a@x.com", "longenough1")

	got, token, err := env.service.Login(context.Background(), "a@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)

	codec, err := jwt.New("test-secret", time.Hour)
	require.NoError(t, err)
	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID.String(), claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registeredAccount(t, "a@x.com", "longenough1")

	_, _, err := env.service.Login(context.Background(), "a@x.com", "wrongpassword1")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.service.Login(context.Background(), "nobody@x.com", "longenough1")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidCredentials)
}

// --- RequestReset ---

func TestRequestReset_UnknownEmailReportsSuccess(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.RequestReset(context.Background(), "nobody@x.com")
	require.NoError(t, err)

	assert.Empty(t, env.mailer.links)
	assert.Empty(t, env.challenges.tickets)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRequestReset_IssuesSingleTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.registeredAccount(t, "a@x.com", "longenough1")

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.service.RequestReset(ctx, "a@x.com"))
	firstLink := env.mailer.lastLink(t)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.service.RequestReset(ctx, "a@x.com"))
	secondLink := env.mailer.lastLink(t)

	assert.NotEqual(t, firstLink, secondLink)
	assert.Len(t, env.challenges.tickets, 1)

	token := tokenFromLink(t, secondLink)
	stored, err := env.challenges.ResetTicketByTokenHash(ctx, nil, infrastructure.Fingerprint(token))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, stored.AccountID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), stored.ExpiresAt, time.Minute)
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	idx := strings.Index(link, "?token=")
	require.Greater(t, idx, 0, "link %q has no token parameter", link)
	return link[idx+len("?token="):]
}

// --- ResetPassword ---

func TestResetPassword_ReplacesCredentialOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registeredAccount(t, "a@x.com", "longenough1")

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.service.RequestReset(ctx, "a@x.com"))
	token := tokenFromLink(t, env.mailer.lastLink(t))

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.service.ResetPassword(ctx, token, "newpass123"))

	_, _, err := env.service.Login(ctx, "a@x.com", "longenough1")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidCredentials)
	_, _, err = env.service.Login(ctx, "a@x.com", "newpass123")
	assert.NoError(t, err)

	// Replaying the consumed token fails.
	env.mock.ExpectBegin()
	env.mock.ExpectRollback()
	err = env.service.ResetPassword(ctx, token, "anotherpass1")
	assert.ErrorIs(t, err, infrastructure.ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredTicketIsDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.registeredAccount(t, "a@x.com", "longenough1")

	require.NoError(t, env.challenges.StoreResetTicket(ctx, nil, &challenge.ResetTicket{
		AccountID: acc.ID,
		TokenHash: infrastructure.Fingerprint("stale-token"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	err := env.service.ResetPassword(ctx, "stale-token", "newpass123")
	assert.ErrorIs(t, err, infrastructure.ErrResetTokenExpired)
	assert.Empty(t, env.challenges.tickets)

	// The credential is untouched.
	_, _, err = env.service.Login(ctx, "a@x.com", "longenough1")
	assert.NoError(t, err)
}

// lockingResetStore mimics the row lock the real store takes with
// SELECT ... FOR UPDATE: the lookup acquires the lock and holds it until the
// same caller's DeleteResetTickets, so a concurrent redeemer blocks on the
// lookup and then finds the ticket gone.
type lockingResetStore struct {
	row sync.Mutex

	mu      sync.Mutex
	tickets map[string]*challenge.ResetTicket
}

func (s *lockingResetStore) StoreResetTicket(_ context.Context, _ *sql.Tx, ticket *challenge.ResetTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *ticket
	s.tickets[ticket.TokenHash] = &copied
	return nil
}

func (s *lockingResetStore) ResetTicketByTokenHash(_ context.Context, _ *sql.Tx, tokenHash string) (*challenge.ResetTicket, error) {
	s.row.Lock()
	s.mu.Lock()
	ticket, ok := s.tickets[tokenHash]
	s.mu.Unlock()
	if !ok {
		s.row.Unlock()
		return nil, infrastructure.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *lockingResetStore) DeleteResetTickets(_ context.Context, _ *sql.Tx, accountID uuid.UUID) error {
	s.mu.Lock()
	for hash, ticket := range s.tickets {
		if ticket.AccountID == accountID {
			delete(s.tickets, hash)
		}
	}
	s.mu.Unlock()
	s.row.Unlock()
	return nil
}

func TestResetPassword_ConcurrentRedemptions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback()

	accounts := newFakeAccounts()
	hash, err := infrastructure.HashPassword("longenough1")
	require.NoError(t, err)
	acc := &account.Account{Email: "a@x.com", PasswordHash: hash, AccountNumber: "BAK-000000-RACE"}
	require.NoError(t, accounts.SaveAccount(context.Background(), nil, acc))

	token := "one-time-token"
	resets := &lockingResetStore{tickets: map[string]*challenge.ResetTicket{
		infrastructure.Fingerprint(token): {
			AccountID: acc.ID,
			TokenHash: infrastructure.Fingerprint(token),
			ExpiresAt: time.Now().Add(30 * time.Minute),
		},
	}}

	tokens, err := jwt.New("test-secret", time.Hour)
	require.NoError(t, err)
	service := NewService(db, accounts, accounts, accounts, newFakeChallenges(), resets, newFakeMailer(), tokens, "https://shop.example/reset")

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- service.ResetPassword(context.Background(), token, "newpass123")
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, consumed int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, infrastructure.ErrResetTokenInvalid):
			consumed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, consumed)
	assert.Empty(t, resets.tickets)

	// The winner's password is the one that sticks.
	_, _, err = service.Login(context.Background(), "a@x.com", "newpass123")
	assert.NoError(t, err)
}

func TestResetPassword_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ve *infrastructure.ValidationError
	assert.ErrorAs(t, env.service.ResetPassword(ctx, "", "newpass123"), &ve)
	assert.ErrorAs(t, env.service.ResetPassword(ctx, "some-token", "short"), &ve)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

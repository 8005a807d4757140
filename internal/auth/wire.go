package auth

import (
	"database/sql"

	"github.com/google/wire"

	"sweetbaker/config"
	"sweetbaker/internal/account"
	"sweetbaker/internal/challenge"
	"sweetbaker/internal/email"
	"sweetbaker/pkg/jwt"
)

// ProvideAccountStorage is a Wire provider function that creates an account.PostgresStorage
func ProvideAccountStorage(db *sql.DB) *account.PostgresStorage {
	return account.NewAccountPostgresStorage(db)
}

// ProvideChallengeStorage is a Wire provider function that creates a challenge.PostgresStorage
func ProvideChallengeStorage(db *sql.DB) *challenge.PostgresStorage {
	return challenge.NewChallengePostgresStorage(db)
}

// ProvideJWT is a Wire provider function that creates the session token codec
func ProvideJWT(cfg *config.Config) (*jwt.JWT, error) {
	return jwt.New(cfg.JWTSecret, cfg.SessionTTL)
}

// ProvideService is a Wire provider function that creates the account Service
func ProvideService(
	db *sql.DB,
	cfg *config.Config,
	accounts *account.PostgresStorage,
	challenges *challenge.PostgresStorage,
	sender *email.Sender,
	tokens *jwt.JWT,
) *Service {
	return NewService(db, accounts, accounts, accounts, challenges, challenges, sender, tokens, cfg.ResetURLBase)
}

func ProvideJSONHandler(service *Service) *JSONHandler {
	return NewJSONHandler(service)
}

func ProvideMiddleware(tokens *jwt.JWT) *AuthMiddleware {
	return NewAuthMiddleware(tokens)
}

var Set = wire.NewSet(
	ProvideAccountStorage,
	ProvideChallengeStorage,
	ProvideJWT,
	ProvideService,
	ProvideJSONHandler,
	ProvideMiddleware,
)

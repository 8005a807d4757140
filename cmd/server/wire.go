//go:build wireinject
// +build wireinject

package main

import (
	"database/sql"

	"github.com/google/wire"

	"sweetbaker/config"
	"sweetbaker/internal/auth"
	"sweetbaker/internal/catalog"
	"sweetbaker/internal/email"
)

var AppSet = wire.NewSet(email.Set, auth.Set, catalog.Set, ProvideAppServices)

func InitializeAppWire(db *sql.DB, cfg *config.Config) (*AppServices, error) {
	wire.Build(AppSet)

	return &AppServices{}, nil
}

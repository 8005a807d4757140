package main

import (
	"sweetbaker/internal/auth"
	"sweetbaker/internal/catalog"
)

// AppServices bundles everything the HTTP layer mounts.
type AppServices struct {
	AuthHandler    *auth.JSONHandler
	AuthMiddleware *auth.AuthMiddleware
	CatalogHandler *catalog.JSONHandler
}

func ProvideAppServices(
	authHandler *auth.JSONHandler,
	authMiddleware *auth.AuthMiddleware,
	catalogHandler *catalog.JSONHandler,
) *AppServices {
	return &AppServices{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		CatalogHandler: catalogHandler,
	}
}

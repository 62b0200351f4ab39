package http

import (
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/bulk"
	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/covers"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/users"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database   *database.Database
	BookRepo   *books.Repository
	UserRepo   *users.Repository
	Resolver   *catalog.Resolver
	Importer   *bulk.Importer
	Exporter   *bulk.Exporter
	CoverStore *covers.Store

	// Authentication
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth

	// Application info
	Version string
}

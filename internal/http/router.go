package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/covers"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	usersController := NewUsersController(cfg.UserRepo, cfg.AuthConfig)
	booksController := NewBooksController(cfg.BookRepo, cfg.Resolver, cfg.CoverStore)
	toolsController := NewToolsController(cfg.BookRepo, cfg.Importer, cfg.Exporter)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Stored cover images
	if cfg.CoverStore != nil {
		router.Static(covers.URLPrefix, cfg.CoverStore.Dir())
	}

	// Account endpoints stay outside the auth middleware
	router.POST("/api/users/register", usersController.Register)
	router.POST("/api/users/login", usersController.Login)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.Handler())

	// Books API endpoints
	api.GET("/books/my", booksController.GetMyBooks)
	api.POST("/books/import-from-isbn", booksController.ImportFromISBN)
	api.GET("/books/provider-search", booksController.ProviderSearch)
	api.PUT("/books/:id/manual-update", booksController.ManualUpdate)
	api.POST("/books/upload-cover", booksController.UploadCover)

	// Library maintenance endpoints
	api.POST("/tools/import-csv", toolsController.ImportCSV)
	api.GET("/tools/export-csv", toolsController.ExportCSV)
	api.POST("/tools/merge-author", toolsController.MergeAuthor)
	api.POST("/tools/merge-publisher", toolsController.MergePublisher)

	return router
}

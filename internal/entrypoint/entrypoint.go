package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/bulk"
	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/covers"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/users"
	http_controllers "github.com/openshelf/openshelf/internal/http"
	"github.com/openshelf/openshelf/internal/metadata"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// coverMode maps the configured cover storage mode onto the resolver's.
func coverMode(cfg *config.Config) catalog.CoverMode {
	if cfg.Covers.Mode == "blob" {
		return catalog.CoverModeBlob
	}
	return catalog.CoverModePaths
}

// BuildDependencies wires the full import pipeline on top of an open
// database. The returned cleanup closes nothing; the caller owns db.
func BuildDependencies(cfg *config.Config, db *database.Database) (*books.Repository, *catalog.Resolver, *bulk.Importer, *bulk.Exporter, *covers.Store, error) {
	bookRepo := books.NewRepository(db.DB)

	coverStore, err := covers.NewStore(cfg.Covers.Dir)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("initialize cover store: %w", err)
	}

	googleClient := metadata.NewGoogleBooksClient(cfg.GoogleBooks.APIKey)
	openLibraryClient := metadata.NewOpenLibraryClient(cfg.OpenLibrary.FetchCovers)

	upserter := catalog.NewUpserter(bookRepo)
	resolver := catalog.NewResolver(googleClient, openLibraryClient, coverStore, upserter, coverMode(cfg))

	importer := bulk.NewImporter(bookRepo)
	exporter := bulk.NewExporter(bookRepo)

	return bookRepo, resolver, importer, exporter, coverStore, nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting OpenShelf v%s", version)

	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("AUTH_JWT_SECRET is not set; refusing to issue unsigned tokens")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo, resolver, importer, exporter, coverStore, err := BuildDependencies(cfg, db)
	if err != nil {
		log.Fatalf("Failed to wire dependencies: %v", err)
	}
	log.Printf("Cover store initialized at %s (mode: %s)", cfg.Covers.Dir, cfg.Covers.Mode)

	userRepo := users.NewRepository(db.DB)
	authMiddleware := auth.NewMiddleware(cfg.Auth.JWTSecret)

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		BookRepo:       bookRepo,
		UserRepo:       userRepo,
		Resolver:       resolver,
		Importer:       importer,
		Exporter:       exporter,
		CoverStore:     coverStore,
		AuthMiddleware: authMiddleware,
		AuthConfig:     cfg.Auth,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, nil)
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Covers
		GoogleBooks
		OpenLibrary
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Covers struct {
		Dir string
		// Mode selects the cover storage strategy: "paths" keeps a
		// (cover, thumbnail) path pair, "blob" stores the smaller of the
		// two downloads as a single image column.
		Mode string
	}
	GoogleBooks struct {
		APIKey string
	}
	OpenLibrary struct {
		// FetchCovers downloads cover images referenced by Open Library
		// results eagerly. Disable to save bandwidth on search-heavy use.
		FetchCovers bool
	}
	Auth struct {
		JWTSecret   string
		TokenExpiry time.Duration
		BcryptCost  int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("covers_mode", "paths")
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("open_library_fetch_covers", true)
	v.SetDefault("auth_jwt_secret", "")
	v.SetDefault("auth_token_expiry", "720h")
	v.SetDefault("auth_bcrypt_cost", 12)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Covers: Covers{
			Dir:  v.GetString("COVERS_DIR"),
			Mode: v.GetString("COVERS_MODE"),
		},
		GoogleBooks: GoogleBooks{
			APIKey: v.GetString("GOOGLE_BOOKS_API_KEY"),
		},
		OpenLibrary: OpenLibrary{
			FetchCovers: v.GetBool("OPEN_LIBRARY_FETCH_COVERS"),
		},
		Auth: Auth{
			JWTSecret:   v.GetString("AUTH_JWT_SECRET"),
			TokenExpiry: v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:  v.GetInt("AUTH_BCRYPT_COST"),
		},
	}
}

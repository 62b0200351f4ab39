package config

// Default paths for local state
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./openshelf.db"

	// DefaultCoversDir is where downloaded cover images are written
	DefaultCoversDir = "./covers"
)

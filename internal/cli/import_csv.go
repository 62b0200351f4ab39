package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/openshelf/openshelf/internal/bulk"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
)

// ImportCSVCommand loads a semicolon-delimited library CSV into a user's
// catalog without going through the HTTP server.
type ImportCSVCommand struct {
	FilePath     string
	DatabasePath string
	UserID       uint
	DryRun       bool
}

func NewImportCSVCommand() *ImportCSVCommand {
	return &ImportCSVCommand{}
}

func (cmd *ImportCSVCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-csv", flag.ExitOnError)

	var userID uint64
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the CSV file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.Uint64Var(&userID, "user", 0, "ID of the user owning the imported books (required)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse the file without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-csv -file <path> -user <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books from a semicolon-delimited CSV file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-csv -file library.csv -user 1\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if userID == 0 {
		return fmt.Errorf("required flag -user not provided")
	}
	cmd.UserID = uint(userID)

	return nil
}

func (cmd *ImportCSVCommand) Run() error {
	file, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	importer := bulk.NewImporter(books.NewRepository(db.DB))

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		result, err := importer.Preview(context.Background(), file)
		if err != nil {
			return err
		}
		fmt.Printf("Would import %d rows (%d skipped)\n", result.Added, result.Skipped)
		return nil
	}

	result, err := importer.Import(context.Background(), file, cmd.UserID)
	if err != nil {
		return err
	}

	fmt.Printf("Added: %d, Updated: %d, Skipped: %d\n", result.Added, result.Updated, result.Skipped)
	return nil
}

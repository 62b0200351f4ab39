package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/openshelf/openshelf/internal/bulk"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
)

// ExportCSVCommand dumps a user's full catalog as a semicolon-delimited CSV.
type ExportCSVCommand struct {
	OutputPath   string
	DatabasePath string
	UserID       uint
}

func NewExportCSVCommand() *ExportCSVCommand {
	return &ExportCSVCommand{}
}

func (cmd *ExportCSVCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export-csv", flag.ExitOnError)

	var userID uint64
	fs.StringVar(&cmd.OutputPath, "output", "", "Output file path (default: stdout)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.Uint64Var(&userID, "user", 0, "ID of the user whose books are exported (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export-csv -user <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export a user's books as a semicolon-delimited CSV file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export-csv -user 1 -output library.csv\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if userID == 0 {
		return fmt.Errorf("required flag -user not provided")
	}
	cmd.UserID = uint(userID)

	return nil
}

func (cmd *ExportCSVCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	out := os.Stdout
	if cmd.OutputPath != "" {
		out, err = os.Create(cmd.OutputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
	}

	exporter := bulk.NewExporter(books.NewRepository(db.DB))
	if err := exporter.Export(out, cmd.UserID); err != nil {
		return err
	}

	if cmd.OutputPath != "" {
		fmt.Printf("Exported to %s\n", cmd.OutputPath)
	}
	return nil
}

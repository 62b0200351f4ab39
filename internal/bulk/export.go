package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/openshelf/openshelf/internal/entities"
)

// BookLister provides the catalog rows to export. internal/database/books
// implements it.
type BookLister interface {
	GetAllForUser(userID uint) ([]entities.Book, error)
}

// Exporter serializes a user's catalog to the exchange format.
type Exporter struct {
	store BookLister
}

// NewExporter creates an exporter reading from the given store.
func NewExporter(store BookLister) *Exporter {
	return &Exporter{store: store}
}

// Export writes ownerID's whole catalog as `;`-delimited rows, one header
// line first. The column set mirrors the importer, so an export re-imported
// by the same user reproduces the same (isbn, title, author) catalog.
func (e *Exporter) Export(w io.Writer, ownerID uint) error {
	list, err := e.store.GetAllForUser(ownerID)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	writer := csv.NewWriter(w)
	writer.Comma = Delimiter

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range list {
		if err := writer.Write(exportRow(&list[i])); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportRow(book *entities.Book) []string {
	return []string{
		book.Title,
		book.ISBN,
		book.Author,
		book.Publisher,
		book.Genre,
		book.Summary,
		formatCount(book.PageCount),
		formatDate(book.PublicationDate),
		book.Language,
		book.Country,
		book.CoverURL,
		book.ThumbnailURL,
		formatTimestamp(book.AddedDate),
		formatDate(book.StartReadingDate),
		formatDate(book.EndReadingDate),
		string(book.Status),
		book.LentTo,
	}
}

func formatCount(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Package bulk streams a user's catalog to and from the `;`-delimited
// exchange format. Inconsistent rows degrade to absent fields or are
// skipped and counted, never aborting the batch. All mutations of one
// import commit in a single transaction.
package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/metadata"
)

// Delimiter used by the exchange format.
const Delimiter = ';'

// columns is the exchange column set, canonical record fields first, then
// the personal-management fields. Identity and owner never travel in files.
var columns = []string{
	"Title", "ISBN", "Author", "Publisher", "Genre", "Summary",
	"PageCount", "PublicationDate", "Language", "Country",
	"CoverUrl", "ThumbnailUrl",
	"AddedDate", "StartReadingDate", "EndReadingDate", "Status", "LentTo",
}

// Column indexes into the exchange format.
const (
	colTitle = iota
	colISBN
	colAuthor
	colPublisher
	colGenre
	colSummary
	colPageCount
	colPublicationDate
	colLanguage
	colCountry
	colCoverURL
	colThumbnailURL
	colAddedDate
	colStartReadingDate
	colEndReadingDate
	colStatus
	colLentTo
)

// csvDateFormats are tried first-match-wins. Day-first layouts come before
// month-first, which makes purely numeric dates like "03/04/2020"
// inherently ambiguous; that is a known data-quality boundary of the format,
// not something this importer can disambiguate.
var csvDateFormats = []string{
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
	"02-01-2006",
	time.RFC3339,
}

// ImportResult summarizes one import batch.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Importer replays exchange files into a user's catalog through the same
// upsert path single-ISBN resolution uses.
type Importer struct {
	repo *books.Repository
}

// NewImporter creates an importer writing through the given repository.
func NewImporter(repo *books.Repository) *Importer {
	return &Importer{repo: repo}
}

// Import reads one `;`-delimited file and applies it to ownerID's catalog.
// The owner always comes from the authenticated caller; any owner column in
// the file would be ignored. The whole batch persists in one transaction:
// either every surviving row lands or none do.
func (i *Importer) Import(ctx context.Context, r io.Reader, ownerID uint) (ImportResult, error) {
	if ownerID == 0 {
		return ImportResult{}, fmt.Errorf("import requires an authenticated owner")
	}

	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return ImportResult{}, nil
		}
		return ImportResult{}, fmt.Errorf("read header: %w", err)
	}

	importedAt := time.Now().UTC()
	var result ImportResult

	err := i.repo.WithTransaction(func(tx *books.Repository) error {
		upserter := catalog.NewUpserter(tx)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.Printf("skipping unreadable row: %v", err)
				result.Skipped++
				continue
			}

			rec, extras := parseRow(row, ownerID)
			if rec == nil {
				result.Skipped++
				continue
			}

			_, created, err := i.applyRow(upserter, tx, rec, extras, importedAt)
			if err != nil {
				return err
			}
			if created {
				result.Added++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import batch: %w", err)
	}

	return result, nil
}

// Preview parses the file the way Import would but touches nothing. Added
// counts the rows that would survive parsing; Skipped counts the rest.
func (i *Importer) Preview(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return ImportResult{}, nil
		}
		return ImportResult{}, fmt.Errorf("read header: %w", err)
	}

	var result ImportResult
	for {
		select {
		case <-ctx.Done():
			return ImportResult{}, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}
		if rec, _ := parseRow(row, 1); rec == nil {
			result.Skipped++
		} else {
			result.Added++
		}
	}
	return result, nil
}

// rowExtras carries the management fields that travel in the file but are
// not part of the canonical record.
type rowExtras struct {
	AddedDate        *time.Time
	StartReadingDate *time.Time
	EndReadingDate   *time.Time
	Status           entities.ReadingStatus
	LentTo           string
}

// parseRow converts one data row into a canonical record plus management
// extras. Returns (nil, _) when the row fails the Title/Author requirement.
// Missing or extra columns degrade to absent fields.
func parseRow(row []string, ownerID uint) (*metadata.BookRecord, rowExtras) {
	title := strings.TrimSpace(field(row, colTitle))
	author := strings.TrimSpace(field(row, colAuthor))
	if title == "" || author == "" {
		return nil, rowExtras{}
	}

	rec := &metadata.BookRecord{
		Title:           optional(title),
		Author:          optional(author),
		ISBN:            optional(metadata.NormalizeISBN(field(row, colISBN))),
		Publisher:       optional(field(row, colPublisher)),
		Genre:           optional(field(row, colGenre)),
		Summary:         optional(field(row, colSummary)),
		Language:        optional(field(row, colLanguage)),
		Country:         optional(field(row, colCountry)),
		CoverURL:        optional(field(row, colCoverURL)),
		ThumbnailURL:    optional(field(row, colThumbnailURL)),
		PageCount:       parseCount(field(row, colPageCount)),
		PublicationDate: parseDate(field(row, colPublicationDate)),
		OwnerUserID:     ownerID,
	}

	extras := rowExtras{
		AddedDate:        parseDate(field(row, colAddedDate)),
		StartReadingDate: parseDate(field(row, colStartReadingDate)),
		EndReadingDate:   parseDate(field(row, colEndReadingDate)),
		Status:           parseStatus(field(row, colStatus)),
		LentTo:           strings.TrimSpace(field(row, colLentTo)),
	}

	return rec, extras
}

// applyRow routes one record through the shared upsert path and then applies
// the management fields. Rows without an ISBN cannot be matched against
// existing entries and always insert.
func (i *Importer) applyRow(upserter *catalog.Upserter, tx *books.Repository, rec *metadata.BookRecord, extras rowExtras, importedAt time.Time) (*entities.Book, bool, error) {
	entry, created, err := upserter.Upsert(rec, extras.Status)
	if err != nil {
		return nil, false, err
	}

	if extras.AddedDate != nil && !extras.AddedDate.IsZero() {
		entry.AddedDate = extras.AddedDate.UTC()
	} else if entry.AddedDate.IsZero() {
		entry.AddedDate = importedAt
	}
	entry.StartReadingDate = utcOrNil(extras.StartReadingDate)
	entry.EndReadingDate = utcOrNil(extras.EndReadingDate)
	entry.LentTo = extras.LentTo

	if err := tx.Update(entry); err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

// field reads a column; out-of-range means absent.
func field(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return row[index]
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseCount(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// parseDate tries the candidate layouts in order and normalizes the first
// hit to UTC. Unparseable input is absent, never an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range csvDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func parseStatus(s string) entities.ReadingStatus {
	switch entities.ReadingStatus(strings.TrimSpace(strings.ToLower(s))) {
	case entities.ReadingStatusReading:
		return entities.ReadingStatusReading
	case entities.ReadingStatusFinished:
		return entities.ReadingStatusFinished
	case entities.ReadingStatusNotFinished:
		return entities.ReadingStatusNotFinished
	default:
		return entities.ReadingStatusNotRead
	}
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

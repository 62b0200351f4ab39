// Package catalog coordinates metadata resolution and the idempotent
// create-or-update of per-user catalog entries.
package catalog

import (
	"fmt"
	"time"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/metadata"
)

// BookStore is the persistence collaborator the coordinator writes through.
// internal/database/books implements it.
type BookStore interface {
	GetByISBNAndUser(isbn string, userID uint) (*entities.Book, error)
	Create(book *entities.Book) error
	Update(book *entities.Book) error
}

// Upserter finds an existing catalog entry by (user, normalized ISBN) and
// merges in place, or inserts a new entry.
type Upserter struct {
	store BookStore
}

// NewUpserter creates an upsert coordinator over the given store.
func NewUpserter(store BookStore) *Upserter {
	return &Upserter{store: store}
}

// Upsert applies one resolved record to the catalog. Fields follow the
// overwrite-if-present policy: an absent incoming value never erases a
// stored one. Status and the cover image blob are overwrite-always and
// reflect the latest call unconditionally. Returns the stored entry and
// whether it was created.
//
// A record without an owner cannot be inserted; that is a caller bug, not
// bad user data.
func (u *Upserter) Upsert(rec *metadata.BookRecord, status entities.ReadingStatus) (*entities.Book, bool, error) {
	isbn := strValue(rec.ISBN)

	var existing *entities.Book
	if isbn != "" {
		var err error
		existing, err = u.store.GetByISBNAndUser(isbn, rec.OwnerUserID)
		if err != nil {
			return nil, false, fmt.Errorf("lookup catalog entry: %w", err)
		}
	}

	if existing != nil {
		applyRecord(existing, rec)
		existing.Status = status
		existing.CoverImage = rec.CoverImage
		if err := u.store.Update(existing); err != nil {
			return nil, false, fmt.Errorf("update catalog entry: %w", err)
		}
		return existing, false, nil
	}

	if rec.OwnerUserID == 0 {
		return nil, false, fmt.Errorf("record has no owner user id")
	}

	book := &entities.Book{
		UserID:    rec.OwnerUserID,
		AddedDate: time.Now().UTC(),
		Status:    status,
	}
	applyRecord(book, rec)
	book.CoverImage = rec.CoverImage

	if err := u.store.Create(book); err != nil {
		return nil, false, fmt.Errorf("create catalog entry: %w", err)
	}
	return book, true, nil
}

// applyRecord copies every present record field onto the entry, leaving
// stored values untouched where the record is silent.
func applyRecord(book *entities.Book, rec *metadata.BookRecord) {
	setIfPresent(&book.ISBN, rec.ISBN)
	setIfPresent(&book.Title, rec.Title)
	setIfPresent(&book.Author, rec.Author)
	setIfPresent(&book.Publisher, rec.Publisher)
	setIfPresent(&book.Genre, rec.Genre)
	setIfPresent(&book.Summary, rec.Summary)
	setIfPresent(&book.Language, rec.Language)
	setIfPresent(&book.Country, rec.Country)
	setIfPresent(&book.CoverURL, rec.CoverURL)
	setIfPresent(&book.ThumbnailURL, rec.ThumbnailURL)

	if rec.PageCount != nil {
		book.PageCount = *rec.PageCount
	}
	if rec.PublicationDate != nil {
		utc := rec.PublicationDate.UTC()
		book.PublicationDate = &utc
	}
}

func setIfPresent(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

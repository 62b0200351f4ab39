// Package metadata resolves book metadata from external bibliographic
// providers and normalizes their responses into a single canonical record.
//
// The two clients (GoogleBooksClient, OpenLibraryClient) return partial
// records; Merge combines them with field-level precedence and fills the
// defaults every catalog entry is guaranteed to have.
package metadata

import (
	"strings"
	"time"
)

// Defaults applied by Merge when a field is still absent after both
// providers have been consulted.
const (
	DefaultTitle        = "(untitled)"
	DefaultAuthor       = "(unknown author)"
	DefaultCoverURL     = "/covers/default.jpg"
	DefaultThumbnailURL = "/covers/default_thumb.jpg"
)

// BookRecord is the canonical, provider-agnostic representation of one
// book's metadata. Optional fields are pointers so that "absent" is distinct
// from an empty value; empty or whitespace-only provider strings are
// normalized to absent before a record is returned.
type BookRecord struct {
	ISBN            *string
	Title           *string
	Author          *string
	Publisher       *string
	Genre           *string
	Summary         *string
	PageCount       *int
	PublicationDate *time.Time
	Language        *string
	Country         *string
	CoverURL        *string
	ThumbnailURL    *string
	CoverImage      []byte
	OwnerUserID     uint
}

// optString normalizes a provider string to an optional value: blank after
// trimming means absent.
func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// joinNonEmpty joins multi-valued provider fields (authors, categories) into
// one display string, preserving provider order.
func joinNonEmpty(values []string) *string {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	joined := strings.Join(kept, ", ")
	return &joined
}

// present reports whether an optional string carries a non-blank value.
func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func firstPresent(a, b *string) *string {
	if present(a) {
		return a
	}
	if present(b) {
		return b
	}
	return nil
}

// Merge combines two partial records into one. Per field the primary value
// wins when present, otherwise the secondary's, otherwise the field stays
// absent. Title, Author and the cover pair are then defaulted so the result
// always names something displayable. Either input may be nil.
func Merge(primary, secondary *BookRecord) *BookRecord {
	if primary == nil {
		primary = &BookRecord{}
	}
	if secondary == nil {
		secondary = &BookRecord{}
	}

	merged := &BookRecord{
		ISBN:            firstPresent(primary.ISBN, secondary.ISBN),
		Title:           firstPresent(primary.Title, secondary.Title),
		Author:          firstPresent(primary.Author, secondary.Author),
		Publisher:       firstPresent(primary.Publisher, secondary.Publisher),
		Genre:           firstPresent(primary.Genre, secondary.Genre),
		Summary:         firstPresent(primary.Summary, secondary.Summary),
		Language:        firstPresent(primary.Language, secondary.Language),
		Country:         firstPresent(primary.Country, secondary.Country),
		CoverURL:        firstPresent(primary.CoverURL, secondary.CoverURL),
		ThumbnailURL:    firstPresent(primary.ThumbnailURL, secondary.ThumbnailURL),
		PageCount:       primary.PageCount,
		PublicationDate: primary.PublicationDate,
		CoverImage:      primary.CoverImage,
		OwnerUserID:     primary.OwnerUserID,
	}

	if merged.PageCount == nil {
		merged.PageCount = secondary.PageCount
	}
	if merged.PublicationDate == nil {
		merged.PublicationDate = secondary.PublicationDate
	}
	if merged.CoverImage == nil {
		merged.CoverImage = secondary.CoverImage
	}
	if merged.OwnerUserID == 0 {
		merged.OwnerUserID = secondary.OwnerUserID
	}

	if !present(merged.Title) {
		merged.Title = optString(DefaultTitle)
	}
	if !present(merged.Author) {
		merged.Author = optString(DefaultAuthor)
	}
	if !present(merged.CoverURL) {
		merged.CoverURL = optString(DefaultCoverURL)
	}
	if !present(merged.ThumbnailURL) {
		merged.ThumbnailURL = optString(DefaultThumbnailURL)
	}

	return merged
}

// HasMissingFields reports whether a secondary provider lookup is worth the
// network round-trip. It tracks the seven fields the primary provider tends
// to leave incomplete.
func HasMissingFields(r *BookRecord) bool {
	if r == nil {
		return true
	}
	return !present(r.Author) ||
		!present(r.Title) ||
		!present(r.Summary) ||
		!present(r.Publisher) ||
		!present(r.Genre) ||
		r.PageCount == nil ||
		r.PublicationDate == nil
}

// providerDateFormats are tried in order against provider date strings.
// Google Books publishes yyyy-MM-dd, yyyy-MM or bare yyyy; Open Library
// publish_date is free-form English.
var providerDateFormats = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2006",
}

// parseProviderDate converts a provider date string to UTC. A string no
// format matches is treated as absent, never as an error.
func parseProviderDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range providerDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// NormalizeISBN strips hyphens and spaces. Anything that is not 10 or 13
// characters afterwards is rejected as empty.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

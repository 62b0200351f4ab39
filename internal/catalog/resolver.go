package catalog

import (
	"context"
	"fmt"
	"log"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/metadata"
)

// Provider is the contract both bibliographic clients satisfy.
type Provider interface {
	FetchByISBN(ctx context.Context, isbn string) (*metadata.BookRecord, error)
	Search(ctx context.Context, title, author, language string) ([]metadata.BookRecord, error)
}

// CoverResolver persists cover artwork for a record. internal/covers
// implements it.
type CoverResolver interface {
	Resolve(ctx context.Context, source, isbn string) (string, string)
	ResolveSmallest(ctx context.Context, coverURL, thumbnailURL string) []byte
}

// CoverMode selects which of the two cover storage strategies a resolution
// uses. The catalog schema supports both; the caller chooses.
type CoverMode int

const (
	// CoverModePaths downloads the cover once and stores a (cover,
	// thumbnail) path pair.
	CoverModePaths CoverMode = iota
	// CoverModeBlob downloads cover and thumbnail independently and stores
	// the smaller payload as a single image blob.
	CoverModeBlob
)

// Resolver runs the full resolution pipeline for one ISBN: primary provider
// fetch, conditional secondary fetch, merge, cover resolution, upsert.
type Resolver struct {
	google      Provider
	openLibrary Provider
	covers      CoverResolver
	upserter    *Upserter
	coverMode   CoverMode
}

// NewResolver wires the pipeline. Google Books is the primary provider; the
// Open Library client is consulted only when the primary record is absent or
// incomplete.
func NewResolver(google, openLibrary Provider, coverResolver CoverResolver, upserter *Upserter, coverMode CoverMode) *Resolver {
	return &Resolver{
		google:      google,
		openLibrary: openLibrary,
		covers:      coverResolver,
		upserter:    upserter,
		coverMode:   coverMode,
	}
}

// ImportByISBN resolves one ISBN for one user and persists the result.
// Both providers answering "no data" still produces a fully-defaulted entry;
// a malformed provider payload on this targeted lookup is a real error.
func (r *Resolver) ImportByISBN(ctx context.Context, userID uint, isbn string) (*entities.Book, bool, error) {
	normalized := metadata.NormalizeISBN(isbn)
	if normalized == "" {
		return nil, false, fmt.Errorf("ISBN must have 10 or 13 digits: %q", isbn)
	}

	primary, err := r.google.FetchByISBN(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("google books lookup: %w", err)
	}

	// The secondary call is only worth the round-trip when the primary
	// record left gaps.
	var secondary *metadata.BookRecord
	if primary == nil || metadata.HasMissingFields(primary) {
		secondary, err = r.openLibrary.FetchByISBN(ctx, normalized)
		if err != nil {
			return nil, false, fmt.Errorf("open library lookup: %w", err)
		}
	}

	merged := metadata.Merge(primary, secondary)
	merged.ISBN = &normalized
	merged.OwnerUserID = userID

	r.resolveCover(ctx, merged, normalized)

	return r.upserter.Upsert(merged, entities.ReadingStatusNotRead)
}

// Search fans the query out to both providers and concatenates their
// normalized results, Google Books first. Provider failures surface as an
// empty contribution, never an error.
func (r *Resolver) Search(ctx context.Context, title, author, language string) ([]metadata.BookRecord, error) {
	googleResults, err := r.google.Search(ctx, title, author, language)
	if err != nil {
		log.Printf("google books search: %v", err)
	}
	openLibraryResults, err := r.openLibrary.Search(ctx, title, author, language)
	if err != nil {
		log.Printf("open library search: %v", err)
	}
	return append(googleResults, openLibraryResults...), nil
}

// resolveCover applies the configured cover strategy to the merged record.
// Failure leaves the placeholder paths from the merge defaults in place.
func (r *Resolver) resolveCover(ctx context.Context, merged *metadata.BookRecord, isbn string) {
	coverURL := strValue(merged.CoverURL)
	if coverURL == "" || coverURL == metadata.DefaultCoverURL {
		return
	}

	switch r.coverMode {
	case CoverModeBlob:
		if blob := r.covers.ResolveSmallest(ctx, coverURL, strValue(merged.ThumbnailURL)); blob != nil {
			merged.CoverImage = blob
		}
	default:
		cover, thumbnail := r.covers.Resolve(ctx, coverURL, isbn)
		if cover != "" {
			merged.CoverURL = &cover
			merged.ThumbnailURL = &thumbnail
		}
	}
}

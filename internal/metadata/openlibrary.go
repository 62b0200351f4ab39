package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openshelf/openshelf/internal/ratelimit"
)

// authorLookupWorkers bounds the concurrent author-name resolutions issued
// for a single book.
const authorLookupWorkers = 4

// OpenLibraryClient fetches book metadata from the Open Library API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	coversURL   string
	rateLimiter *ratelimit.Limiter
	fetchCovers bool
}

// NewOpenLibraryClient creates a rate-limited Open Library client. When
// fetchCovers is set, cover images referenced by cover id are downloaded
// eagerly and attached to results as inline bytes.
func NewOpenLibraryClient(fetchCovers bool) *OpenLibraryClient {
	return &OpenLibraryClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     "https://openlibrary.org",
		coversURL:   "https://covers.openlibrary.org",
		rateLimiter: ratelimit.New("OpenLibrary", 1),
		fetchCovers: fetchCovers,
	}
}

// SetBaseURLs overrides the API and covers endpoints. Used by tests.
func (c *OpenLibraryClient) SetBaseURLs(apiURL, coversURL string) {
	c.baseURL = strings.TrimRight(apiURL, "/")
	c.coversURL = strings.TrimRight(coversURL, "/")
}

// FetchByISBN looks an edition up by ISBN. Author references are resolved to
// human-readable names with a bounded worker pool; a failed author lookup
// omits that single name. A non-success status returns (nil, nil); a payload
// that fails to decode is a real error.
func (c *OpenLibraryClient) FetchByISBN(ctx context.Context, isbn string) (*BookRecord, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	body, status, err := c.get(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn))
	if err != nil {
		return nil, fmt.Errorf("fetch edition by ISBN: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var edition openLibraryEdition
	if err := json.Unmarshal(body, &edition); err != nil {
		return nil, fmt.Errorf("decode Open Library response: %w", err)
	}

	record := &BookRecord{
		ISBN:            optString(isbn),
		Title:           optString(edition.Title),
		Author:          c.resolveAuthorNames(ctx, edition.Authors),
		Publisher:       optString(first(edition.Publishers)),
		Summary:         optString(edition.Description.Value),
		PageCount:       optInt(edition.NumberOfPages),
		PublicationDate: parseProviderDate(edition.PublishDate),
		Language:        joinNonEmpty(languageKeys(edition.Languages)),
	}

	if c.fetchCovers && len(edition.Covers) > 0 {
		record.CoverImage = c.fetchCoverByID(ctx, edition.Covers[0])
	}

	return record, nil
}

// Search queries the full-text search endpoint. At least one of title/author
// must be non-blank; otherwise the result is empty without a network call.
// Provider errors and malformed payloads yield an empty list. Cover images
// are fetched eagerly for each result row that names a cover id.
func (c *OpenLibraryClient) Search(ctx context.Context, title, author, language string) ([]BookRecord, error) {
	var queryParts []string
	if strings.TrimSpace(title) != "" {
		queryParts = append(queryParts, strings.TrimSpace(title))
	}
	if strings.TrimSpace(author) != "" {
		queryParts = append(queryParts, strings.TrimSpace(author))
	}
	if len(queryParts) == 0 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/search.json?q=%s", c.baseURL, url.QueryEscape(strings.Join(queryParts, " ")))
	if lang := openLibraryLanguage(language); lang != "" {
		reqURL += "&language=" + url.QueryEscape(lang)
	}

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		log.Printf("Open Library search failed: %v", err)
		return nil, nil
	}
	if status != http.StatusOK {
		log.Printf("Open Library search returned status %d", status)
		return nil, nil
	}

	var result openLibrarySearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("Open Library search returned malformed payload: %v", err)
		return nil, nil
	}

	records := make([]BookRecord, 0, len(result.Docs))
	for i := range result.Docs {
		doc := &result.Docs[i]
		record := BookRecord{
			Title:           optString(doc.Title),
			Author:          joinNonEmpty(doc.AuthorName),
			ISBN:            optString(first(doc.ISBN)),
			Publisher:       optString(first(doc.Publisher)),
			Summary:         optString(doc.FirstSentence.Value),
			Language:        joinNonEmpty(doc.Language),
			PageCount:       optInt(doc.NumberOfPagesMedian),
			PublicationDate: parseProviderDate(first(doc.PublishDate)),
		}
		if c.fetchCovers && doc.CoverI > 0 {
			record.CoverImage = c.fetchCoverByID(ctx, doc.CoverI)
		}
		records = append(records, record)
	}
	return records, nil
}

// resolveAuthorNames turns author references into a joined display string.
// Lookups run through a pool of authorLookupWorkers; any single failure only
// drops that name. Provider order is preserved.
func (c *OpenLibraryClient) resolveAuthorNames(ctx context.Context, refs []openLibraryAuthorRef) *string {
	if len(refs) == 0 {
		return nil
	}

	names := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(authorLookupWorkers)

	for i, ref := range refs {
		i, ref := i, ref
		if ref.Key == "" {
			continue
		}
		g.Go(func() error {
			name, err := c.fetchAuthorName(gctx, ref.Key)
			if err != nil {
				log.Printf("Open Library author lookup %s failed: %v", ref.Key, err)
				return nil
			}
			names[i] = name
			return nil
		})
	}
	_ = g.Wait()

	return joinNonEmpty(names)
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s%s.json", c.baseURL, authorKey))
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}

	var author struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &author); err != nil {
		return "", err
	}
	return author.Name, nil
}

// fetchCoverByID downloads the large cover rendition for a cover id. Any
// failure leaves the record without inline cover bytes.
func (c *OpenLibraryClient) fetchCoverByID(ctx context.Context, coverID int) []byte {
	body, status, err := doGet(ctx, c.httpClient, fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, coverID))
	if err != nil {
		log.Printf("Open Library cover %d download failed: %v", coverID, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("Open Library cover %d download returned status %d", coverID, status)
		return nil
	}
	return body
}

// get issues one GET with the rate limiter applied, retrying once on a
// transport error.
func (c *OpenLibraryClient) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	body, status, err := doGet(ctx, c.httpClient, reqURL)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		body, status, err = doGet(ctx, c.httpClient, reqURL)
	}
	return body, status, err
}

// openLibraryLanguage maps two-letter codes to the ISO 639-2 codes the
// search endpoint expects. Unknown codes pass through unchanged.
func openLibraryLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "":
		return ""
	case "es":
		return "spa"
	case "en":
		return "eng"
	case "fr":
		return "fre"
	case "de":
		return "ger"
	case "it":
		return "ita"
	case "ca":
		return "cat"
	default:
		return strings.TrimSpace(language)
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Open Library API response types.

type openLibraryEdition struct {
	Title         string                 `json:"title"`
	Authors       []openLibraryAuthorRef `json:"authors"`
	Publishers    []string               `json:"publishers"`
	NumberOfPages int                    `json:"number_of_pages"`
	Description   openLibraryText        `json:"description"`
	PublishDate   string                 `json:"publish_date"`
	Languages     []openLibraryKeyRef    `json:"languages"`
	Covers        []int                  `json:"covers"`
}

type openLibraryAuthorRef struct {
	Key string `json:"key"`
}

type openLibraryKeyRef struct {
	Key string `json:"key"`
}

// openLibraryText handles fields serialized either as a bare string or as a
// {"type": ..., "value": ...} object.
type openLibraryText struct {
	Value string
}

func (t *openLibraryText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Value = obj.Value
	return nil
}

func languageKeys(refs []openLibraryKeyRef) []string {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, strings.TrimPrefix(ref.Key, "/languages/"))
	}
	return keys
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Title               string          `json:"title"`
	AuthorName          []string        `json:"author_name"`
	ISBN                []string        `json:"isbn"`
	Publisher           []string        `json:"publisher"`
	FirstSentence       openLibraryList `json:"first_sentence"`
	Language            []string        `json:"language"`
	NumberOfPagesMedian int             `json:"number_of_pages_median"`
	PublishDate         []string        `json:"publish_date"`
	CoverI              int             `json:"cover_i"`
}

// openLibraryList handles fields serialized either as a bare string or as an
// array of strings, of which the first element is kept.
type openLibraryList struct {
	Value string
}

func (l *openLibraryList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.Value = s
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) > 0 {
		l.Value = values[0]
	}
	return nil
}

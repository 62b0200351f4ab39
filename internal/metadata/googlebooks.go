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

	"github.com/openshelf/openshelf/internal/ratelimit"
)

// GoogleBooksClient fetches book metadata from the Google Books volumes API.
type GoogleBooksClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	rateLimiter *ratelimit.Limiter
}

// NewGoogleBooksClient creates a rate-limited Google Books client. The API
// key is appended to every request; an empty key is allowed and simply
// subjects the caller to the anonymous quota.
func NewGoogleBooksClient(apiKey string) *GoogleBooksClient {
	return &GoogleBooksClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     "https://www.googleapis.com/books/v1",
		apiKey:      apiKey,
		rateLimiter: ratelimit.New("GoogleBooks", 1),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *GoogleBooksClient) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// FetchByISBN looks a single volume up by ISBN and returns its normalized
// record. A non-success status or an empty result set means "no data" and
// returns (nil, nil); a payload that fails to decode is a real error.
func (c *GoogleBooksClient) FetchByISBN(ctx context.Context, isbn string) (*BookRecord, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	reqURL := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	if c.apiKey != "" {
		reqURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch volume by ISBN: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var response googleVolumesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode Google Books response: %w", err)
	}
	if len(response.Items) == 0 {
		return nil, nil
	}

	item := selectItemWithThumbnail(response.Items)
	return item.toRecord(), nil
}

// Search queries volumes by title and/or author, optionally restricted to a
// language. At least one of title/author must be non-blank; otherwise the
// result is empty without a network call. Provider errors and malformed
// payloads also yield an empty list: a failed search is "no data", not a
// failure of the caller's request.
func (c *GoogleBooksClient) Search(ctx context.Context, title, author, language string) ([]BookRecord, error) {
	var queryParts []string
	if strings.TrimSpace(title) != "" {
		queryParts = append(queryParts, "intitle:"+strings.TrimSpace(title))
	}
	if strings.TrimSpace(author) != "" {
		queryParts = append(queryParts, "inauthor:"+strings.TrimSpace(author))
	}
	if len(queryParts) == 0 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape(strings.Join(queryParts, "+")))
	if strings.TrimSpace(language) != "" {
		reqURL += "&langRestrict=" + url.QueryEscape(strings.TrimSpace(language))
	}
	if c.apiKey != "" {
		reqURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		log.Printf("Google Books search failed: %v", err)
		return nil, nil
	}
	if status != http.StatusOK {
		log.Printf("Google Books search returned status %d", status)
		return nil, nil
	}

	var response googleVolumesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		log.Printf("Google Books search returned malformed payload: %v", err)
		return nil, nil
	}

	var records []BookRecord
	for i := range response.Items {
		record := response.Items[i].toRecord()
		// Search results without an ISBN cannot be deduplicated later.
		if !present(record.ISBN) {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// get issues one GET with the rate limiter applied, retrying once on a
// transport error.
func (c *GoogleBooksClient) get(ctx context.Context, reqURL string) ([]byte, int, error) {
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

// Google Books API response types.

type googleVolumesResponse struct {
	TotalItems int               `json:"totalItems"`
	Items      []googleBooksItem `json:"items"`
}

type googleBooksItem struct {
	VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	AccessInfo googleAccessInfo `json:"accessInfo"`
}

type googleVolumeInfo struct {
	Title               string                     `json:"title"`
	Authors             []string                   `json:"authors"`
	Publisher           string                     `json:"publisher"`
	Description         string                     `json:"description"`
	Categories          []string                   `json:"categories"`
	PageCount           int                        `json:"pageCount"`
	PublishedDate       string                     `json:"publishedDate"`
	Language            string                     `json:"language"`
	ImageLinks          googleImageLinks           `json:"imageLinks"`
	IndustryIdentifiers []googleIndustryIdentifier `json:"industryIdentifiers"`
}

type googleImageLinks struct {
	Thumbnail string `json:"thumbnail"`
}

type googleIndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type googleAccessInfo struct {
	Country string `json:"country"`
}

// isbn prefers the ISBN-13 identifier over ISBN-10.
func (v *googleVolumeInfo) isbn() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// toRecord normalizes one volume into the canonical record shape.
func (item *googleBooksItem) toRecord() *BookRecord {
	volume := &item.VolumeInfo
	return &BookRecord{
		ISBN:            optString(volume.isbn()),
		Title:           optString(volume.Title),
		Author:          joinNonEmpty(volume.Authors),
		Publisher:       optString(volume.Publisher),
		Summary:         optString(volume.Description),
		Genre:           joinNonEmpty(volume.Categories),
		PageCount:       optInt(volume.PageCount),
		PublicationDate: parseProviderDate(volume.PublishedDate),
		Language:        optString(volume.Language),
		Country:         optString(item.AccessInfo.Country),
		CoverURL:        optString(volume.ImageLinks.Thumbnail),
	}
}

// selectItemWithThumbnail picks the first result carrying cover art, falling
// back to the first result.
func selectItemWithThumbnail(items []googleBooksItem) *googleBooksItem {
	for i := range items {
		if items[i].VolumeInfo.ImageLinks.Thumbnail != "" {
			return &items[i]
		}
	}
	return &items[0]
}

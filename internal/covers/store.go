// Package covers resolves and stores book cover artwork.
//
// A cover source may be an absolute URL, an already-resolved local path, or
// a base64 data URI. Every failure mode here is non-fatal: a book import
// proceeds without artwork rather than aborting.
package covers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// URLPrefix is the public route covers are served from; stored paths are
// relative to it.
const URLPrefix = "/covers/"

// Thumbnail raster size and re-encode quality.
const (
	thumbnailWidth       = 100
	thumbnailHeight      = 150
	thumbnailJPEGQuality = 80
)

// Store saves cover images under a single covers directory.
type Store struct {
	dir        string
	httpClient *http.Client
}

// NewStore creates a cover store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{
		dir:        dir,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Resolve turns a cover source into a (cover, thumbnail) path pair served
// under URLPrefix. Local paths pass through verbatim. URL sources are
// downloaded once and the same image doubles as the thumbnail. Base64
// sources are decoded, saved, and a resized thumbnail is produced. Any
// failure returns ("", "") and is only logged.
func (s *Store) Resolve(ctx context.Context, source, isbn string) (string, string) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ""
	}

	if strings.HasPrefix(source, "data:") {
		return s.saveBase64(source, isbn)
	}

	// Already resolved on a previous import.
	if strings.HasPrefix(source, URLPrefix) {
		return source, source
	}

	parsed, err := url.Parse(source)
	if err != nil || !parsed.IsAbs() {
		log.Printf("cover source is neither an absolute URL nor a local path: %q", source)
		return "", ""
	}

	return s.downloadAndSave(ctx, parsed, isbn)
}

// downloadAndSave fetches the image once and reuses it for both outputs.
func (s *Store) downloadAndSave(ctx context.Context, source *url.URL, isbn string) (string, string) {
	data := s.fetch(ctx, source.String())
	if data == nil {
		return "", ""
	}

	ext := path.Ext(source.Path)
	if ext == "" {
		ext = ".jpg"
	}

	fileName := isbn + ext
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0644); err != nil {
		log.Printf("save cover for ISBN %s: %v", isbn, err)
		return "", ""
	}

	relative := URLPrefix + fileName
	return relative, relative
}

// saveBase64 decodes a data URI, saves the full image, and writes a resized
// JPEG thumbnail next to it.
func (s *Store) saveBase64(source, isbn string) (string, string) {
	parts := strings.Split(source, ",")
	if len(parts) != 2 {
		log.Printf("malformed base64 cover payload for ISBN %s", isbn)
		return "", ""
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		log.Printf("decode base64 cover for ISBN %s: %v", isbn, err)
		return "", ""
	}

	return s.SaveImage(data, extensionFromHeader(parts[0]), isbn)
}

// SaveImage stores raw image bytes as the cover for isbn and writes a
// resized thumbnail next to it. ext must include the leading dot.
func (s *Store) SaveImage(data []byte, ext, isbn string) (string, string) {
	fileName := isbn + ext
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0644); err != nil {
		log.Printf("save cover for ISBN %s: %v", isbn, err)
		return "", ""
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("decode cover image for ISBN %s: %v", isbn, err)
		return "", ""
	}

	thumb := imaging.Resize(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)
	thumbName := isbn + "_thumb" + ext
	out, err := os.Create(filepath.Join(s.dir, thumbName))
	if err != nil {
		log.Printf("create thumbnail for ISBN %s: %v", isbn, err)
		return "", ""
	}
	defer out.Close()

	if err := imaging.Encode(out, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		log.Printf("encode thumbnail for ISBN %s: %v", isbn, err)
		return "", ""
	}

	return URLPrefix + fileName, URLPrefix + thumbName
}

// ResolveSmallest downloads the cover and thumbnail URLs independently and
// returns the smaller byte slice. This feeds schemas that persist a single
// image blob instead of a path pair. Returns nil when neither download
// succeeds.
func (s *Store) ResolveSmallest(ctx context.Context, coverURL, thumbnailURL string) []byte {
	cover := s.fetchIfURL(ctx, coverURL)
	thumb := s.fetchIfURL(ctx, thumbnailURL)

	switch {
	case cover == nil:
		return thumb
	case thumb == nil:
		return cover
	case len(thumb) < len(cover):
		return thumb
	default:
		return cover
	}
}

func (s *Store) fetchIfURL(ctx context.Context, source string) []byte {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	parsed, err := url.Parse(source)
	if err != nil || !parsed.IsAbs() {
		return nil
	}
	return s.fetch(ctx, source)
}

// fetch downloads one image, retrying once on a transport error.
func (s *Store) fetch(ctx context.Context, imageURL string) []byte {
	data, err := s.fetchOnce(ctx, imageURL)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}
		if data, err = s.fetchOnce(ctx, imageURL); err != nil {
			log.Printf("download cover %s: %v", imageURL, err)
			return nil
		}
	}
	return data
}

func (s *Store) fetchOnce(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "OpenShelf/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExtensionFor maps an image content type to a file extension, defaulting
// to .jpg for anything unrecognised.
func ExtensionFor(contentType string) string {
	return extensionFromHeader(contentType)
}

// extensionFromHeader infers a file extension from the MIME segment of a
// data URI.
func extensionFromHeader(header string) string {
	switch {
	case strings.Contains(header, "jpeg"):
		return ".jpg"
	case strings.Contains(header, "png"):
		return ".png"
	case strings.Contains(header, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}

// Package image picks one representative product image from a part's
// image manifest and fetches it. Everything here is best effort: the
// manifest ordering convention is unverified, and any failure is for the
// caller to fold into a not-found result.
package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/render"
)

// Image is fetched image data tagged with its format ("jpeg", "png", ...).
type Image struct {
	Data   []byte
	Format string
}

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Select parses the part's extra document, picks one image URL, and
// fetches it. Any failure in the chain returns an error the caller
// converts to its not-found signal.
func Select(ctx context.Context, extraRaw []byte, fetcher Fetcher) (Image, error) {
	u, err := SelectURL(extraRaw)
	if err != nil {
		return Image{}, err
	}

	format, err := FormatFromURL(u)
	if err != nil {
		return Image{}, err
	}

	data, err := fetcher.Fetch(ctx, u)
	if err != nil {
		return Image{}, fmt.Errorf("fetching %s: %w", u, err)
	}
	return Image{Data: data, Format: format}, nil
}

// SelectURL picks the URL at the middle ordinal of extra.images[0],
// a medium-quality heuristic that assumes the manifest's key order
// tracks ascending resolution.
func SelectURL(extraRaw []byte) (string, error) {
	if len(extraRaw) == 0 {
		return "", fmt.Errorf("empty extra document")
	}

	var extra struct {
		Images []json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(extraRaw, &extra); err != nil {
		return "", fmt.Errorf("parsing extra: %w", err)
	}
	if len(extra.Images) == 0 {
		return "", fmt.Errorf("no image manifest")
	}

	urls, err := render.OrderedValues(extra.Images[0])
	if err != nil {
		return "", fmt.Errorf("parsing image manifest: %w", err)
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("image manifest is empty")
	}

	return urls[len(urls)/2], nil
}

// FormatFromURL derives a format tag from the URL's path extension.
// The only normalization is jpg → jpeg; an absent extension is an error.
func FormatFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing image url: %w", err)
	}

	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "", fmt.Errorf("image url %s has no extension", rawURL)
	}
	if ext == "jpg" {
		ext = "jpeg"
	}
	return ext, nil
}

const maxFetchSize = 5 << 20 // 5MB

// HTTPFetcher fetches URLs with a shared http.Client, capping the
// response size.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("url returned status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
}

package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/masahif/linkspider/internal/parser"
)

// HTMLFetcher implements Fetcher over HTTPClient and the HTML parser
type HTMLFetcher struct {
	httpClient *HTTPClient
}

// NewHTMLFetcher creates a fetcher that uses httpClient
func NewHTMLFetcher(httpClient *HTTPClient) *HTMLFetcher {
	return &HTMLFetcher{httpClient: httpClient}
}

// Fetch downloads url and extracts its anchors.
// Responses with status >= 400 are failures. Non-HTML responses succeed
// with no anchors.
func (f *HTMLFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	resp, err := f.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrFetch, resp.StatusCode)
	}

	page := &Page{
		URL:         url,
		FinalURL:    resp.FinalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
	}

	if resp.Truncated {
		slog.Warn("Page body truncated", "url", url, "limit", len(resp.Body))
	}

	if !isHTML(resp.ContentType) {
		slog.Debug("Skipping HTML parsing", "url", url, "content_type", resp.ContentType)
		return page, nil
	}

	parsed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	page.Title = parsed.Title
	page.Anchors = parsed.Anchors

	slog.Debug("Fetched page", "url", url, "status", resp.StatusCode, "anchors", len(page.Anchors),
		"ttfb", resp.Metrics.TTFB, "download_time", resp.Metrics.DownloadTime)

	return page, nil
}

// isHTML treats a missing Content-Type as HTML
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

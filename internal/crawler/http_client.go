package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

const (
	// DefaultMaxBodySize caps how much of a page body is read
	DefaultMaxBodySize = 10 << 20

	maxRedirects = 10
	acceptHTML   = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
)

// HTTPClient performs the GET requests of a crawl: robots.txt and pages.
// Requests carry the crawler's User-Agent plus any configured headers.
type HTTPClient struct {
	client      *http.Client
	header      http.Header
	maxBodySize int64
}

// HTTPMetrics contains timing metrics for an HTTP request
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
}

// HTTPResponse is a fully read response
type HTTPResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	Truncated   bool // Body was cut at the size limit
	ContentType string
	Metrics     HTTPMetrics
	FinalURL    string // After following redirects
}

// NewHTTPClient creates a client with the given User-Agent and per-request
// timeout
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	header := make(http.Header)
	header.Set("User-Agent", userAgent)
	header.Set("Accept", acceptHTML)

	return &HTTPClient{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				// A crawl talks to a single site
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout:       timeout,
			CheckRedirect: limitRedirects,
		},
		header:      header,
		maxBodySize: DefaultMaxBodySize,
	}
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w after %d hops", ErrTooManyRedirects, len(via))
	}
	return nil
}

// SetCustomHeaders adds headers to every request. A User-Agent entry
// replaces the default one.
func (h *HTTPClient) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.header.Set(k, v)
	}
}

// SetMaxBodySize limits how many bytes of a body are read; <= 0 keeps the current limit
func (h *HTTPClient) SetMaxBodySize(n int64) {
	if n > 0 {
		h.maxBodySize = n
	}
}

// Get fetches url and reads at most the configured number of body bytes.
// Any HTTP status is a response; only transport failures are errors.
func (h *HTTPClient) Get(ctx context.Context, url string) (*HTTPResponse, error) {
	var firstByte time.Time
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotFirstResponseByte: func() { firstByte = time.Now() },
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = h.header.Clone()

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	truncated := int64(len(body)) > h.maxBodySize
	if truncated {
		body = body[:h.maxBodySize]
	}

	metrics := HTTPMetrics{DownloadTime: time.Since(start)}
	if !firstByte.IsZero() {
		metrics.TTFB = firstByte.Sub(start)
	}

	return &HTTPResponse{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        body,
		Truncated:   truncated,
		ContentType: resp.Header.Get("Content-Type"),
		Metrics:     metrics,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Close releases idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

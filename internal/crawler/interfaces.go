package crawler

import (
	"context"
)

// Crawler defines the main crawling interface
type Crawler interface {
	Run(ctx context.Context) (*Result, error)
	Stop() error
	GetStats() CrawlStats
	State() State
}

// Fetcher retrieves a page and extracts its anchors.
// A returned error means the page could not be fetched or parsed; the
// crawler records it and moves on.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// PolicyGate decides whether an absolute URL may be fetched
type PolicyGate interface {
	IsAllowed(url string) bool
}

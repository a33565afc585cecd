package crawler

import "errors"

var (
	// ErrPolicyLoad is returned when robots.txt cannot be fetched or parsed.
	// It is fatal to a crawl run.
	ErrPolicyLoad = errors.New("failed to load robots.txt")
	// ErrSeedDisallowed is returned when the seed URL itself may not be crawled
	ErrSeedDisallowed = errors.New("seed URL is disallowed by robots.txt")
	// ErrAlreadyStarted is returned when Run is called more than once
	ErrAlreadyStarted = errors.New("crawler has already been started")
	// ErrFetch wraps page fetch failures (network errors, HTTP status >= 400)
	ErrFetch = errors.New("fetch failed")
	// ErrParse wraps HTML parse failures
	ErrParse = errors.New("parse failed")
	// ErrTooManyRedirects is returned when a fetch exceeds maxRedirects hops
	ErrTooManyRedirects = errors.New("too many redirects")
)

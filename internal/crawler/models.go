package crawler

import (
	"time"

	"github.com/masahif/linkspider/internal/parser"
)

// Page is the outcome of a successful fetch
type Page struct {
	URL         string          // URL as requested
	FinalURL    string          // URL after redirects
	StatusCode  int             // HTTP status code
	ContentType string          // HTTP Content-Type header
	Title       string          // HTML <title> content
	Anchors     []parser.Anchor // Anchors in document order
}

// Level is one traversal level: the pages visited at it and the links
// recorded on them, both in order.
type Level struct {
	Number  int
	Visited []string
	Links   []string
}

// PageFailure records a page that could not be fetched or parsed
type PageFailure struct {
	URL        string
	Reason     string
	OccurredAt time.Time
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesCrawled int
	PagesFailed  int
	LinksFound   int
	Skipped      int
	StartTime    time.Time
	Duration     time.Duration
}

// Result is the final state of a crawl run
type Result struct {
	SeedURL  string
	SiteBase string
	Levels   []Level
	Failures []PageFailure
	Stats    CrawlStats

	visited map[string]struct{}
}

// NewResult builds a Result and indexes its visited URLs
func NewResult(seedURL, siteBase string, levels []Level, failures []PageFailure) *Result {
	r := &Result{
		SeedURL:  seedURL,
		SiteBase: siteBase,
		Levels:   levels,
		Failures: failures,
	}
	r.index()
	return r
}

func (r *Result) index() {
	r.visited = make(map[string]struct{})
	for _, level := range r.Levels {
		for _, u := range level.Visited {
			r.visited[u] = struct{}{}
		}
	}
}

// IsVisited reports whether url was visited at any level (exact match)
func (r *Result) IsVisited(url string) bool {
	if r.visited == nil {
		r.index()
	}
	_, ok := r.visited[url]
	return ok
}

// VisitedURLs returns all visited URLs in level order
func (r *Result) VisitedURLs() []string {
	var urls []string
	for _, level := range r.Levels {
		urls = append(urls, level.Visited...)
	}
	return urls
}

// LinksToVisited counts the links recorded at level that point to a visited page.
// Repeated links are counted each time they appear.
func (r *Result) LinksToVisited(level Level) int {
	count := 0
	for _, link := range level.Links {
		if r.IsVisited(link) {
			count++
		}
	}
	return count
}

// State is the lifecycle state of a crawler
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

package crawler

import (
	"sync"
)

// ClaimStatus is the outcome of Registry.Claim
type ClaimStatus int

const (
	// Claimed means the caller now owns the URL and may fetch it
	Claimed ClaimStatus = iota
	// AlreadyClaimed means the URL was visited or claimed before
	AlreadyClaimed
	// BudgetExhausted means the page budget has been used up
	BudgetExhausted
)

func (s ClaimStatus) String() string {
	switch s {
	case Claimed:
		return "claimed"
	case AlreadyClaimed:
		return "already_crawled"
	case BudgetExhausted:
		return "depth_limit"
	default:
		return "unknown"
	}
}

// Registry tracks the pages visited per level and the links found on them.
// It is append-only for the lifetime of one crawl and safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	visited  map[int][]string
	links    map[int][]string
	seen     map[string]struct{} // visited URLs, exact match
	claimed  map[string]struct{} // visited, in flight or failed
	maxLevel int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		visited: make(map[int][]string),
		links:   make(map[int][]string),
		seen:    make(map[string]struct{}),
		claimed: make(map[string]struct{}),
	}
}

// Claim atomically reserves url for fetching. It succeeds only when url has
// not been visited or claimed before and fewer than budget URLs have been
// claimed so far.
func (r *Registry) Claim(url string, budget int) ClaimStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claimed[url]; ok {
		return AlreadyClaimed
	}
	if _, ok := r.seen[url]; ok {
		return AlreadyClaimed
	}
	if len(r.claimed) >= budget {
		return BudgetExhausted
	}

	r.claimed[url] = struct{}{}
	return Claimed
}

// Claims returns the number of URLs claimed so far
func (r *Registry) Claims() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}

// RecordVisit appends url to the pages visited at level
func (r *Registry) RecordVisit(level int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visited[level] = append(r.visited[level], url)
	r.seen[url] = struct{}{}
	r.claimed[url] = struct{}{}
	if level > r.maxLevel {
		r.maxLevel = level
	}
}

// RecordLink appends url to the links found at level
func (r *Registry) RecordLink(level int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[level] = append(r.links[level], url)
	if level > r.maxLevel {
		r.maxLevel = level
	}
}

// AlreadyVisited reports whether url has been visited at any level
func (r *Registry) AlreadyVisited(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[url]
	return ok
}

// AlreadyLinkedAtLevel reports whether url was already recorded as a link at level
func (r *Registry) AlreadyLinkedAtLevel(level int, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, link := range r.links[level] {
		if link == url {
			return true
		}
	}
	return false
}

// LinksAt returns a copy of the links recorded at level
func (r *Registry) LinksAt(level int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.links[level]...)
}

// Levels returns a snapshot of all levels in ascending order
func (r *Registry) Levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()

	levels := make([]Level, 0, r.maxLevel)
	for n := 1; n <= r.maxLevel; n++ {
		levels = append(levels, Level{
			Number:  n,
			Visited: append([]string(nil), r.visited[n]...),
			Links:   append([]string(nil), r.links[n]...),
		})
	}
	return levels
}

// Package crawler provides the core web crawling functionality.
// It implements a depth-bounded, robots.txt-gated traversal of a single site
// driven by an explicit worklist, in depth-first or breadth-first order.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masahif/linkspider/internal/config"
	"github.com/masahif/linkspider/internal/linkurl"
)

// statsInterval is how often progress is logged during a crawl
var statsInterval = 10 * time.Second

// DefaultCrawler implements the Crawler interface
type DefaultCrawler struct {
	config      *config.CrawlConfig
	httpClient  *HTTPClient
	fetcher     Fetcher
	rateLimiter *RateLimiter
	resolver    linkurl.Resolver
	registry    *Registry
	gate        PolicyGate
	seedURL     string
	siteBase    string

	// State
	state      State
	stateMutex sync.Mutex
	level      int
	failures   []PageFailure
	stats      CrawlStats
	statsMutex sync.RWMutex
	cancel     context.CancelFunc
}

// NewCrawler creates a crawler that fetches pages over HTTP.
func NewCrawler(cfg *config.CrawlConfig) (*DefaultCrawler, error) {
	httpClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)

	if headers := cfg.HeaderMap(); len(headers) > 0 {
		httpClient.SetCustomHeaders(headers)
		slog.Info("Set custom headers", "count", len(headers))
	}

	return NewCrawlerWithFetcher(cfg, httpClient, NewHTMLFetcher(httpClient))
}

// NewCrawlerWithFetcher creates a crawler with a custom page fetcher.
// httpClient is still used to load robots.txt.
func NewCrawlerWithFetcher(cfg *config.CrawlConfig, httpClient *HTTPClient, fetcher Fetcher) (*DefaultCrawler, error) {
	seedURL, err := normalizeSeed(cfg.SeedURL)
	if err != nil {
		return nil, err
	}

	siteBase, err := linkurl.SiteBase(seedURL)
	if err != nil {
		return nil, err
	}

	return &DefaultCrawler{
		config:      cfg,
		httpClient:  httpClient,
		fetcher:     fetcher,
		rateLimiter: NewRateLimiter(cfg.Delay()),
		resolver:    linkurl.Resolver{Strict: cfg.StrictResolve},
		registry:    NewRegistry(),
		seedURL:     seedURL,
		siteBase:    siteBase,
		state:       StateIdle,
	}, nil
}

// SetPolicyGate replaces the robots.txt gate. When set before Run, robots.txt
// is not fetched.
func (c *DefaultCrawler) SetPolicyGate(gate PolicyGate) {
	c.gate = gate
}

// SiteBase returns the URL prefix that bounds the crawl
func (c *DefaultCrawler) SiteBase() string {
	return c.siteBase
}

// Run loads the robots policy and walks the site from the seed URL.
//
// Page failures are recorded in the result and do not stop the crawl. The
// run ends early only when the policy cannot be loaded, the seed itself is
// disallowed, or ctx is cancelled; in the last case the partial result is
// returned together with the context error.
func (c *DefaultCrawler) Run(ctx context.Context) (*Result, error) {
	if !c.transition(StateIdle, StateRunning) {
		return nil, ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.stateMutex.Lock()
	c.cancel = cancel
	c.stateMutex.Unlock()

	c.statsMutex.Lock()
	c.stats.StartTime = time.Now()
	c.statsMutex.Unlock()

	slog.Info("Starting crawler", "seed_url", c.seedURL, "site", c.siteBase,
		"max_depth", c.config.MaxDepth, "strategy", c.config.Strategy, "concurrency", c.config.Concurrency)

	if err := c.loadPolicy(ctx); err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	if !c.gate.IsAllowed(c.seedURL) {
		c.setState(StateFailed)
		return nil, fmt.Errorf("%w: %s", ErrSeedDisallowed, c.seedURL)
	}

	var wg sync.WaitGroup
	reporterCtx, stopReporter := context.WithCancel(ctx)
	wg.Add(1)
	go c.statsReporter(reporterCtx, &wg)

	var err error
	if c.config.Strategy == config.StrategyBFS {
		err = c.walkBreadthFirst(ctx)
	} else {
		err = c.walkDepthFirst(ctx)
	}

	stopReporter()
	wg.Wait()

	result := c.result()
	if err != nil {
		slog.Warn("Crawling stopped early", "error", err, "pages", result.Stats.PagesCrawled)
		c.setState(StateFailed)
		return result, err
	}

	slog.Info("Crawling completed", "pages", result.Stats.PagesCrawled, "failed", result.Stats.PagesFailed,
		"links", result.Stats.LinksFound, "skipped", result.Stats.Skipped, "duration", result.Stats.Duration)
	c.setState(StateDone)
	return result, nil
}

// Stop cancels a running crawl
func (c *DefaultCrawler) Stop() error {
	c.stateMutex.Lock()
	cancel := c.cancel
	c.stateMutex.Unlock()

	if cancel != nil {
		cancel()
	}
	c.httpClient.Close()
	return nil
}

// GetStats returns current crawling statistics
func (c *DefaultCrawler) GetStats() CrawlStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	stats := c.stats
	if !stats.StartTime.IsZero() {
		stats.Duration = time.Since(stats.StartTime)
	}
	return stats
}

// State returns the lifecycle state
func (c *DefaultCrawler) State() State {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.state
}

// loadPolicy fetches robots.txt unless a gate was injected
func (c *DefaultCrawler) loadPolicy(ctx context.Context) error {
	if c.gate != nil {
		return nil
	}

	gate, err := LoadRobotsGate(ctx, c.httpClient, c.siteBase, c.config.IgnoreRobots)
	if err != nil {
		return err
	}
	c.gate = gate

	if delay := gate.CrawlDelay(); delay > 0 {
		if u, err := url.Parse(c.siteBase); err == nil {
			c.rateLimiter.SetHostDelay(u.Host, delay)
			slog.Info("Applying robots.txt crawl delay", "host", u.Host, "delay", c.rateLimiter.HostDelay(u.Host))
		}
	}
	return nil
}

// walkDepthFirst visits pages in pre-order, left to right. Children are
// pushed in reverse so the leftmost link is taken first, and admission is
// checked when a URL is taken off the stack.
func (c *DefaultCrawler) walkDepthFirst(ctx context.Context) error {
	stack := []string{c.seedURL}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !c.admit(next) {
			continue
		}

		page, err := c.fetch(ctx, next)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		links := c.commit(next, page, err)
		for i := len(links) - 1; i >= 0; i-- {
			stack = append(stack, links[i])
		}
	}

	return nil
}

type fetchOutcome struct {
	page *Page
	err  error
}

// walkBreadthFirst visits the site in waves. Every candidate in a wave is
// admitted in discovery order, the admitted pages are fetched concurrently
// and then committed in admission order, so levels come out the same as a
// sequential queue walk.
func (c *DefaultCrawler) walkBreadthFirst(ctx context.Context) error {
	wave := []string{c.seedURL}

	for len(wave) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		admitted := make([]string, 0, len(wave))
		for _, candidate := range wave {
			if c.admit(candidate) {
				admitted = append(admitted, candidate)
			}
		}

		outcomes := c.fetchAll(ctx, admitted)
		if err := ctx.Err(); err != nil {
			return err
		}

		var next []string
		for i, u := range admitted {
			next = append(next, c.commit(u, outcomes[i].page, outcomes[i].err)...)
		}
		wave = next
	}

	return nil
}

// fetchAll fetches urls with at most Concurrency requests in flight
func (c *DefaultCrawler) fetchAll(ctx context.Context, urls []string) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	for i, u := range urls {
		g.Go(func() error {
			page, err := c.fetch(gctx, u)
			outcomes[i] = fetchOutcome{page: page, err: err}
			// Page failures are recorded, not propagated
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// admit checks a candidate against the robots gate, the visited registry
// and the page budget. A successful admission claims the URL.
func (c *DefaultCrawler) admit(candidate string) bool {
	if !c.gate.IsAllowed(candidate) {
		slog.Debug("URL disallowed", "url", candidate)
		c.incrementSkipped()
		return false
	}

	status := c.registry.Claim(candidate, c.config.MaxDepth)
	if status != Claimed {
		slog.Debug("URL skipped", "url", candidate, "reason", status.String())
		c.incrementSkipped()
		return false
	}
	return true
}

// fetch waits for the rate limiter and fetches u
func (c *DefaultCrawler) fetch(ctx context.Context, u string) (*Page, error) {
	if err := c.rateLimiter.Wait(ctx, u); err != nil {
		return nil, err
	}
	return c.fetcher.Fetch(ctx, u)
}

// commit records the outcome of fetching u. On success the page gets the
// next level and its links are resolved and recorded; the recorded links are
// returned as the next candidates. On failure the page is recorded as failed
// and nil is returned.
func (c *DefaultCrawler) commit(u string, page *Page, fetchErr error) []string {
	if fetchErr != nil {
		c.recordFailure(u, fetchErr)
		return nil
	}

	c.level++
	level := c.level
	c.registry.RecordVisit(level, u)

	suppress := c.config.SuppressDuplicates()
	var recorded []string
	for _, anchor := range page.Anchors {
		if !anchor.HasHref {
			continue
		}

		link := c.resolver.Resolve(anchor.Href, u, c.siteBase)
		if suppress && c.registry.AlreadyLinkedAtLevel(level, link) {
			continue
		}

		c.registry.RecordLink(level, link)
		recorded = append(recorded, link)
	}

	c.statsMutex.Lock()
	c.stats.PagesCrawled++
	c.stats.LinksFound += len(recorded)
	c.statsMutex.Unlock()

	slog.Info("Visited page", "level", level, "url", u, "links", len(recorded))
	return recorded
}

func (c *DefaultCrawler) recordFailure(u string, err error) {
	slog.Warn("Failed to fetch page", "url", u, "error", err)

	c.failures = append(c.failures, PageFailure{
		URL:        u,
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	})

	c.statsMutex.Lock()
	c.stats.PagesFailed++
	c.statsMutex.Unlock()
}

func (c *DefaultCrawler) incrementSkipped() {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.stats.Skipped++
}

func (c *DefaultCrawler) result() *Result {
	result := NewResult(c.seedURL, c.siteBase, c.registry.Levels(), append([]PageFailure(nil), c.failures...))
	result.Stats = c.GetStats()
	return result
}

// statsReporter periodically reports crawling statistics
func (c *DefaultCrawler) statsReporter(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.GetStats()
			slog.Info("Crawling stats", "crawled", stats.PagesCrawled, "failed", stats.PagesFailed,
				"claimed", c.registry.Claims(), "skipped", stats.Skipped, "duration", stats.Duration)
		}
	}
}

func (c *DefaultCrawler) transition(from, to State) bool {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if c.state != from {
		return false
	}
	c.state = to
	return true
}

func (c *DefaultCrawler) setState(s State) {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	c.state = s
}

// normalizeSeed gives a host-only seed an explicit root path so that it lies
// under its own site base.
func normalizeSeed(seed string) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("invalid seed URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %s", linkurl.ErrNotAbsolute, seed)
	}
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

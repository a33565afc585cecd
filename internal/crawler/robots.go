package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/masahif/linkspider/internal/linkurl"
)

// robotsAgent is the user-agent group consulted in robots.txt
const robotsAgent = "*"

// RobotsGate decides whether a URL may be crawled: it must lie under the
// site base and be permitted by the site's robots.txt.
type RobotsGate struct {
	siteBase string
	rules    *robotstxt.RobotsData // nil when robots.txt is ignored
}

// NewRobotsGate creates a gate from already parsed rules. A nil rules value
// allows every on-site URL.
func NewRobotsGate(siteBase string, rules *robotstxt.RobotsData) *RobotsGate {
	return &RobotsGate{
		siteBase: siteBase,
		rules:    rules,
	}
}

// LoadRobotsGate fetches <siteBase>robots.txt once and builds a gate from it.
//
// Network errors, 5xx responses and unparseable files yield ErrPolicyLoad.
// A 4xx response means there is no policy and everything on-site is allowed.
func LoadRobotsGate(ctx context.Context, httpClient *HTTPClient, siteBase string, ignore bool) (*RobotsGate, error) {
	if ignore {
		slog.Info("Ignoring robots.txt", "site", siteBase)
		return NewRobotsGate(siteBase, nil), nil
	}

	robotsURL := siteBase + "robots.txt"
	resp, err := httpClient.Get(ctx, robotsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPolicyLoad, robotsURL, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s: unexpected status code %d", ErrPolicyLoad, robotsURL, resp.StatusCode)
	}

	rules, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPolicyLoad, robotsURL, err)
	}

	slog.Info("Loaded robots.txt", "url", robotsURL, "status", resp.StatusCode)
	return NewRobotsGate(siteBase, rules), nil
}

// IsAllowed reports whether absoluteURL may be fetched
func (g *RobotsGate) IsAllowed(absoluteURL string) bool {
	if !strings.HasPrefix(absoluteURL, g.siteBase) {
		return false
	}

	path, ok := linkurl.ToSiteRelative(absoluteURL, g.siteBase)
	if !ok {
		return false
	}

	if g.rules == nil {
		return true
	}
	return g.rules.TestAgent(path, robotsAgent)
}

// CrawlDelay returns the Crawl-delay of the "*" group, or 0
func (g *RobotsGate) CrawlDelay() time.Duration {
	if g.rules == nil {
		return 0
	}
	group := g.rules.FindGroup(robotsAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// SiteBase returns the URL prefix that bounds the crawl
func (g *RobotsGate) SiteBase() string {
	return g.siteBase
}

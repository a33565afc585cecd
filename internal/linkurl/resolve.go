// Package linkurl turns raw href values into absolute URLs and maps absolute
// URLs back to site-relative paths for robots.txt lookups.
package linkurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotAbsolute is returned when a seed URL has no scheme or host
var ErrNotAbsolute = errors.New("URL must be absolute")

// Resolver converts hrefs found on a page into absolute URLs.
//
// The default mode concatenates "./x", "/x" and bare relative hrefs onto the
// site base. Strict mode joins every relative href against the page it was
// found on, as RFC 3986 describes.
type Resolver struct {
	Strict bool
}

// Resolve returns the absolute form of href found on currentPageURL.
// Links that already carry a scheme (http:, https:, mailto:, ...) are
// returned unchanged.
func (r Resolver) Resolve(href, currentPageURL, siteBase string) string {
	switch {
	case hasScheme(href):
		return href
	case strings.HasPrefix(href, "//"):
		return schemeOf(siteBase) + ":" + href
	case r.Strict:
		return join(currentPageURL, href)
	case strings.HasPrefix(href, "./"):
		return siteBase + href[2:]
	case strings.HasPrefix(href, "/"):
		return siteBase + href[1:]
	case strings.HasPrefix(href, ".."):
		return join(currentPageURL, href)
	default:
		return siteBase + href
	}
}

// Resolve is a shorthand for the default (non-strict) Resolver.
func Resolve(href, currentPageURL, siteBase string) string {
	return Resolver{}.Resolve(href, currentPageURL, siteBase)
}

// ToSiteRelative returns the path of u relative to siteBase, always starting
// with "/". The second result is false when no path can be derived: empty
// input, parent-relative links ("..") and URLs outside the site.
func ToSiteRelative(u, siteBase string) (string, bool) {
	switch {
	case u == "":
		return "", false
	case strings.HasPrefix(u, ".."):
		return "", false
	case strings.HasPrefix(u, "./"):
		return u[1:], true
	case strings.HasPrefix(u, "/"):
		return u, true
	case siteBase != "" && strings.HasPrefix(u, siteBase):
		return "/" + strings.TrimPrefix(u, siteBase), true
	default:
		return "", false
	}
}

// SiteBase returns the directory URL of seed, ending in "/".
// Query and fragment are dropped.
//
//	http://example.com           -> http://example.com/
//	http://example.com/a/b.html  -> http://example.com/a/
func SiteBase(seed string) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("invalid seed URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, seed)
	}

	dir := u.ResolveReference(&url.URL{Path: "./"})
	dir.RawQuery = ""
	dir.Fragment = ""
	return dir.String(), nil
}

// IsMailto reports whether the link is an e-mail link
func IsMailto(link string) bool {
	return len(link) >= 7 && strings.EqualFold(link[:7], "mailto:")
}

// join resolves ref against base. When either side fails to parse, ref is
// returned as is; the result then never passes the site-scope check.
func join(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed by ':'
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

func schemeOf(siteBase string) string {
	if i := strings.Index(siteBase, "://"); i > 0 {
		return siteBase[:i]
	}
	return "http"
}

package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum gap between fetches to the same host.
// Each host gets a token bucket of size one refilled every delay.
type RateLimiter struct {
	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	base    time.Duration
}

// NewRateLimiter creates a new rate limiter. A zero delay disables waiting.
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		perHost: make(map[string]*rate.Limiter),
		base:    defaultDelay,
	}
}

// Wait blocks until a request to rawURL may be sent or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return r.limiterFor(u.Host).Wait(ctx)
}

// SetHostDelay raises the delay for host, e.g. to honour a robots.txt
// Crawl-delay. It never lowers a delay already in effect.
func (r *RateLimiter) SetHostDelay(host string, delay time.Duration) {
	if delay <= r.HostDelay(host) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.perHost[hostKey(host)] = rate.NewLimiter(rate.Every(delay), 1)
}

// HostDelay returns the delay currently applied to host
func (r *RateLimiter) HostDelay(host string) time.Duration {
	limit := r.limiterFor(host).Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}

func (r *RateLimiter) limiterFor(host string) *rate.Limiter {
	key := hostKey(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.perHost[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(r.base), 1)
		r.perHost[key] = limiter
	}
	return limiter
}

// hostKey folds case so that Example.com and example.com share a bucket
func hostKey(host string) string {
	return strings.ToLower(host)
}

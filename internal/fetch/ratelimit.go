package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/email-enricher/internal/metrics"
)

// Limiter paces requests per domain with a keyed token-bucket registry.
// Waiting on one domain never blocks another; buckets are created
// lazily on first use.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	overrides    map[string]rateSetting
	defaultRate  rate.Limit
	defaultBurst int
}

type rateSetting struct {
	r     rate.Limit
	burst int
}

// NewLimiter builds a Limiter. A non-positive rps disables pacing.
func NewLimiter(defaultRPS float64, defaultBurst int) *Limiter {
	r := rate.Limit(defaultRPS)
	if defaultRPS <= 0 {
		r = rate.Inf
	}
	if defaultBurst <= 0 {
		defaultBurst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		overrides:    make(map[string]rateSetting),
		defaultRate:  r,
		defaultBurst: defaultBurst,
	}
}

// SetRate pins a specific rate for one host, used to apply API budgets
// (e.g. Hunter's per-minute quota) on top of the crawl default.
func (l *Limiter) SetRate(host string, rps float64, burst int) {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[host] = rateSetting{r: r, burst: burst}
	delete(l.limiters, host)
}

// Wait blocks until a token is available for host, respecting ctx.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		host = "unknown"
	}
	limiter := l.limiterFor(host)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

// WaitURL is Wait keyed by the URL's hostname.
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return l.Wait(ctx, host)
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	r, burst := l.defaultRate, l.defaultBurst
	if setting, ok := l.overrides[host]; ok {
		r, burst = setting.r, setting.burst
	}
	lim := rate.NewLimiter(r, burst)
	l.limiters[host] = lim
	return lim
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/email-enricher/internal/metrics"
)

const maxRobotsBytes = 1 << 20

// Robots enforces robots.txt directives per host. The robots file is
// fetched at most once per host for the lifetime of the gate;
// concurrent first callers share a single in-flight fetch. A fetch or
// parse failure defaults to allow and is logged once.
type Robots struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
	cache     sync.Map // host -> *robotstxt.RobotsData (nil entry = fail-open)
	group     singleflight.Group
}

// NewRobots builds a robots gate for the given crawl identity.
func NewRobots(userAgent string, timeout time.Duration, logger *zap.Logger) *Robots {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Robots{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed reports whether the crawl identity may fetch rawURL.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	data := r.load(ctx, parsed)
	if data == nil {
		// Fail-open entry: the robots file could not be fetched or parsed.
		return true
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (r *Robots) load(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := r.cache.Load(hostKey); ok {
		data, _ := cached.(*robotstxt.RobotsData)
		return data
	}

	// Coalesce concurrent first fetches for the same host.
	result, _, _ := r.group.Do(hostKey, func() (any, error) {
		data, err := r.fetch(ctx, parsed)
		if err != nil {
			if ctx.Err() != nil {
				// The caller went away, not the host. Fail open for
				// this call but leave the cache empty so a later
				// caller retries the fetch.
				return (*robotstxt.RobotsData)(nil), nil
			}
			r.logger.Warn("robots fetch failed; allowing access",
				zap.String("host", parsed.Host),
				zap.Error(err),
			)
			metrics.ObserveRobotsFailOpen()
			data = nil
		}
		r.cache.Store(hostKey, data)
		return data, nil
	})
	data, _ := result.(*robotstxt.RobotsData)
	return data
}

func (r *Robots) fetch(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   "/robots.txt",
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("close robots body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

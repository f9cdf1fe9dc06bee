// Package fetch implements the polite HTTP layer: robots gating,
// per-domain rate limiting, and retrying page fetches.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
	"github.com/JakeFAU/email-enricher/internal/metrics"
)

const maxPageBytes = 2 << 20

// RobotsPolicy answers allow/deny per URL.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Config controls Client behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Client is the retrying page fetcher used by the crawler and the
// resolver. One call to Fetch is one logical page: internal retries on
// transient failures collapse into a single PageResult.
type Client struct {
	http    *http.Client
	robots  RobotsPolicy
	limiter *Limiter
	retry   *RetryPolicy
	cfg     Config
	logger  *zap.Logger
}

// NewClient wires the fetch stack together.
func NewClient(cfg Config, robots RobotsPolicy, limiter *Limiter, retry *RetryPolicy, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(cfg.Timeout),
		},
		robots:  robots,
		limiter: limiter,
		retry:   retry,
		cfg:     cfg,
		logger:  logger,
	}
}

// Fetch retrieves one URL. Robots denial yields a blocked result;
// exhausted retries or a terminal HTTP status yield an error result.
func (c *Client) Fetch(ctx context.Context, rawURL string) enrich.PageResult {
	start := time.Now()

	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		c.logger.Debug("fetch denied by robots", zap.String("url", rawURL))
		metrics.ObserveFetch(string(enrich.FetchBlocked))
		return enrich.PageResult{
			URL:      rawURL,
			Status:   enrich.FetchBlocked,
			Reason:   "robots.txt disallow",
			Duration: time.Since(start),
		}
	}

	result := c.fetchWithRetry(ctx, rawURL)
	result.Duration = time.Since(start)
	metrics.ObserveFetch(string(result.Status))

	switch result.Status {
	case enrich.FetchOK:
		c.logger.Debug("fetch ok",
			zap.String("url", rawURL),
			zap.Int("status_code", result.StatusCode),
			zap.Int("bytes", len(result.Body)),
			zap.Duration("duration", result.Duration),
		)
	default:
		c.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status_code", result.StatusCode),
			zap.String("reason", result.Reason),
			zap.Duration("duration", result.Duration),
		)
	}
	return result
}

func (c *Client) fetchWithRetry(ctx context.Context, rawURL string) enrich.PageResult {
	var lastReason string
	var lastStatus int

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
				return errorResult(rawURL, lastStatus, fmt.Sprintf("rate limit: %v", err))
			}
		}

		body, statusCode, retryAfter, err := c.doGet(ctx, rawURL)
		switch {
		case err == nil && statusCode >= 200 && statusCode < 300:
			return enrich.PageResult{
				URL:        rawURL,
				Status:     enrich.FetchOK,
				StatusCode: statusCode,
				Body:       body,
			}
		case err != nil:
			lastReason = err.Error()
			lastStatus = 0
		default:
			lastReason = fmt.Sprintf("http status %d", statusCode)
			lastStatus = statusCode
		}

		if !c.retry.ShouldRetry(err, statusCode, attempt) {
			return errorResult(rawURL, lastStatus, lastReason)
		}

		delay := c.retry.Backoff(attempt)
		if retryAfter > 0 && retryAfter > delay {
			delay = retryAfter
		}
		metrics.ObserveFetchRetry()
		c.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.String("reason", lastReason),
			zap.Duration("backoff", delay),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return errorResult(rawURL, lastStatus, lastReason)
		}
	}
}

func (c *Client) doGet(ctx context.Context, rawURL string) (body []byte, statusCode int, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, retryAfter, nil
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	return body, resp.StatusCode, 0, nil
}

func errorResult(rawURL string, statusCode int, reason string) enrich.PageResult {
	return enrich.PageResult{
		URL:        rawURL,
		Status:     enrich.FetchError,
		StatusCode: statusCode,
		Reason:     reason,
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

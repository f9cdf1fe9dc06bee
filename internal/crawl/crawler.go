// Package crawl walks a company website breadth-first looking for
// contact email addresses, honoring hard depth and page budgets.
package crawl

import (
	"bytes"
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// priorityPaths are seeded alongside the homepage because they are the
// pages most likely to carry addresses.
var priorityPaths = []string{
	"/contact",
	"/about",
	"/team",
	"/people",
	"/company",
	"/careers",
	"/jobs",
}

// pathKeywords promote a discovered link into the priority queue.
var pathKeywords = []string{
	"contact", "about", "team", "people", "company", "career", "job", "join",
}

// skippedExtensions are asset URLs never worth fetching.
var skippedExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".pdf", ".zip", ".gz", ".mp4", ".webm", ".woff", ".woff2",
}

// Extractor pulls email candidates out of a fetched page.
type Extractor interface {
	Extract(page enrich.PageResult) []enrich.EmailCandidate
}

// Config bounds a single crawl.
type Config struct {
	// MaxDepth is the deepest BFS level fetched; the seeds are depth 0.
	MaxDepth int
	// MaxPages caps logical page fetches across the whole crawl.
	MaxPages int
	// Concurrency is the number of in-flight fetches within one level.
	Concurrency int
	// StopOnFirstEmail ends the crawl as soon as any address is found.
	StopOnFirstEmail bool
}

// Stats summarizes what a crawl did, by logical page.
type Stats struct {
	PagesFetched int
	PagesOK      int
	PagesBlocked int
	PagesFailed  int
}

// Crawler runs bounded BFS crawls against a single fetcher.
type Crawler struct {
	fetcher   enrich.Fetcher
	extractor Extractor
	cfg       Config
	logger    *zap.Logger
}

func New(fetcher enrich.Fetcher, extractor Extractor, cfg Config, logger *zap.Logger) *Crawler {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 2
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{fetcher: fetcher, extractor: extractor, cfg: cfg, logger: logger}
}

// Crawl fetches pages under domain breadth-first and returns every email
// candidate found. Fetch failures are folded into Stats; the only error
// returned is context cancellation.
func (c *Crawler) Crawl(ctx context.Context, domain string) ([]enrich.EmailCandidate, Stats, error) {
	var (
		stats      Stats
		candidates []enrich.EmailCandidate
		seen       = make(map[string]struct{}) // lowercase addresses
		visited    = make(map[string]struct{}) // normalized URLs
		next       frontier
	)

	base := &url.URL{Scheme: "https", Host: domain, Path: "/"}
	enqueue := func(f *frontier, raw string, depth int, prioritized bool) {
		norm, ok := normalizeURL(raw)
		if !ok {
			return
		}
		if _, dup := visited[norm]; dup {
			return
		}
		visited[norm] = struct{}{}
		f.push(task{url: norm, depth: depth}, prioritized)
	}

	enqueue(&next, base.String(), 0, true)
	for _, p := range priorityPaths {
		u := *base
		u.Path = p
		enqueue(&next, u.String(), 0, true)
	}

	for depth := 0; depth <= c.cfg.MaxDepth && !next.empty(); depth++ {
		level := next.drain()
		if remaining := c.cfg.MaxPages - stats.PagesFetched; len(level) > remaining {
			level = level[:remaining]
		}
		if len(level) == 0 {
			break
		}

		results := c.fetchLevel(ctx, level)
		if err := ctx.Err(); err != nil {
			return candidates, stats, err
		}

		for _, page := range results {
			stats.PagesFetched++
			switch page.Status {
			case enrich.FetchOK:
				stats.PagesOK++
			case enrich.FetchBlocked:
				stats.PagesBlocked++
				continue
			default:
				stats.PagesFailed++
				continue
			}

			for _, cand := range c.extractor.Extract(page) {
				key := strings.ToLower(cand.Address)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				candidates = append(candidates, cand)
			}

			if page.Depth < c.cfg.MaxDepth {
				for _, link := range extractLinks(page, domain) {
					enqueue(&next, link, page.Depth+1, isPriorityPath(link))
				}
			}
		}

		if c.cfg.StopOnFirstEmail && len(candidates) > 0 {
			break
		}
		if stats.PagesFetched >= c.cfg.MaxPages {
			break
		}
	}

	c.logger.Debug("crawl finished",
		zap.String("domain", domain),
		zap.Int("pages", stats.PagesFetched),
		zap.Int("emails", len(candidates)),
	)
	return candidates, stats, nil
}

// fetchLevel fetches one BFS level concurrently, preserving level order
// in the returned slice.
func (c *Crawler) fetchLevel(ctx context.Context, level []task) []enrich.PageResult {
	results := make([]enrich.PageResult, len(level))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, t := range level {
		g.Go(func() error {
			page := c.fetcher.Fetch(gctx, t.url)
			page.Depth = t.depth
			mu.Lock()
			results[i] = page
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// extractLinks parses anchors out of an HTML page and keeps only
// crawlable links on the company's registrable domain.
func extractLinks(page enrich.PageResult, domain string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}

	var links []string
	dedup := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if hasSkippedExtension(abs.Path) {
			return
		}
		if !enrich.SameDomain(domain, abs.String()) {
			return
		}
		s := abs.String()
		if _, dup := dedup[s]; dup {
			return
		}
		dedup[s] = struct{}{}
		links = append(links, s)
	})
	return links
}

func hasSkippedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isPriorityPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	lower := strings.ToLower(u.Path)
	for _, kw := range pathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// normalizeURL canonicalizes a URL for the visited set: lowercased
// scheme and host, fragment dropped, default port dropped, query keys
// sorted, and no trailing slash outside the root.
func normalizeURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	if u.Path == "" {
		u.Path = "/"
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if q := u.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}
	return u.String(), true
}

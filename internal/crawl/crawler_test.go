package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// stubFetcher serves canned HTML bodies keyed by URL path. Paths with
// no entry come back as fetch errors, like a 404 would.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	return &stubFetcher{pages: pages, hits: make(map[string]int)}
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) enrich.PageResult {
	if err := ctx.Err(); err != nil {
		return enrich.PageResult{URL: rawURL, Status: enrich.FetchError, Reason: err.Error()}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return enrich.PageResult{URL: rawURL, Status: enrich.FetchError, Reason: err.Error()}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[u.Path]++
	body, ok := f.pages[u.Path]
	if !ok {
		return enrich.PageResult{URL: rawURL, Status: enrich.FetchError, StatusCode: 404, Reason: "not found"}
	}
	return enrich.PageResult{URL: rawURL, Status: enrich.FetchOK, StatusCode: 200, Body: []byte(body)}
}

func (f *stubFetcher) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestCrawler(f enrich.Fetcher, cfg Config) *Crawler {
	return New(f, enrich.NewExtractor(), cfg, zap.NewNop())
}

func TestCrawlFindsEmailOnContactPage(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"/":        `<html><body><a href="/contact">Contact us</a></body></html>`,
		"/contact": `<html><body>Reach us at <a href="mailto:hello@acme.com">hello@acme.com</a></body></html>`,
	})
	c := newTestCrawler(fetcher, Config{})

	candidates, stats, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "hello@acme.com", candidates[0].Address)
	require.True(t, strings.HasSuffix(candidates[0].SourceURL, "/contact"))
	require.Equal(t, 2, stats.PagesOK)
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	t.Parallel()

	var links strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&links, `<a href="/p%d">page</a>`, i)
	}
	fetcher := newStubFetcher(map[string]string{
		"/": "<html><body>" + links.String() + "</body></html>",
	})
	c := newTestCrawler(fetcher, Config{MaxPages: 15})

	_, stats, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Equal(t, 15, stats.PagesFetched)
}

func TestCrawlRespectsMaxDepth(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"/":  `<html><body><a href="/a">a</a></body></html>`,
		"/a": `<html><body><a href="/b">b</a></body></html>`,
		"/b": `<html><body><a href="/c">c</a></body></html>`,
		"/c": `<html><body>too-deep@acme.com</body></html>`,
	})
	c := newTestCrawler(fetcher, Config{MaxDepth: 2, MaxPages: 50})

	candidates, _, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.hitCount("/b"))
	require.Zero(t, fetcher.hitCount("/c"))
	require.Empty(t, candidates)
}

func TestCrawlSkipsOffDomainAndAssetLinks(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"/": `<html><body>
			<a href="https://other.com/contact">elsewhere</a>
			<a href="/logo.png">logo</a>
			<a href="/styles.css">css</a>
			<a href="/about">about</a>
		</body></html>`,
		"/about": `<html><body>team@acme.com</body></html>`,
	})
	c := newTestCrawler(fetcher, Config{})

	candidates, _, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Zero(t, fetcher.hitCount("/logo.png"))
	require.Zero(t, fetcher.hitCount("/styles.css"))
	require.Equal(t, 1, fetcher.hitCount("/contact")) // seeded once, never via other.com
}

func TestCrawlVisitsURLVariantsOnce(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"/": `<html><body>
			<a href="/about">one</a>
			<a href="/about/">two</a>
			<a href="/about#team">three</a>
			<a href="https://acme.com/about">four</a>
		</body></html>`,
		"/about": `<html><body>no address here</body></html>`,
	})
	c := newTestCrawler(fetcher, Config{})

	_, _, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.hitCount("/about"))
}

func TestCrawlStopOnFirstEmail(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"/": `<html><body>hello@acme.com <a href="/deeper">deeper</a></body></html>`,
	})
	c := newTestCrawler(fetcher, Config{StopOnFirstEmail: true})

	candidates, _, err := c.Crawl(context.Background(), "acme.com")
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Zero(t, fetcher.hitCount("/deeper"))
}

func TestCrawlContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newStubFetcher(map[string]string{"/": "<html></html>"})
	c := newTestCrawler(fetcher, Config{})

	_, _, err := c.Crawl(ctx, "acme.com")
	require.ErrorIs(t, err, context.Canceled)
}

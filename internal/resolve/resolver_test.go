package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

type fakeFetcher struct {
	pages map[string]enrich.PageResult
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) enrich.PageResult {
	if page, ok := f.pages[rawURL]; ok {
		page.URL = rawURL
		return page
	}
	return enrich.PageResult{URL: rawURL, Status: enrich.FetchError, Reason: "no such page"}
}

type fakeSearch struct {
	results []string
	err     error
	queries []string
}

func (s *fakeSearch) SearchDomain(_ context.Context, companyName string) ([]string, error) {
	s.queries = append(s.queries, companyName)
	return s.results, s.err
}

func okPage(body string) enrich.PageResult {
	return enrich.PageResult{Status: enrich.FetchOK, StatusCode: 200, Body: []byte(body)}
}

func TestResolveExplicitWebsiteWins(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{}
	r := New(&fakeFetcher{}, search, zap.NewNop())

	got, err := r.Resolve(context.Background(), enrich.CompanyRecord{
		ID:      "c1",
		Name:    "Acme",
		Website: "https://www.acme.com/home",
	})
	require.NoError(t, err)
	require.Equal(t, "acme.com", got.Domain)
	require.Equal(t, enrich.ProvenanceExplicit, got.Provenance)
	require.Equal(t, "c1", got.CompanyID)
	require.Empty(t, search.queries)
}

func TestResolveLinkedInWebsiteLink(t *testing.T) {
	t.Parallel()

	const liURL = "https://www.linkedin.com/company/acme"
	fetcher := &fakeFetcher{pages: map[string]enrich.PageResult{
		liURL: okPage(`<html><body>
			<a href="https://www.linkedin.com/company/acme/jobs">Jobs</a>
			<a href="https://twitter.com/acme">Twitter</a>
			<a href="https://www.acme.io">Website</a>
		</body></html>`),
	}}
	r := New(fetcher, nil, zap.NewNop())

	got, err := r.Resolve(context.Background(), enrich.CompanyRecord{
		ID:          "c2",
		Name:        "Acme",
		LinkedInURL: liURL,
	})
	require.NoError(t, err)
	require.Equal(t, "acme.io", got.Domain)
	require.Equal(t, enrich.ProvenanceLinkedIn, got.Provenance)
}

func TestResolveAggregatorWebsiteFallsThrough(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: []string{"https://acmesoft.com/about"}}
	r := New(&fakeFetcher{}, search, zap.NewNop())

	got, err := r.Resolve(context.Background(), enrich.CompanyRecord{
		ID:      "c3",
		Name:    "Acme Soft",
		Website: "https://www.linkedin.com/company/acme",
	})
	require.NoError(t, err)
	require.Equal(t, "acmesoft.com", got.Domain)
	require.Equal(t, enrich.ProvenanceSearch, got.Provenance)
}

func TestResolveSearchPrefersNameMatch(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: []string{
		"https://techblog.example.net/review-of-acme",
		"https://www.acme.io/",
	}}
	r := New(&fakeFetcher{}, search, zap.NewNop())

	got, err := r.Resolve(context.Background(), enrich.CompanyRecord{ID: "c4", Name: "Acme"})
	require.NoError(t, err)
	require.Equal(t, "acme.io", got.Domain)
}

func TestResolveSearchSkipsAggregators(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: []string{
		"https://www.crunchbase.com/organization/widgets",
		"https://en.wikipedia.org/wiki/Widgets",
		"https://somewhere.org/widgets",
	}}
	r := New(&fakeFetcher{}, search, zap.NewNop())

	got, err := r.Resolve(context.Background(), enrich.CompanyRecord{ID: "c5", Name: "Widgets Inc"})
	require.NoError(t, err)
	require.Equal(t, "somewhere.org", got.Domain)
	require.Equal(t, enrich.ProvenanceSearch, got.Provenance)
}

func TestResolveUnresolved(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{err: errors.New("quota exhausted")}
	r := New(&fakeFetcher{}, search, zap.NewNop())

	_, err := r.Resolve(context.Background(), enrich.CompanyRecord{ID: "c6", Name: "Ghost Co"})
	require.ErrorIs(t, err, ErrUnresolved)
}

// Package resolve turns a company record into its canonical registrable
// domain, trying explicit website, LinkedIn page, then web search.
package resolve

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// ErrUnresolved is returned when no usable domain could be found for a
// company by any source.
var ErrUnresolved = errors.New("resolve: no domain found")

// blockedDomains are aggregators and platforms that are never a
// company's own website, whatever the search engine thinks.
var blockedDomains = map[string]struct{}{
	"linkedin.com":    {},
	"facebook.com":    {},
	"twitter.com":     {},
	"x.com":           {},
	"instagram.com":   {},
	"youtube.com":     {},
	"crunchbase.com":  {},
	"wikipedia.org":   {},
	"glassdoor.com":   {},
	"indeed.com":      {},
	"bloomberg.com":   {},
	"pitchbook.com":   {},
	"medium.com":      {},
	"github.com":      {},
	"angel.co":        {},
	"wellfound.com":   {},
	"zoominfo.com":    {},
	"google.com":      {},
	"apollo.io":       {},
}

// SearchClient returns candidate result URLs for a company-name query.
// Implemented by the SERP API client.
type SearchClient interface {
	SearchDomain(ctx context.Context, companyName string) ([]string, error)
}

// Resolver resolves company records to registrable domains.
type Resolver struct {
	fetcher enrich.Fetcher
	search  SearchClient
	logger  *zap.Logger
}

// New builds a Resolver. search may be nil, in which case the search
// fallback is skipped.
func New(fetcher enrich.Fetcher, search SearchClient, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, search: search, logger: logger}
}

// Resolve tries, in order: the record's explicit website, the website
// link on its LinkedIn page, then a name search. The first source that
// yields a non-aggregator registrable domain wins and sets provenance.
func (r *Resolver) Resolve(ctx context.Context, rec enrich.CompanyRecord) (enrich.ResolvedDomain, error) {
	if rec.Website != "" {
		if domain, ok := usableDomain(rec.Website); ok {
			return enrich.ResolvedDomain{
				CompanyID:  rec.ID,
				Domain:     domain,
				Provenance: enrich.ProvenanceExplicit,
			}, nil
		}
		r.logger.Debug("explicit website unusable",
			zap.String("company", rec.Name),
			zap.String("website", rec.Website),
		)
	}

	if rec.LinkedInURL != "" {
		if domain, ok := r.fromLinkedIn(ctx, rec.LinkedInURL); ok {
			return enrich.ResolvedDomain{
				CompanyID:  rec.ID,
				Domain:     domain,
				Provenance: enrich.ProvenanceLinkedIn,
			}, nil
		}
	}

	if r.search != nil {
		domain, ok, err := r.fromSearch(ctx, rec.Name)
		if err != nil {
			r.logger.Warn("domain search failed",
				zap.String("company", rec.Name),
				zap.Error(err),
			)
		}
		if ok {
			return enrich.ResolvedDomain{
				CompanyID:  rec.ID,
				Domain:     domain,
				Provenance: enrich.ProvenanceSearch,
			}, nil
		}
	}

	return enrich.ResolvedDomain{}, ErrUnresolved
}

// fromLinkedIn fetches the company's LinkedIn page and looks for an
// outbound link to the company website.
func (r *Resolver) fromLinkedIn(ctx context.Context, linkedInURL string) (string, bool) {
	page := r.fetcher.Fetch(ctx, linkedInURL)
	if page.Status != enrich.FetchOK {
		r.logger.Debug("linkedin page unavailable",
			zap.String("url", linkedInURL),
			zap.String("status", string(page.Status)),
		)
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return "", false
	}

	var domain string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if d, ok := usableDomain(href); ok {
			domain = d
			return false
		}
		return true
	})
	return domain, domain != ""
}

// fromSearch asks the search client for results and keeps the first one
// whose domain is usable, preferring a domain that shares a token with
// the company name.
func (r *Resolver) fromSearch(ctx context.Context, companyName string) (string, bool, error) {
	results, err := r.search.SearchDomain(ctx, companyName)
	if err != nil {
		return "", false, err
	}

	var fallback string
	for _, raw := range results {
		domain, ok := usableDomain(raw)
		if !ok {
			continue
		}
		if matchesName(domain, companyName) {
			return domain, true, nil
		}
		if fallback == "" {
			fallback = domain
		}
	}
	return fallback, fallback != "", nil
}

// usableDomain normalizes a URL to its registrable domain and rejects
// aggregator platforms.
func usableDomain(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	domain, err := enrich.NormalizeDomain(raw)
	if err != nil {
		return "", false
	}
	if _, blocked := blockedDomains[domain]; blocked {
		return "", false
	}
	return domain, true
}

// matchesName reports whether the domain's label contains a meaningful
// token of the company name.
func matchesName(domain, companyName string) bool {
	label := domain
	if i := strings.IndexByte(label, '.'); i > 0 {
		label = label[:i]
	}
	for _, tok := range strings.Fields(strings.ToLower(companyName)) {
		tok = strings.Map(keepAlnum, tok)
		if len(tok) < 3 {
			continue
		}
		if strings.Contains(label, tok) {
			return true
		}
	}
	return false
}

func keepAlnum(r rune) rune {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return r
	}
	return -1
}

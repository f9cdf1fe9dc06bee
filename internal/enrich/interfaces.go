package enrich

import "context"

// Fetcher retrieves one URL and reports the outcome. Implementations
// gate on robots.txt and per-domain rate limits; errors are folded into
// the PageResult status rather than returned, so callers can treat a
// blocked or failed page as a normal (empty) observation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) PageResult
}

// EnrichmentSource is a third-party lookup keyed by resolved domain.
// A returned error is a soft failure: the pipeline logs it and carries
// on without that source's contribution.
type EnrichmentSource interface {
	Name() string
	Lookup(ctx context.Context, domain, personHint string) ([]EmailCandidate, error)
}

// Verifier optionally confirms deliverability of found addresses.
type Verifier interface {
	Verify(ctx context.Context, addresses []string) (map[string]bool, error)
}

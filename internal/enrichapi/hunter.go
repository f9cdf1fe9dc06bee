// Package enrichapi holds clients for the external enrichment APIs:
// Hunter for domain search and verification, Apollo for people search,
// and SerpAPI for domain discovery. Every client shares the keyed rate
// limiter so API budgets hold across concurrent companies.
package enrichapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
	"github.com/JakeFAU/email-enricher/internal/fetch"
	"github.com/JakeFAU/email-enricher/internal/metrics"
)

const defaultHunterBaseURL = "https://api.hunter.io/v2"

// HunterConfig configures the Hunter client.
type HunterConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond is the API budget registered with the limiter.
	RequestsPerSecond float64
}

// Hunter searches a domain for published addresses and verifies
// individual addresses.
type Hunter struct {
	cfg     HunterConfig
	http    *http.Client
	limiter *fetch.Limiter
	logger  *zap.Logger
}

// NewHunter builds a Hunter client and registers its rate budget.
func NewHunter(cfg HunterConfig, limiter *fetch.Limiter, logger *zap.Logger) *Hunter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHunterBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hunter{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
	if limiter != nil {
		if host := hostOf(cfg.BaseURL); host != "" {
			limiter.SetRate(host, cfg.RequestsPerSecond, 1)
		}
	}
	return h
}

// Name identifies this source in email provenance.
func (h *Hunter) Name() string { return "hunter" }

type hunterSearchResponse struct {
	Data struct {
		Emails []struct {
			Value      string `json:"value"`
			Type       string `json:"type"`
			Confidence int    `json:"confidence"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
		} `json:"emails"`
	} `json:"data"`
}

// Lookup runs a Hunter domain search. personHint, when set, keeps only
// addresses whose attributed name matches the hint.
func (h *Hunter) Lookup(ctx context.Context, domain, personHint string) ([]enrich.EmailCandidate, error) {
	if h.cfg.APIKey == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("api_key", h.cfg.APIKey)

	var resp hunterSearchResponse
	if err := h.getJSON(ctx, h.cfg.BaseURL+"/domain-search?"+q.Encode(), &resp); err != nil {
		metrics.ObserveEnrichmentError(h.Name())
		return nil, fmt.Errorf("hunter domain search for %s: %w", domain, err)
	}

	var out []enrich.EmailCandidate
	for _, e := range resp.Data.Emails {
		if e.Value == "" {
			continue
		}
		if personHint != "" && !nameMatchesHint(e.FirstName, e.LastName, personHint) {
			continue
		}
		out = append(out, enrich.EmailCandidate{Address: e.Value})
	}
	h.logger.Debug("hunter domain search",
		zap.String("domain", domain),
		zap.Int("emails", len(out)),
	)
	return out, nil
}

type hunterVerifyResponse struct {
	Data struct {
		Status string `json:"status"`
		Result string `json:"result"`
	} `json:"data"`
}

// Verify checks addresses one at a time against Hunter's verifier and
// reports which are deliverable. Individual verification failures skip
// the address rather than failing the batch.
func (h *Hunter) Verify(ctx context.Context, addresses []string) (map[string]bool, error) {
	if h.cfg.APIKey == "" {
		return nil, nil
	}
	out := make(map[string]bool, len(addresses))
	for _, addr := range addresses {
		q := url.Values{}
		q.Set("email", addr)
		q.Set("api_key", h.cfg.APIKey)

		var resp hunterVerifyResponse
		if err := h.getJSON(ctx, h.cfg.BaseURL+"/email-verifier?"+q.Encode(), &resp); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			metrics.ObserveEnrichmentError(h.Name())
			h.logger.Warn("hunter verify failed",
				zap.String("address", addr),
				zap.Error(err),
			)
			continue
		}
		out[addr] = resp.Data.Result == "deliverable" || resp.Data.Status == "valid"
	}
	return out, nil
}

func (h *Hunter) getJSON(ctx context.Context, rawURL string, v any) error {
	if h.limiter != nil {
		if err := h.limiter.WaitURL(ctx, rawURL); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// nameMatchesHint reports whether any token of the hint appears in the
// attributed first or last name.
func nameMatchesHint(first, last, hint string) bool {
	full := strings.ToLower(first + " " + last)
	for _, tok := range strings.Fields(strings.ToLower(hint)) {
		if strings.Contains(full, tok) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

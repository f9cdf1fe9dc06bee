package enrichapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
	"github.com/JakeFAU/email-enricher/internal/fetch"
	"github.com/JakeFAU/email-enricher/internal/metrics"
)

const defaultApolloBaseURL = "https://api.apollo.io/v1"

// ApolloConfig configures the Apollo client.
type ApolloConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Apollo searches people by company domain. Its addresses count as
// verified-grade for confidence purposes.
type Apollo struct {
	cfg     ApolloConfig
	http    *http.Client
	limiter *fetch.Limiter
	logger  *zap.Logger
}

// NewApollo builds an Apollo client and registers its rate budget.
func NewApollo(cfg ApolloConfig, limiter *fetch.Limiter, logger *zap.Logger) *Apollo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultApolloBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Apollo{
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
	return a
}

// Name identifies this source in email provenance.
func (a *Apollo) Name() string { return "apollo" }

type apolloSearchRequest struct {
	QOrganizationDomains string `json:"q_organization_domains"`
	QKeywords            string `json:"q_keywords,omitempty"`
	PerPage              int    `json:"per_page"`
}

type apolloSearchResponse struct {
	People []struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Title     string `json:"title"`
	} `json:"people"`
}

// Lookup searches Apollo for people at the domain. personHint narrows
// the query server-side.
func (a *Apollo) Lookup(ctx context.Context, domain, personHint string) ([]enrich.EmailCandidate, error) {
	if a.cfg.APIKey == "" {
		return nil, nil
	}
	if a.limiter != nil {
		if err := a.limiter.WaitURL(ctx, a.cfg.BaseURL); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(apolloSearchRequest{
		QOrganizationDomains: domain,
		QKeywords:            personHint,
		PerPage:              10,
	})
	if err != nil {
		return nil, fmt.Errorf("encode apollo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/mixed_people/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", a.cfg.APIKey)

	resp, err := a.http.Do(req)
	if err != nil {
		metrics.ObserveEnrichmentError(a.Name())
		return nil, fmt.Errorf("apollo people search for %s: %w", domain, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveEnrichmentError(a.Name())
		return nil, fmt.Errorf("apollo people search for %s: unexpected status %d", domain, resp.StatusCode)
	}

	var parsed apolloSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.ObserveEnrichmentError(a.Name())
		return nil, fmt.Errorf("decode apollo response: %w", err)
	}

	var out []enrich.EmailCandidate
	for _, p := range parsed.People {
		// Apollo masks locked addresses with a placeholder.
		if p.Email == "" || p.Email == "email_not_unlocked@domain.com" {
			continue
		}
		out = append(out, enrich.EmailCandidate{Address: p.Email})
	}
	a.logger.Debug("apollo people search",
		zap.String("domain", domain),
		zap.Int("emails", len(out)),
	)
	return out, nil
}

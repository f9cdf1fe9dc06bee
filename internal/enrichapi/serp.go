package enrichapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/fetch"
)

const defaultSerpBaseURL = "https://serpapi.com"

// SerpConfig configures the SerpAPI client.
type SerpConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Serp queries SerpAPI for organic results; the resolver uses it as the
// last-resort fallback for companies with no known website.
type Serp struct {
	cfg     SerpConfig
	http    *http.Client
	limiter *fetch.Limiter
	logger  *zap.Logger
}

// NewSerp builds a SerpAPI client and registers its rate budget.
func NewSerp(cfg SerpConfig, limiter *fetch.Limiter, logger *zap.Logger) *Serp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpBaseURL
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
	s := &Serp{
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
	return s
}

type serpResponse struct {
	OrganicResults []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
	} `json:"organic_results"`
}

// SearchDomain returns the organic result links for a company-name
// query, in rank order.
func (s *Serp) SearchDomain(ctx context.Context, companyName string) ([]string, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("serp api key is not configured")
	}
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, s.cfg.BaseURL); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", companyName+" official website")
	q.Set("num", "10")
	q.Set("api_key", s.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serp search for %q: %w", companyName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serp search for %q: unexpected status %d", companyName, resp.StatusCode)
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode serp response: %w", err)
	}

	links := make([]string, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	s.logger.Debug("serp search",
		zap.String("query", companyName),
		zap.Int("results", len(links)),
	)
	return links, nil
}

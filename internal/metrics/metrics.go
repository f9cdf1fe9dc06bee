// Package metrics exposes Prometheus collectors for the enrichment pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_fetches_total",
			Help: "Total page fetches, labeled by outcome (ok, blocked, error).",
		},
		[]string{"outcome"},
	)

	fetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enricher_fetch_retries_total",
			Help: "Total fetch attempts beyond the first for a logical page.",
		},
	)

	robotsFailOpenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enricher_robots_fail_open_total",
			Help: "Times a robots.txt fetch or parse failed and the gate defaulted to allow.",
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_rate_limit_delay_seconds",
			Help:    "Delay introduced by the per-domain rate limiter.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"domain"},
	)

	emailsFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_emails_found_total",
			Help: "Distinct addresses merged per source.",
		},
		[]string{"source"},
	)

	companiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_companies_total",
			Help: "Companies finished, labeled by terminal status.",
		},
		[]string{"status"},
	)

	enrichmentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_enrichment_errors_total",
			Help: "Soft failures from enrichment API sources.",
		},
		[]string{"source"},
	)
)

// ObserveFetch records a finished logical page fetch.
func ObserveFetch(outcome string) {
	fetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchRetry records one retried attempt.
func ObserveFetchRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveRobotsFailOpen records a fail-open robots decision.
func ObserveRobotsFailOpen() {
	robotsFailOpenTotal.Inc()
}

// ObserveRateLimitDelay records time spent waiting for a domain token.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// ObserveEmailsFound records newly merged addresses for a source.
func ObserveEmailsFound(source string, n int) {
	if n > 0 {
		emailsFoundTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveCompanyFinished records a company reaching a terminal status.
func ObserveCompanyFinished(status string) {
	companiesTotal.WithLabelValues(status).Inc()
}

// ObserveEnrichmentError records a soft enrichment API failure.
func ObserveEnrichmentError(source string) {
	enrichmentErrorsTotal.WithLabelValues(source).Inc()
}

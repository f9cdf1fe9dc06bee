// Package pipeline orchestrates the full enrichment run: resolve each
// company's domain, crawl it, merge external enrichment sources, verify
// what was found, and checkpoint every outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/email-enricher/internal/checkpoint"
	"github.com/JakeFAU/email-enricher/internal/crawl"
	"github.com/JakeFAU/email-enricher/internal/enrich"
	"github.com/JakeFAU/email-enricher/internal/metrics"
	"github.com/JakeFAU/email-enricher/internal/resolve"
)

// Failure reasons recorded on failed checkpoint rows.
const (
	reasonUnresolved  = "unresolved"
	reasonUnreachable = "site unreachable"
	reasonCanceled    = "canceled"
)

// checkpointFlushTimeout bounds the durable write of a partial result
// when the run context has already been canceled.
const checkpointFlushTimeout = 5 * time.Second

// crawlSource is the provenance label for addresses found on the
// company's own website.
const crawlSource = "crawl"

// DomainResolver finds a company's registrable domain.
type DomainResolver interface {
	Resolve(ctx context.Context, rec enrich.CompanyRecord) (enrich.ResolvedDomain, error)
}

// SiteCrawler walks a resolved domain and returns address candidates.
type SiteCrawler interface {
	Crawl(ctx context.Context, domain string) ([]enrich.EmailCandidate, crawl.Stats, error)
}

// Config bounds a pipeline run.
type Config struct {
	// Concurrency is the number of companies processed at once.
	Concurrency int
}

// Summary is the final accounting of one run.
type Summary struct {
	Total          int            `json:"total"`
	Skipped        int            `json:"skipped"`
	Done           int            `json:"done"`
	Failed         int            `json:"failed"`
	Resolved       int            `json:"resolved"`
	WithEmails     int            `json:"with_emails"`
	FailureReasons map[string]int `json:"failure_reasons,omitempty"`
	// Results holds one entry per input company in input order,
	// including results carried over from previous runs.
	Results []enrich.CompanyResult `json:"-"`
}

// Pipeline wires the run together. Construct with New.
type Pipeline struct {
	resolver DomainResolver
	crawler  SiteCrawler
	sources  []enrich.EnrichmentSource
	verifier enrich.Verifier
	store    checkpoint.Store
	cfg      Config
	logger   *zap.Logger
	progress Progress
}

// New builds a Pipeline. verifier may be nil; sources may be empty.
func New(
	resolver DomainResolver,
	crawler SiteCrawler,
	sources []enrich.EnrichmentSource,
	verifier enrich.Verifier,
	store checkpoint.Store,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver: resolver,
		crawler:  crawler,
		sources:  sources,
		verifier: verifier,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// Progress returns the live counters for this pipeline.
func (p *Pipeline) Progress() *Progress {
	return &p.progress
}

// Run processes every company, skipping those the checkpoint store has
// already marked done. A checkpoint write failure aborts the whole run:
// continuing would silently lose results.
func (p *Pipeline) Run(ctx context.Context, companies []enrich.CompanyRecord) (Summary, error) {
	previous, err := p.store.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load checkpoints: %w", err)
	}

	p.progress.start(len(companies))
	results := make([]enrich.CompanyResult, len(companies))
	skipped := make([]bool, len(companies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, rec := range companies {
		if prev, ok := previous[rec.ID]; ok && prev.Status == enrich.StatusDone {
			results[i] = prev
			skipped[i] = true
			p.progress.markSkipped()
			p.logger.Debug("company already done, skipping",
				zap.String("company", rec.Name),
				zap.String("id", rec.ID),
			)
			continue
		}

		g.Go(func() error {
			// Companies that never started stay pending for the next run.
			if err := gctx.Err(); err != nil {
				return err
			}
			result := p.processCompany(gctx, rec)
			recordCtx := gctx
			if gctx.Err() != nil {
				if result.Domain == "" && !result.HasEmails() {
					// Nothing worth keeping; the company re-runs from
					// scratch anyway.
					return gctx.Err()
				}
				// Flush the partial result on a fresh context so the
				// cancellation does not also abort the write.
				var cancel context.CancelFunc
				recordCtx, cancel = context.WithTimeout(context.WithoutCancel(gctx), checkpointFlushTimeout)
				defer cancel()
			}
			if err := p.store.Record(recordCtx, result); err != nil {
				return fmt.Errorf("checkpoint %s: %w", rec.ID, err)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = result
			p.progress.markFinished(result.Status == enrich.StatusFailed, result.HasEmails())
			metrics.ObserveCompanyFinished(string(result.Status))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return p.summarize(results, skipped), nil
}

// processCompany runs resolve -> crawl -> enrich -> verify for one
// company. It always returns a result to checkpoint; per-company
// failures never abort the run.
func (p *Pipeline) processCompany(ctx context.Context, rec enrich.CompanyRecord) enrich.CompanyResult {
	result := enrich.CompanyResult{
		CompanyID:   rec.ID,
		CompanyName: rec.Name,
		Status:      enrich.StatusDone,
		Emails:      []enrich.EmailRecord{},
	}
	defer func() {
		result.FinishedAt = time.Now().UTC()
	}()

	resolved, err := p.resolver.Resolve(ctx, rec)
	if err != nil {
		result.Status = enrich.StatusFailed
		if ctx.Err() != nil {
			result.FailureReason = reasonCanceled
			return result
		}
		if !errors.Is(err, resolve.ErrUnresolved) {
			p.logger.Warn("resolution error",
				zap.String("company", rec.Name),
				zap.Error(err),
			)
		}
		result.FailureReason = reasonUnresolved
		return result
	}
	result.Domain = resolved.Domain
	result.Provenance = resolved.Provenance

	set := enrich.NewCompanyEmailSet(rec.ID)

	candidates, stats, err := p.crawler.Crawl(ctx, resolved.Domain)
	if err != nil {
		// Only context cancellation reaches here. Keep whatever the
		// crawl found before the stop so the checkpoint preserves it.
		set.Merge(candidates, crawlSource)
		result.Emails = set.Records(resolved.Domain)
		result.Status = enrich.StatusFailed
		result.FailureReason = reasonCanceled
		return result
	}
	if n := set.Merge(candidates, crawlSource); n > 0 {
		metrics.ObserveEmailsFound(crawlSource, n)
	}

	for _, src := range p.sources {
		found, err := src.Lookup(ctx, resolved.Domain, rec.FounderName)
		if err != nil {
			p.logger.Warn("enrichment source failed",
				zap.String("source", src.Name()),
				zap.String("company", rec.Name),
				zap.Error(err),
			)
			continue
		}
		if n := set.Merge(found, src.Name()); n > 0 {
			metrics.ObserveEmailsFound(src.Name(), n)
		}
	}

	if p.verifier != nil && set.Len() > 0 {
		verdicts, err := p.verifier.Verify(ctx, set.Addresses())
		if err != nil {
			p.logger.Warn("verification failed",
				zap.String("company", rec.Name),
				zap.Error(err),
			)
		}
		for addr, ok := range verdicts {
			if ok {
				set.MarkVerified(addr)
			}
		}
	}

	result.Emails = set.Records(resolved.Domain)
	result.Confidence = enrich.AssessConfidence(set)

	switch {
	case ctx.Err() != nil:
		// A stop signal mid-company keeps the merged set but leaves the
		// company failed so the next run finishes the remaining stages.
		result.Status = enrich.StatusFailed
		result.FailureReason = reasonCanceled
	case stats.PagesOK == 0:
		// A domain whose site never answered keeps whatever the external
		// sources found, but the company still counts as failed so a
		// later run retries the crawl.
		result.Status = enrich.StatusFailed
		result.FailureReason = reasonUnreachable
	}

	p.logger.Info("company finished",
		zap.String("company", rec.Name),
		zap.String("domain", resolved.Domain),
		zap.String("status", string(result.Status)),
		zap.Int("emails", len(result.Emails)),
		zap.Int("pages", stats.PagesFetched),
	)
	return result
}

func (p *Pipeline) summarize(results []enrich.CompanyResult, skipped []bool) Summary {
	s := Summary{
		Total:          len(results),
		FailureReasons: make(map[string]int),
		Results:        results,
	}
	for i, res := range results {
		if skipped[i] {
			s.Skipped++
		}
		switch res.Status {
		case enrich.StatusDone:
			s.Done++
		case enrich.StatusFailed:
			s.Failed++
			if res.FailureReason != "" {
				s.FailureReasons[res.FailureReason]++
			}
		}
		if res.Domain != "" {
			s.Resolved++
		}
		if res.HasEmails() {
			s.WithEmails++
		}
	}
	return s
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/email-enricher/internal/api"
	"github.com/JakeFAU/email-enricher/internal/checkpoint"
	"github.com/JakeFAU/email-enricher/internal/config"
	"github.com/JakeFAU/email-enricher/internal/crawl"
	"github.com/JakeFAU/email-enricher/internal/enrich"
	"github.com/JakeFAU/email-enricher/internal/enrichapi"
	"github.com/JakeFAU/email-enricher/internal/fetch"
	"github.com/JakeFAU/email-enricher/internal/ingest"
	"github.com/JakeFAU/email-enricher/internal/logging"
	"github.com/JakeFAU/email-enricher/internal/pipeline"
	"github.com/JakeFAU/email-enricher/internal/report"
	"github.com/JakeFAU/email-enricher/internal/resolve"
)

func newRunCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the enrichment pipeline over an input CSV",
		Long: `Reads companies from the input CSV, resolves each one's domain,
crawls it for contact addresses, merges the external enrichment sources,
and writes the output reports. Companies already checkpointed as done
are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrichment(cmd.Context(), inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input CSV of companies (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runEnrichment(parent context.Context, inputPath string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	companies, err := ingest.ReadCompaniesCSV(inputPath, logger)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return fmt.Errorf("no companies found in %s", inputPath)
	}

	store, err := openCheckpointStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("failed to close checkpoint store", zap.Error(cerr))
		}
	}()

	p := buildPipeline(cfg, store, logger)

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, serverStop := context.WithCancel(gctx)
	defer serverStop()
	if cfg.Server.Enabled {
		srv := api.NewServer(p.Progress(), logger)
		g.Go(func() error {
			return srv.ListenAndServe(serverCtx, cfg.Server.Port)
		})
	}

	var summary pipeline.Summary
	g.Go(func() error {
		defer serverStop() // bring the status server down once the run ends
		var runErr error
		summary, runErr = p.Run(gctx, companies)
		return runErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		logger.Warn("run interrupted, results so far are checkpointed")
		return nil
	}

	if err := report.WriteCSV(cfg.Output.CSVPath, summary.Results); err != nil {
		return err
	}
	if err := report.WriteJSON(cfg.Output.JSONPath, summary.Results); err != nil {
		return err
	}

	logger.Info("enrichment finished",
		zap.Int("total", summary.Total),
		zap.Int("done", summary.Done),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("with_emails", summary.WithEmails),
		zap.String("csv", cfg.Output.CSVPath),
		zap.String("json", cfg.Output.JSONPath),
	)
	return nil
}

func openCheckpointStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "postgres":
		return checkpoint.NewPostgresStore(ctx, cfg.Checkpoint.DSN)
	default:
		return checkpoint.OpenSQLite(ctx, cfg.Checkpoint.Path, logger)
	}
}

func buildPipeline(cfg config.Config, store checkpoint.Store, logger *zap.Logger) *pipeline.Pipeline {
	limiter := fetch.NewLimiter(cfg.Crawler.RequestsPerSec, 1)
	robots := fetch.NewRobots(cfg.Crawler.UserAgent, cfg.FetchTimeout(), logger)
	retry := fetch.NewRetryPolicy(cfg.HTTP.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax())
	client := fetch.NewClient(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, robots, limiter, retry, logger)

	crawler := crawl.New(client, enrich.NewExtractor(), crawl.Config{
		MaxDepth:         cfg.Crawler.MaxDepth,
		MaxPages:         cfg.Crawler.MaxPages,
		Concurrency:      cfg.Crawler.PerDomainFetches,
		StopOnFirstEmail: cfg.Crawler.StopOnFirstEmail,
	}, logger)

	hunter := enrichapi.NewHunter(enrichapi.HunterConfig{
		APIKey:            cfg.Hunter.APIKey,
		BaseURL:           cfg.Hunter.BaseURL,
		RequestsPerSecond: cfg.Hunter.RequestsPerSec,
	}, limiter, logger)
	apollo := enrichapi.NewApollo(enrichapi.ApolloConfig{
		APIKey:            cfg.Apollo.APIKey,
		BaseURL:           cfg.Apollo.BaseURL,
		RequestsPerSecond: cfg.Apollo.RequestsPerSec,
	}, limiter, logger)

	var search resolve.SearchClient
	if cfg.Serp.APIKey != "" {
		search = enrichapi.NewSerp(enrichapi.SerpConfig{
			APIKey:            cfg.Serp.APIKey,
			BaseURL:           cfg.Serp.BaseURL,
			RequestsPerSecond: cfg.Serp.RequestsPerSec,
		}, limiter, logger)
	}

	sources := []enrich.EnrichmentSource{hunter, apollo}

	var verifier enrich.Verifier
	if cfg.Hunter.APIKey != "" {
		verifier = hunter
	}

	resolver := resolve.New(client, search, logger)

	return pipeline.New(resolver, crawler, sources, verifier, store, pipeline.Config{
		Concurrency: cfg.Crawler.Concurrency,
	}, logger)
}

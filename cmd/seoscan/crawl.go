package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl and audit one or more websites",
		Long: `Crawl performs a full SEO audit of a website.

Starting at the seed URL it follows internal links breadth-first, analyzes
every page and aggregates the results into a site report with:
- Score distribution and averages
- The most frequent issues by severity
- Failed pages with their error
- Recommendations (rule-based, or from a language model with --llm)

Examples:
  # Audit a site
  seoscan crawl https://example.com

  # Audit the pages listed in the site's sitemaps
  seoscan crawl --sitemap https://example.com

  # Audit several sites in parallel and write an HTML report
  seoscan crawl -f html -o report.html https://a.example https://b.example

  # Compare the home page with competitors
  seoscan crawl --competitor https://rival.example https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addFetchFlags(cmd)
	addCrawlFlags(cmd)
	addOutputFlags(cmd)
	addAuditFlags(cmd)

	cmd.Flags().Bool("sitemap", false,
		"Audit sitemap URLs instead of crawling (falls back to crawling without a sitemap)")
	cmd.Flags().StringP("list", "l", "",
		"File with seed URLs, one per line")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of sites audited in parallel")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(cmd.Context(), opts.deadline)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, features{recommend: true, persist: true, export: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}()

	audits, err := runAudits(ctx, cmd, a, opts)
	if err != nil {
		return err
	}
	if err := writeAudits(cmd, cfg, opts, audits); err != nil {
		return err
	}
	return auditErrors(audits)
}

// runAudits audits every target. A single target runs in place; several
// targets go through the batch processor.
func runAudits(ctx context.Context, cmd *cobra.Command, a *app, opts runOptions) ([]*model.Audit, error) {
	cfg := a.cfg

	// Fetchers are built up front so a bad proxy fails before any request.
	fetchers := make(map[string]fetcher.Fetcher, len(cfg.Targets))
	for _, target := range cfg.Targets {
		f, err := a.fetcherFor(siteConfig(cfg, target))
		if err != nil {
			return nil, err
		}
		fetchers[target] = f
	}

	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}

	factory := func(target string) *pipeline.Pipeline {
		pc := a.pipelineConfig(opts, siteConfig(cfg, target))
		pc.Progress = progressPrinter(opts.progress, printf)
		return pipeline.DefaultPipeline(a.services(fetchers[target]), pc)
	}

	if len(cfg.Targets) == 1 {
		audit := model.NewAudit(cfg.Targets[0])
		if err := factory(audit.Target).Execute(ctx, audit); err != nil && !audit.TimedOut {
			a.logger.Error("audit failed", "target", audit.Target, "error", err)
		}
		warnTimedOut(a.logger, audit)
		return []*model.Audit{audit}, nil
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(a.logger),
	)
	audits, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil && ctx.Err() == nil {
		return nil, err
	}
	for _, audit := range audits {
		warnTimedOut(a.logger, audit)
	}
	return audits, nil
}

func warnTimedOut(logger *slog.Logger, audit *model.Audit) {
	if audit.TimedOut {
		logger.Warn("audit interrupted, report is partial",
			"target", audit.Target,
			"pages", len(audit.Pages),
		)
	}
}

// auditErrors joins the errors of audits that failed outright, such as an
// unreachable seed. Interrupted audits with partial results are not errors.
func auditErrors(audits []*model.Audit) error {
	var errs []error
	for _, audit := range audits {
		if audit.Error != nil && !audit.TimedOut {
			errs = append(errs, fmt.Errorf("%s: %w", audit.Target, audit.Error))
		}
	}
	return errors.Join(errs...)
}

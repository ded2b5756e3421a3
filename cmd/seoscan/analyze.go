package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/pipeline"
)

// errNothingAnalyzed is returned when every requested page failed.
var errNothingAnalyzed = errors.New("no page could be analyzed")

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>...",
		Short: "Analyze individual pages without crawling",
		Long: `Analyze fetches the given pages, analyzes each one and writes a report
covering exactly these pages. Links are not followed and robots.txt is not
consulted, since every page was requested explicitly.

Examples:
  # Analyze a landing page
  seoscan analyze https://example.com/pricing

  # Analyze pages listed in a file as CSV
  seoscan analyze -l urls.txt -f csv -o pages.csv

  # Compare a page with a competitor's page
  seoscan analyze --competitor https://rival.example/pricing https://example.com/pricing`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	addFetchFlags(cmd)
	addOutputFlags(cmd)
	addAuditFlags(cmd)

	cmd.Flags().StringP("list", "l", "",
		"File with page URLs, one per line")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
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

	target := cfg.Targets[0]
	site := siteConfig(cfg, target)
	f, err := a.fetcherFor(site)
	if err != nil {
		return err
	}

	pc := a.pipelineConfig(opts, site)
	pc.URLs = cfg.Targets
	pc.Standalone = true

	audit := model.NewAudit(target)
	if err := pipeline.DefaultPipeline(a.services(f), pc).Execute(ctx, audit); err != nil && !audit.TimedOut {
		return err
	}
	warnTimedOut(logger, audit)

	if err := writeAudits(cmd, cfg, opts, []*model.Audit{audit}); err != nil {
		return err
	}
	if audit.Report != nil && audit.Report.TotalPages > 0 && audit.Report.Successful == 0 {
		return errNothingAnalyzed
	}
	return nil
}

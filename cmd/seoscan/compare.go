package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/compare"
	"github.com/nao1215/seoscan/internal/pipeline"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url> <competitor-url>...",
		Short: "Compare a page with competitor pages",
		Long: `Compare analyzes a page and one or more competitor pages and reports:
- Keywords shared with competitors, unique to the page, or missing from it
- Content gaps ranked by how strongly competitors use them
- Word count, response time and score deltas per competitor
- Metrics where the page is ahead of or behind the competitor average
- Technical gaps such as HTTPS, structured data, viewport and canonical

Failed competitor pages are listed but left out of every derived number.
The command fails when the page itself or every competitor fails.

Examples:
  seoscan compare https://example.com/pricing https://rival.example/pricing
  seoscan compare -f json https://example.com https://a.example https://b.example`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCompareCmd,
	}

	addFetchFlags(cmd)
	addOutputFlags(cmd)

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) (err error) {
	cfg, opts, err := buildConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	cfg.Competitors = args[1:]
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(cmd.Context(), 0)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, features{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // Nothing to flush

	f, err := a.fetcherFor(siteConfig(cfg, cfg.Targets[0]))
	if err != nil {
		return err
	}

	urls := append([]string{cfg.Targets[0]}, cfg.Competitors...)
	pages := pipeline.FetchPages(ctx, f, a.analyzer, urls, cfg.Workers)
	if err := ctx.Err(); err != nil {
		return err
	}

	comparison, err := compare.Compare(pages[0], pages[1:])
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := newReportWriter(out, cfg, opts.noColor)
	if err != nil {
		return err
	}
	if _, err := w.WriteComparison(comparison); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}

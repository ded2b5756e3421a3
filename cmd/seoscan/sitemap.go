package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/pipeline"
	"github.com/nao1215/seoscan/internal/robots"
	"github.com/nao1215/seoscan/internal/sitemap"
)

// NewSitemapCmd creates the sitemap command group.
func NewSitemapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Discover or generate XML sitemaps",
		Long: `Sitemap works with XML sitemaps (sitemaps.org protocol).

  discover  lists the page URLs of a site's existing sitemaps
  generate  crawls a site and writes a sitemap for the pages found`,
	}

	cmd.AddCommand(newSitemapDiscoverCmd())
	cmd.AddCommand(newSitemapGenerateCmd())
	return cmd
}

func newSitemapDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <url>",
		Short: "List the URLs of a site's sitemaps",
		Long: `Discover reads the Sitemap entries of robots.txt, falling back to common
sitemap locations, follows sitemap indexes and prints one page URL per line.

Examples:
  seoscan sitemap discover https://example.com
  seoscan sitemap discover --max-urls 100 https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runSitemapDiscoverCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().Int("sitemap-depth", config.DefaultSitemapDepth, "Maximum sitemap index recursion depth")
	cmd.Flags().Int("max-urls", config.DefaultMaxURLs, "Maximum number of URLs to list")
	cmd.Flags().Bool("ignore-robots", false, "Do not read Sitemap entries from robots.txt")
	cmd.Flags().StringP("output", "o", "", "Write the URL list to this file")
	return cmd
}

func runSitemapDiscoverCmd(cmd *cobra.Command, args []string) (err error) {
	cfg, _, err := buildConfig(cmd, args)
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

	ctx, cancel := runContext(cmd.Context(), 0)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, features{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // Nothing to flush

	target := cfg.Targets[0]
	f, err := a.fetcherFor(siteConfig(cfg, target))
	if err != nil {
		return err
	}

	sitemapOpts := []sitemap.Option{
		sitemap.WithUserAgent(cfg.UserAgent),
		sitemap.WithMaxDepth(cfg.SitemapDepth),
		sitemap.WithMaxURLs(cfg.MaxURLs),
		sitemap.WithLogger(logger),
	}
	if cfg.IgnoreRobots {
		sitemapOpts = append(sitemapOpts, sitemap.WithRobots(robots.AllowAll(cfg.UserAgent)))
	}
	urls := sitemap.NewDiscoverer(f, sitemapOpts...).Discover(ctx, target)

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d URL(s) found\n", len(urls))
	return ctx.Err()
}

func newSitemapGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Crawl a site and write a sitemap",
		Long: `Generate crawls a site and writes a sitemap.xml listing every page that
was fetched successfully. Failed pages and pages marked noindex are left out.

Examples:
  seoscan sitemap generate https://example.com > sitemap.xml
  seoscan sitemap generate -d 5 -p 1000 -o public/sitemap.xml https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runSitemapGenerateCmd,
	}

	addFetchFlags(cmd)
	addCrawlFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Write the sitemap to this file")
	return cmd
}

func runSitemapGenerateCmd(cmd *cobra.Command, args []string) (err error) {
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

	ctx, cancel := runContext(cmd.Context(), 0)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, features{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // Nothing to flush

	target := cfg.Targets[0]
	site := siteConfig(cfg, target)
	f, err := a.fetcherFor(site)
	if err != nil {
		return err
	}

	pc := a.pipelineConfig(opts, site)
	pc.UseSitemap = false
	pc.Competitors = nil
	pc.SkipRecommendations = true
	pc.Progress = progressPrinter(opts.progress, func(format string, args ...any) {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	})

	audit := model.NewAudit(target)
	if err := pipeline.DefaultPipeline(a.services(f), pc).Execute(ctx, audit); err != nil && !audit.TimedOut {
		return err
	}
	warnTimedOut(logger, audit)

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := sitemap.Generate(out, audit.Pages); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	return nil
}

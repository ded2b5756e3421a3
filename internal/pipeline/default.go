package pipeline

import (
	"log/slog"

	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/recommend"
	"github.com/nao1215/seoscan/internal/sitemap"
)

// Services are the shared collaborators of audit pipelines.
// Optional services are nil when disabled.
type Services struct {
	Fetcher  fetcher.Fetcher
	Analyzer crawler.PageAnalyzer

	// Limiter is the politeness limiter used by Fetcher; robots.txt
	// crawl delays are applied to it.
	Limiter *fetcher.HostLimiter

	// Recommender is the language model; nil uses rules only.
	Recommender recommend.Recommender

	Store    ReportStore
	Exporter ReportExporter
	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

// DefaultPipelineConfig holds the per-site settings of the default pipeline.
type DefaultPipelineConfig struct {
	MaxDepth int
	MaxPages int
	Workers  int

	// UseSitemap audits sitemap URLs instead of crawling, falling back to
	// a crawl when the site has no sitemap.
	UseSitemap   bool
	SitemapDepth int
	MaxURLs      int

	// URLs, when set, are audited as a list without following links.
	URLs []string

	// Standalone analyzes URLs as independent pages, ignoring robots.txt.
	Standalone bool

	UserAgent      string
	IgnoreRobots   bool
	IgnorePatterns []string
	FollowPatterns []string
	Subdomains     bool
	Competitors    []string

	// SkipRecommendations leaves the report without recommendations.
	SkipRecommendations bool

	Progress crawler.ProgressFunc
}

// DefaultPipeline assembles the standard audit:
// collect → aggregate → compare → recommend → persist → export.
// Compare, persist and export are only added when configured.
func DefaultPipeline(svc Services, cfg DefaultPipelineConfig, opts ...Option) *Pipeline {
	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := New(append([]Option{WithLogger(logger), WithRecorder(svc.Recorder)}, opts...)...)

	policy := NewRobotsPolicy(svc.Fetcher, cfg.UserAgent, cfg.IgnoreRobots, svc.Limiter, logger)
	crawlOpts := []crawler.Option{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
		crawler.WithSubdomains(cfg.Subdomains),
		crawler.WithLogger(logger),
	}
	if cfg.Progress != nil {
		crawlOpts = append(crawlOpts, crawler.WithProgress(cfg.Progress))
	}

	crawl := NewCrawlStep(svc.Fetcher, svc.Analyzer, policy, crawlOpts...)
	switch {
	case len(cfg.URLs) > 0 && cfg.Standalone:
		p.AddStep(NewPagesStep(svc.Fetcher, svc.Analyzer, cfg.URLs, cfg.Workers))
	case len(cfg.URLs) > 0:
		p.AddStep(NewListStep(svc.Fetcher, svc.Analyzer, policy, cfg.URLs, crawlOpts...))
	case cfg.UseSitemap:
		p.AddStep(NewSitemapStep(svc.Fetcher, svc.Analyzer, policy, crawlOpts,
			WithSitemapOptions(
				sitemap.WithUserAgent(cfg.UserAgent),
				sitemap.WithMaxDepth(cfg.SitemapDepth),
				sitemap.WithMaxURLs(cfg.MaxURLs),
				sitemap.WithLogger(logger),
			),
			WithCrawlFallback(crawl),
			WithSitemapLogger(logger),
		))
	default:
		p.AddStep(crawl)
	}

	p.AddStep(NewAggregateStep(svc.Recorder))
	if len(cfg.Competitors) > 0 {
		p.AddStep(NewCompareStep(svc.Fetcher, svc.Analyzer, cfg.Competitors, cfg.Workers, logger))
	}
	if !cfg.SkipRecommendations {
		p.AddStep(NewRecommendStep(svc.Recommender, svc.Recorder, logger))
	}
	if svc.Store != nil {
		p.AddStep(NewPersistStep(svc.Store))
	}
	if svc.Exporter != nil {
		p.AddStep(NewExportStep(svc.Exporter))
	}
	return p
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/seoscan/internal/analyzer"
	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/database"
	"github.com/nao1215/seoscan/internal/export"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/pipeline"
	"github.com/nao1215/seoscan/internal/recommend"
)

// features selects the optional services a command needs.
type features struct {
	recommend bool
	persist   bool
	export    bool
}

// app holds the services shared by all audits of one run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	// limiter is shared by every fetcher so the politeness delay holds
	// across sites and robots.txt crawl delays apply everywhere.
	limiter *fetcher.HostLimiter

	cache       *fetcher.RedisCache
	analyzer    *analyzer.Analyzer
	recommender recommend.Recommender
	db          *database.HistoryDB
	exporter    *export.Exporter
	recorder    *metrics.Recorder
}

// newApp builds the services of a run. Callers must Close the app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, want features) (a *app, err error) {
	a = &app{
		cfg:     cfg,
		logger:  logger,
		limiter: fetcher.NewHostLimiter(cfg.CrawlDelay),
	}
	defer func() {
		if err != nil {
			_ = a.Close() //nolint:errcheck // Best effort cleanup
			a = nil
		}
	}()

	if cfg.MetricsFile != "" {
		a.recorder = metrics.NewRecorder()
	}

	if cfg.RedisAddr != "" {
		a.cache, err = fetcher.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("response cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	a.analyzer = newAnalyzer(cfg, logger)

	if want.recommend && cfg.LLMEnabled {
		a.recommender, err = recommend.NewOpenAI(cfg.LLMAPIKey,
			recommend.WithBaseURL(cfg.LLMBaseURL),
			recommend.WithModel(cfg.LLMModel),
			recommend.WithTimeout(cfg.LLMTimeout),
			recommend.WithBreakerObserver(func(service string, state recommend.BreakerState) {
				a.recorder.SetBreakerState(service, int(state))
			}),
			recommend.WithOpenAILogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create language model client: %w", err)
		}
	}

	if want.persist && cfg.SaveToDB {
		a.db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("database opened", "path", a.db.Path())
	}

	if want.export && cfg.ElasticsearchURL != "" {
		a.exporter, err = export.New(cfg.ElasticsearchURL,
			export.WithIndex(cfg.ElasticsearchIndex),
			export.WithObserver(a.recorder),
			export.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
	}

	return a, nil
}

// newAnalyzer creates the page analyzer with every available detector.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) *analyzer.Analyzer {
	opts := []analyzer.Option{
		analyzer.WithWeights(cfg.Weights),
		analyzer.WithLanguageDetector(analyzer.NewLinguaDetector()),
		analyzer.WithLogger(logger),
	}
	tech, err := analyzer.NewWappalyzerDetector()
	if err != nil {
		logger.Warn("technology detection disabled", "error", err)
	} else {
		opts = append(opts, analyzer.WithTechDetector(tech))
	}
	return analyzer.New(opts...)
}

// fetcherFor returns a fetcher carrying the cookie and headers of site.
func (a *app) fetcherFor(site config.SiteConfig) (fetcher.Fetcher, error) {
	opts := []fetcher.Option{
		fetcher.WithTimeout(a.cfg.Timeout),
		fetcher.WithUserAgent(a.cfg.UserAgent),
		fetcher.WithMaxBodySize(a.cfg.MaxBodySize),
		fetcher.WithHostLimiter(a.limiter),
		fetcher.WithLogger(a.logger),
	}
	if a.cfg.ProxyAddress != "" {
		opts = append(opts, fetcher.WithProxy(a.cfg.ProxyAddress))
	}
	if site.Cookie != "" {
		opts = append(opts, fetcher.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, fetcher.WithHeaders(site.Headers))
	}

	client, err := fetcher.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if a.cache == nil {
		return client, nil
	}
	return fetcher.NewCachingFetcher(client, a.cache, a.cfg.CacheTTL, a.logger), nil
}

// services returns the pipeline services using f for requests.
func (a *app) services(f fetcher.Fetcher) pipeline.Services {
	svc := pipeline.Services{
		Fetcher:     f,
		Analyzer:    a.analyzer,
		Limiter:     a.limiter,
		Recommender: a.recommender,
		Recorder:    a.recorder,
		Logger:      a.logger,
	}
	// Typed nils must not reach the interfaces.
	if a.db != nil {
		svc.Store = a.db
	}
	if a.exporter != nil {
		svc.Exporter = a.exporter
	}
	return svc
}

// pipelineConfig merges run settings and the site's file settings.
// Site settings override the global depth and page limit; patterns add up.
func (a *app) pipelineConfig(opts runOptions, site config.SiteConfig) pipeline.DefaultPipelineConfig {
	pc := pipeline.DefaultPipelineConfig{
		MaxDepth:            a.cfg.MaxDepth,
		MaxPages:            a.cfg.MaxPages,
		Workers:             a.cfg.Workers,
		UseSitemap:          a.cfg.UseSitemap,
		SitemapDepth:        a.cfg.SitemapDepth,
		MaxURLs:             a.cfg.MaxURLs,
		UserAgent:           a.cfg.UserAgent,
		IgnoreRobots:        a.cfg.IgnoreRobots,
		IgnorePatterns:      append(append([]string{}, site.IgnorePatterns...), opts.ignorePatterns...),
		FollowPatterns:      append(append([]string{}, site.FollowPatterns...), opts.followPatterns...),
		Subdomains:          opts.subdomains,
		Competitors:         a.cfg.Competitors,
		SkipRecommendations: opts.noRecommend,
	}
	if site.Depth > 0 {
		pc.MaxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		pc.MaxPages = site.MaxPages
	}
	if len(pc.Competitors) == 0 {
		pc.Competitors = site.Competitors
	}
	return pc
}

// progressPrinter returns a crawler progress callback writing to the
// command's stderr, or nil when progress output is off.
func progressPrinter(enabled bool, printf func(format string, args ...any)) crawler.ProgressFunc {
	if !enabled {
		return nil
	}
	return func(done int, page model.PageResult) {
		status := fmt.Sprintf("score %d", page.Score)
		if page.Error != nil {
			status = string(page.Error.Kind) + " error"
		}
		printf("[%d] %s (%s)\n", done, page.URL, status)
	}
}

// Close writes the metrics textfile and releases connections.
func (a *app) Close() error {
	var errs []error
	if a.recorder != nil && a.cfg.MetricsFile != "" {
		if err := a.recorder.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

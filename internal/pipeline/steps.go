package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/seoscan/internal/aggregate"
	"github.com/nao1215/seoscan/internal/compare"
	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/export"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/recommend"
	"github.com/nao1215/seoscan/internal/sitemap"
	"github.com/nao1215/seoscan/internal/urlutil"
)

// ErrNoSitemapURLs is returned by SitemapStep when no sitemap lists any
// URL and crawling fallback is disabled.
var ErrNoSitemapURLs = errors.New("no URLs found in sitemaps")

// ErrNoReport is returned by steps that need an aggregated report.
var ErrNoReport = errors.New("audit has no report")

// collect stores pages on audit. A context error with partial pages marks
// the audit as timed out instead of failing the step.
func collect(ctx context.Context, audit *model.Audit, pages []model.PageResult, err error) error {
	audit.Pages = pages
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		audit.TimedOut = true
		return nil
	}
	return err
}

// CrawlStep crawls the target breadth-first.
type CrawlStep struct {
	fetcher  fetcher.Fetcher
	analyzer crawler.PageAnalyzer
	robots   *RobotsPolicy
	opts     []crawler.Option
}

// NewCrawlStep creates a crawl step. opts configure the crawler; robots
// rules are added per target.
func NewCrawlStep(f fetcher.Fetcher, a crawler.PageAnalyzer, policy *RobotsPolicy, opts ...crawler.Option) *CrawlStep {
	return &CrawlStep{fetcher: f, analyzer: a, robots: policy, opts: opts}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls audit.Target.
func (s *CrawlStep) Do(ctx context.Context, audit *model.Audit) error {
	audit.Source = model.SourceCrawl
	opts := s.opts
	if s.robots != nil {
		opts = append(opts[:len(opts):len(opts)], crawler.WithRobotsFunc(s.robots.Rules))
	}
	c := crawler.New(s.fetcher, s.analyzer, opts...)
	pages, err := c.Crawl(ctx, audit.Target)
	return collect(ctx, audit, pages, err)
}

// SitemapStep audits the URLs listed in the target's sitemaps.
type SitemapStep struct {
	fetcher     fetcher.Fetcher
	analyzer    crawler.PageAnalyzer
	robots      *RobotsPolicy
	crawlOpts   []crawler.Option
	sitemapOpts []sitemap.Option
	fallback    Step
	logger      *slog.Logger
}

// SitemapStepOption configures a SitemapStep.
type SitemapStepOption func(*SitemapStep)

// WithSitemapOptions configures the sitemap discoverer.
func WithSitemapOptions(opts ...sitemap.Option) SitemapStepOption {
	return func(s *SitemapStep) {
		s.sitemapOpts = append(s.sitemapOpts, opts...)
	}
}

// WithCrawlFallback runs step when no sitemap URL is found.
func WithCrawlFallback(step Step) SitemapStepOption {
	return func(s *SitemapStep) {
		s.fallback = step
	}
}

// WithSitemapLogger sets a custom logger.
func WithSitemapLogger(logger *slog.Logger) SitemapStepOption {
	return func(s *SitemapStep) {
		s.logger = logger
	}
}

// NewSitemapStep creates a sitemap step. crawlOpts configure the crawler
// used to fetch the listed URLs.
func NewSitemapStep(f fetcher.Fetcher, a crawler.PageAnalyzer, policy *RobotsPolicy, crawlOpts []crawler.Option, opts ...SitemapStepOption) *SitemapStep {
	s := &SitemapStep{
		fetcher:   f,
		analyzer:  a,
		robots:    policy,
		crawlOpts: crawlOpts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SitemapStep) Name() string {
	return "sitemap"
}

// Do discovers sitemap URLs and audits them.
func (s *SitemapStep) Do(ctx context.Context, audit *model.Audit) error {
	sitemapOpts := s.sitemapOpts
	crawlOpts := s.crawlOpts
	if s.robots != nil {
		rules := s.robots.Rules(ctx, audit.Target)
		sitemapOpts = append(sitemapOpts[:len(sitemapOpts):len(sitemapOpts)], sitemap.WithRobots(rules))
		crawlOpts = append(crawlOpts[:len(crawlOpts):len(crawlOpts)], crawler.WithRobotsFunc(s.robots.Rules))
	}

	urls := sitemap.NewDiscoverer(s.fetcher, sitemapOpts...).Discover(ctx, audit.Target)
	audit.SitemapURLs = urls
	if len(urls) == 0 {
		if s.fallback == nil {
			return fmt.Errorf("%w: %s", ErrNoSitemapURLs, audit.Target)
		}
		s.logger.Warn("no sitemap URLs found, falling back to crawling", "target", audit.Target)
		return s.fallback.Do(ctx, audit)
	}

	audit.Source = model.SourceSitemap
	c := crawler.New(s.fetcher, s.analyzer, crawlOpts...)
	pages, err := c.Analyze(ctx, urls)
	return collect(ctx, audit, pages, err)
}

// ListStep audits an explicit URL list without following links.
type ListStep struct {
	fetcher  fetcher.Fetcher
	analyzer crawler.PageAnalyzer
	robots   *RobotsPolicy
	urls     []string
	opts     []crawler.Option
}

// NewListStep creates a step auditing urls. An empty list audits the
// target alone.
func NewListStep(f fetcher.Fetcher, a crawler.PageAnalyzer, policy *RobotsPolicy, urls []string, opts ...crawler.Option) *ListStep {
	return &ListStep{fetcher: f, analyzer: a, robots: policy, urls: urls, opts: opts}
}

// Name returns the step name.
func (s *ListStep) Name() string {
	return "list"
}

// Do fetches and analyzes the configured URLs.
func (s *ListStep) Do(ctx context.Context, audit *model.Audit) error {
	audit.Source = model.SourceList
	urls := s.urls
	if len(urls) == 0 {
		urls = []string{audit.Target}
	}
	opts := s.opts
	if s.robots != nil {
		opts = append(opts[:len(opts):len(opts)], crawler.WithRobotsFunc(s.robots.Rules))
	}
	pages, err := crawler.New(s.fetcher, s.analyzer, opts...).Analyze(ctx, urls)
	return collect(ctx, audit, pages, err)
}

// PagesStep analyzes explicitly requested pages as standalone documents.
// Unlike ListStep it neither consults robots.txt nor drops duplicates.
type PagesStep struct {
	fetcher  fetcher.Fetcher
	analyzer crawler.PageAnalyzer
	urls     []string
	workers  int
}

// NewPagesStep creates a step fetching urls with at most workers requests
// in flight.
func NewPagesStep(f fetcher.Fetcher, a crawler.PageAnalyzer, urls []string, workers int) *PagesStep {
	return &PagesStep{fetcher: f, analyzer: a, urls: urls, workers: workers}
}

// Name returns the step name.
func (s *PagesStep) Name() string {
	return "pages"
}

// Do fetches and analyzes the pages.
func (s *PagesStep) Do(ctx context.Context, audit *model.Audit) error {
	audit.Source = model.SourceList
	urls := s.urls
	if len(urls) == 0 {
		urls = []string{audit.Target}
	}
	audit.Pages = FetchPages(ctx, s.fetcher, s.analyzer, urls, s.workers)
	if ctx.Err() != nil {
		audit.TimedOut = true
	}
	return nil
}

// AggregateStep reduces the collected pages into the site report.
// It runs on partial results after cancellation.
type AggregateStep struct {
	recorder *metrics.Recorder
}

// NewAggregateStep creates an aggregate step. recorder may be nil.
func NewAggregateStep(recorder *metrics.Recorder) *AggregateStep {
	return &AggregateStep{recorder: recorder}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// RunsOnPartial implements PartialSafe.
func (s *AggregateStep) RunsOnPartial() bool {
	return true
}

// Do builds and stamps audit.Report.
func (s *AggregateStep) Do(_ context.Context, audit *model.Audit) error {
	for _, p := range audit.Pages {
		s.recorder.ObservePage(p)
	}
	report := aggregate.Aggregate(audit.Pages)
	report.Target = audit.Target
	report.Source = audit.Source
	report.Stamp()
	audit.Report = report
	return nil
}

// CompareStep compares the target page with competitor pages.
// Insufficient data is logged, not fatal.
type CompareStep struct {
	fetcher     fetcher.Fetcher
	analyzer    crawler.PageAnalyzer
	competitors []string
	workers     int
	logger      *slog.Logger
}

// NewCompareStep creates a compare step for competitors.
func NewCompareStep(f fetcher.Fetcher, a crawler.PageAnalyzer, competitors []string, workers int, logger *slog.Logger) *CompareStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompareStep{fetcher: f, analyzer: a, competitors: competitors, workers: workers, logger: logger}
}

// Name returns the step name.
func (s *CompareStep) Name() string {
	return "compare"
}

// Do sets audit.Comparison.
func (s *CompareStep) Do(ctx context.Context, audit *model.Audit) error {
	if len(s.competitors) == 0 {
		return nil
	}

	target, ok := targetPage(audit)
	if !ok {
		target = FetchPages(ctx, s.fetcher, s.analyzer, []string{audit.Target}, 1)[0]
	}
	competitors := FetchPages(ctx, s.fetcher, s.analyzer, s.competitors, s.workers)

	comparison, err := compare.Compare(target, competitors)
	if err != nil {
		var insufficient *compare.InsufficientDataError
		if errors.As(err, &insufficient) {
			s.logger.Warn("competitor comparison skipped", "target", audit.Target, "reason", insufficient.Reason)
			return nil
		}
		return err
	}
	audit.Comparison = comparison
	return nil
}

// targetPage finds the page of the audit target among the collected pages.
func targetPage(audit *model.Audit) (model.PageResult, bool) {
	want, err := urlutil.Normalize(audit.Target)
	if err != nil {
		return model.PageResult{}, false
	}
	for _, p := range audit.Pages {
		if p.URL == want {
			return p, true
		}
	}
	return model.PageResult{}, false
}

// RecommendStep adds recommendations to the report.
type RecommendStep struct {
	primary  recommend.Recommender
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewRecommendStep creates a recommend step. A nil primary uses the
// rule-based recommender only.
func NewRecommendStep(primary recommend.Recommender, recorder *metrics.Recorder, logger *slog.Logger) *RecommendStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendStep{primary: primary, recorder: recorder, logger: logger}
}

// Name returns the step name.
func (s *RecommendStep) Name() string {
	return "recommend"
}

// Do never fails once a report exists; language model errors are
// recorded on the report.
func (s *RecommendStep) Do(ctx context.Context, audit *model.Audit) error {
	if audit.Report == nil {
		return ErrNoReport
	}
	result := recommend.Generate(ctx, s.primary, recommend.NewSummary(audit.Report, audit.Comparison), s.logger)
	audit.Report.Recommendations = result.Text
	audit.Report.RecommendationsSource = result.Source
	if result.Err != nil {
		audit.Report.RecommendationsError = result.Err.Error()
	}
	if s.primary != nil {
		outcome := "llm"
		if result.Source != recommend.SourceLLM {
			outcome = "fallback"
		}
		s.recorder.ObserveLLM(outcome)
	}
	return nil
}

// ReportStore persists site reports. *database.HistoryDB implements it.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.SiteReport) error
}

// PersistStep saves the report to the history database.
type PersistStep struct {
	store ReportStore
}

// NewPersistStep creates a persist step.
func NewPersistStep(store ReportStore) *PersistStep {
	return &PersistStep{store: store}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves audit.Report.
func (s *PersistStep) Do(ctx context.Context, audit *model.Audit) error {
	if audit.Report == nil {
		return ErrNoReport
	}
	if err := s.store.SaveReport(ctx, audit.Report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ReportExporter sends reports to a search index. *export.Exporter
// implements it.
type ReportExporter interface {
	Export(ctx context.Context, report *model.SiteReport) (export.Result, error)
}

// ExportStep exports the report pages.
type ExportStep struct {
	exporter ReportExporter
}

// NewExportStep creates an export step.
func NewExportStep(exporter ReportExporter) *ExportStep {
	return &ExportStep{exporter: exporter}
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do exports audit.Report.
func (s *ExportStep) Do(ctx context.Context, audit *model.Audit) error {
	if audit.Report == nil {
		return ErrNoReport
	}
	if _, err := s.exporter.Export(ctx, audit.Report); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}

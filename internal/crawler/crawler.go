package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/robots"
	"github.com/nao1215/seoscan/internal/urlutil"
)

// PageAnalyzer turns a fetch outcome into a page result.
// *analyzer.Analyzer implements it.
type PageAnalyzer interface {
	AnalyzeResponse(pageURL string, depth int, resp *fetcher.Response, fetchErr error) model.PageResult
}

// RulesFunc returns the robots.txt rules for the host of pageURL.
// pipeline.RobotsPolicy.Rules satisfies it.
type RulesFunc func(ctx context.Context, pageURL string) *robots.Rules

// ProgressFunc is called from the control loop for every finished page.
// done is the number of pages finished so far.
type ProgressFunc func(done int, page model.PageResult)

// Crawler performs bounded breadth-first crawls.
// A Crawler keeps no state between calls and may be reused.
type Crawler struct {
	fetcher  fetcher.Fetcher
	analyzer PageAnalyzer

	// maxPages caps the number of visited URLs.
	maxPages int

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed page, 1 means one level of links, etc.
	maxDepth int

	// workers is the number of concurrent fetches within a batch.
	workers int

	// rules filter links by robots.txt; nil allows everything.
	rules *robots.Rules

	// rulesFor, when set, supplies rules per host and replaces rules.
	rulesFor RulesFunc

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns, when set, restrict crawling to matching paths.
	followPatterns []string

	// includeSubdomains also follows links to other hosts of the same
	// registrable domain.
	includeSubdomains bool

	// skipFiltered drops assets, private paths and tracking URLs.
	skipFiltered bool

	progress ProgressFunc
	logger   *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages sets the maximum number of pages to visit.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		c.maxPages = n
	}
}

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithWorkers sets the fetch concurrency within a batch.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.workers = n
	}
}

// WithRobots sets the robots.txt rules applied to discovered links.
func WithRobots(rules *robots.Rules) Option {
	return func(c *Crawler) {
		c.rules = rules
	}
}

// WithRobotsFunc looks up robots.txt rules per host, so links on the
// redirect target of the seed or on subdomains follow their own rules.
func WithRobotsFunc(fn RulesFunc) Option {
	return func(c *Crawler) {
		c.rulesFor = fn
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/drafts/*", "*.pdf").
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// WithSubdomains follows links to sibling hosts of the seed's domain.
func WithSubdomains(include bool) Option {
	return func(c *Crawler) {
		c.includeSubdomains = include
	}
}

// WithSkipList toggles filtering of assets, private paths and tracking URLs.
func WithSkipList(enabled bool) Option {
	return func(c *Crawler) {
		c.skipFiltered = enabled
	}
}

// WithProgress sets a callback invoked for every finished page.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler that fetches with f and analyzes with a.
func New(f fetcher.Fetcher, a PageAnalyzer, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:      f,
		analyzer:     a,
		maxPages:     100,
		maxDepth:     3,
		workers:      5,
		skipFiltered: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if c.maxPages < 1 {
		c.maxPages = 1
	}
	if c.maxDepth < 0 {
		c.maxDepth = 0
	}
	return c
}

// Crawl visits the site of seed breadth-first and returns one result per
// visited URL, in visiting order.
//
// Failed pages are part of the result. The crawl itself fails only when
// the seed is invalid, unreachable (network or HTTP error) or disallowed
// by robots.txt; the latter two wrap ErrSeedUnreachable. When ctx is
// cancelled the loop stops after the in-flight batch and returns the
// pages collected so far together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]model.PageResult, error) {
	seedURL, err := urlutil.Normalize(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, seed, err)
	}
	u, err := url.Parse(seedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, seed)
	}
	if err := c.robotsFor(ctx, seedURL).Check(seedURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedUnreachable, err)
	}

	hosts := map[string]struct{}{u.Host: {}}
	state := newFrontier(c.maxPages, c.maxDepth)
	state.enqueue(seedURL, 0)

	c.logger.Info("starting crawl",
		"seed", seedURL,
		"max_pages", c.maxPages,
		"max_depth", c.maxDepth,
		"workers", c.workers,
	)

	results := make([]model.PageResult, 0, min(c.maxPages, 64))
	for !state.done() {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("crawl cancelled", "pages", len(results), "error", err)
			return results, err
		}

		batch := state.nextBatch(c.workers)
		pages := c.fetchBatch(ctx, batch)

		if len(results) == 0 {
			seedPage := pages[0]
			if seedPage.Error != nil && seedPage.Error.Kind != model.PageErrorParse {
				return nil, fmt.Errorf("%w: %s: %w", ErrSeedUnreachable, seedURL, seedPage.Error)
			}
			if seedPage.FinalURL != "" {
				if final, err := url.Parse(seedPage.FinalURL); err == nil {
					hosts[final.Host] = struct{}{}
				}
			}
		}

		for i, page := range pages {
			results = append(results, page)
			if c.progress != nil {
				c.progress(len(results), page)
			}
			if final, ok := redirectTarget(page, batch[i].url); ok {
				state.markVisited(final)
			}
			if page.Failed() {
				continue
			}
			for _, link := range c.candidateLinks(page) {
				if c.admit(ctx, link, hosts) {
					state.enqueue(link, batch[i].depth+1)
				}
			}
		}
	}

	c.logger.Info("crawl finished", "seed", seedURL, "pages", len(results))
	return results, nil
}

// Analyze fetches and analyzes an explicit list of URLs, for example from
// a sitemap. Duplicates are dropped and robots-disallowed URLs skipped.
// Results keep the input order. Cancellation behaves as in Crawl.
func (c *Crawler) Analyze(ctx context.Context, urls []string) ([]model.PageResult, error) {
	items := make([]queueItem, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		normalized, err := urlutil.Normalize(raw)
		if err != nil {
			c.logger.Debug("skipping invalid URL", "url", raw, "error", err)
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		if !c.robotsFor(ctx, normalized).Allowed(normalized) {
			c.logger.Debug("skipping URL disallowed by robots.txt", "url", normalized)
			continue
		}
		items = append(items, queueItem{url: normalized})
	}

	results := make([]model.PageResult, 0, len(items))
	for start := 0; start < len(items); start += c.workers {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := min(start+c.workers, len(items))
		for _, page := range c.fetchBatch(ctx, items[start:end]) {
			results = append(results, page)
			if c.progress != nil {
				c.progress(len(results), page)
			}
		}
	}
	return results, nil
}

// fetchBatch fetches and analyzes batch concurrently. Results are returned
// by batch position.
func (c *Crawler) fetchBatch(ctx context.Context, batch []queueItem) []model.PageResult {
	pages := make([]model.PageResult, len(batch))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, item := range batch {
		g.Go(func() error {
			resp, err := c.fetcher.Fetch(ctx, item.url)
			pages[i] = c.analyzer.AnalyzeResponse(item.url, item.depth, resp, err)
			if err != nil {
				c.logger.Debug("page failed", "url", item.url, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return pages
}

// robotsFor returns the rules that apply to rawURL.
func (c *Crawler) robotsFor(ctx context.Context, rawURL string) *robots.Rules {
	if c.rulesFor != nil {
		return c.rulesFor(ctx, rawURL)
	}
	return c.rules
}

// redirectTarget returns the normalized final URL of page when a redirect
// led away from requested.
func redirectTarget(page model.PageResult, requested string) (string, bool) {
	if page.FinalURL == "" {
		return "", false
	}
	final, err := urlutil.Normalize(page.FinalURL)
	if err != nil || final == requested {
		return "", false
	}
	return final, true
}

// candidateLinks returns the links of page that may stay within the site.
func (c *Crawler) candidateLinks(page model.PageResult) []string {
	if !c.includeSubdomains {
		return page.InternalLinks
	}
	links := make([]string, 0, len(page.InternalLinks)+len(page.ExternalLinks))
	links = append(links, page.InternalLinks...)
	return append(links, page.ExternalLinks...)
}

// admit applies the host, skip list, pattern and robots filters to link.
func (c *Crawler) admit(ctx context.Context, link string, hosts map[string]struct{}) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if !c.hostAllowed(u.Host, hosts) {
		return false
	}
	if c.skipFiltered && urlutil.ShouldSkip(link) {
		return false
	}
	if !c.pathAllowed(u.Path) {
		return false
	}
	return c.robotsFor(ctx, link).Allowed(link)
}

func (c *Crawler) hostAllowed(host string, hosts map[string]struct{}) bool {
	for h := range hosts {
		if strings.EqualFold(h, host) {
			return true
		}
		if c.includeSubdomains && urlutil.SameSite(h, host) {
			return true
		}
	}
	return false
}

// pathAllowed checks the ignore patterns first, then the follow patterns.
func (c *Crawler) pathAllowed(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, pattern := range c.ignorePatterns {
		if urlutil.MatchPattern(pattern, path) {
			return false
		}
	}
	if len(c.followPatterns) == 0 {
		return true
	}
	for _, pattern := range c.followPatterns {
		if urlutil.MatchPattern(pattern, path) {
			return true
		}
	}
	return false
}

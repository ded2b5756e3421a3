package sitemap

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/robots"
	"github.com/nao1215/seoscan/internal/urlutil"
)

// Defaults for discovery bounds.
const (
	DefaultMaxDepth = 3
	DefaultMaxURLs  = 50000
)

// commonPaths are probed in order when robots.txt names no usable sitemap.
var commonPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/wp-sitemap.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
}

// Discoverer finds and flattens the sitemaps of a site.
type Discoverer struct {
	fetcher   fetcher.Fetcher
	rules     *robots.Rules
	userAgent string
	maxDepth  int
	maxURLs   int
	logger    *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithRobots supplies already fetched robots.txt rules.
// Without it Discover fetches robots.txt itself.
func WithRobots(rules *robots.Rules) Option {
	return func(d *Discoverer) {
		d.rules = rules
	}
}

// WithUserAgent sets the agent used to evaluate robots.txt.
func WithUserAgent(ua string) Option {
	return func(d *Discoverer) {
		d.userAgent = ua
	}
}

// WithMaxDepth bounds how many index levels are followed. Zero lists the
// URLs of top-level sitemaps only; negative values are ignored.
func WithMaxDepth(depth int) Option {
	return func(d *Discoverer) {
		if depth >= 0 {
			d.maxDepth = depth
		}
	}
}

// WithMaxURLs caps the number of page URLs returned.
func WithMaxURLs(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxURLs = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// NewDiscoverer creates a Discoverer that downloads sitemaps with f.
func NewDiscoverer(f fetcher.Fetcher, opts ...Option) *Discoverer {
	d := &Discoverer{
		fetcher:   f,
		userAgent: "*",
		maxDepth:  DefaultMaxDepth,
		maxURLs:   DefaultMaxURLs,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// walk holds the state of one Discover call.
type walk struct {
	visited map[string]struct{}
	seen    map[string]struct{}
	urls    []string
}

func (w *walk) full(limit int) bool {
	return len(w.urls) >= limit
}

// Discover returns the page URLs listed in the sitemaps of siteURL,
// deduplicated in first-seen order. It never fails: unreachable or
// malformed sitemaps are logged and skipped, so a site without sitemaps
// yields an empty list.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) []string {
	w := &walk{
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
		urls:    []string{},
	}

	base, err := url.Parse(siteURL)
	if err != nil || base.Host == "" {
		d.logger.Warn("invalid site URL for sitemap discovery", "url", siteURL)
		return w.urls
	}

	rules := d.rules
	if rules == nil {
		rules = robots.Fetch(ctx, d.fetcher, siteURL, d.userAgent, d.logger)
	}

	found := false
	for _, loc := range rules.Sitemaps() {
		if d.visit(ctx, w, loc, 0) {
			found = true
		}
	}

	if !found {
		for _, path := range commonPaths {
			if ctx.Err() != nil {
				break
			}
			probe := (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: path}).String()
			if d.visit(ctx, w, probe, 0) {
				d.logger.Debug("sitemap found by probing", "url", probe)
				break
			}
		}
	}

	d.logger.Info("sitemap discovery finished", "site", siteURL, "urls", len(w.urls))
	return w.urls
}

// visit fetches one sitemap and recurses into index children. It reports
// whether the document parsed as a sitemap.
func (d *Discoverer) visit(ctx context.Context, w *walk, loc string, depth int) bool {
	if ctx.Err() != nil || w.full(d.maxURLs) {
		return false
	}
	if _, done := w.visited[loc]; done {
		return false
	}
	w.visited[loc] = struct{}{}

	resp, err := d.fetcher.Fetch(ctx, loc)
	if err != nil {
		d.logger.Debug("sitemap unavailable", "url", loc, "error", err)
		return false
	}
	doc, err := Parse(resp.Body)
	if err != nil {
		d.logger.Debug("sitemap unparsable", "url", loc, "error", err)
		return false
	}

	if doc.Kind() == KindIndex {
		if depth >= d.maxDepth {
			d.logger.Warn("sitemap index too deep, not following", "url", loc, "depth", depth)
			return true
		}
		for _, child := range doc.Sitemaps {
			if child.Loc == "" {
				continue
			}
			d.visit(ctx, w, child.Loc, depth+1)
		}
		return true
	}

	for _, entry := range doc.URLs {
		if w.full(d.maxURLs) {
			break
		}
		normalized, err := urlutil.Normalize(entry.Loc)
		if err != nil || entry.Loc == "" {
			continue
		}
		if _, dup := w.seen[normalized]; dup {
			continue
		}
		w.seen[normalized] = struct{}{}
		w.urls = append(w.urls, normalized)
	}
	return true
}

package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/robots"
)

// RobotsPolicy loads robots.txt once per host and applies its Crawl-delay
// to the shared host limiter. Steps of one pipeline share a policy.
type RobotsPolicy struct {
	fetcher   fetcher.Fetcher
	userAgent string
	ignore    bool
	limiter   *fetcher.HostLimiter
	logger    *slog.Logger

	mu    sync.Mutex
	rules map[string]*robots.Rules
}

// NewRobotsPolicy creates a policy. With ignore set every URL is allowed
// and robots.txt is never fetched. limiter may be nil.
func NewRobotsPolicy(f fetcher.Fetcher, userAgent string, ignore bool, limiter *fetcher.HostLimiter, logger *slog.Logger) *RobotsPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsPolicy{
		fetcher:   f,
		userAgent: userAgent,
		ignore:    ignore,
		limiter:   limiter,
		logger:    logger,
		rules:     make(map[string]*robots.Rules),
	}
}

// Rules returns the robots.txt rules for the host of siteURL.
func (p *RobotsPolicy) Rules(ctx context.Context, siteURL string) *robots.Rules {
	if p.ignore {
		return robots.AllowAll(p.userAgent)
	}

	host := siteURL
	if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if rules, ok := p.rules[host]; ok {
		return rules
	}
	rules := robots.Fetch(ctx, p.fetcher, siteURL, p.userAgent, p.logger)
	if delay := rules.CrawlDelay(); delay > 0 {
		p.logger.Info("honouring robots.txt crawl delay", "host", host, "delay", delay)
		p.limiter.Slow(host, delay)
	}
	p.rules[host] = rules
	return rules
}

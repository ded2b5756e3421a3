// Package robots fetches and evaluates robots.txt files.
package robots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/seoscan/internal/fetcher"
)

// BlockedError reports a URL that robots.txt disallows for our agent.
// Crawlers skip such URLs silently; the error only surfaces when the seed
// itself is blocked.
type BlockedError struct {
	URL string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s is disallowed by robots.txt", e.URL)
}

// IsBlocked reports whether err is or wraps a BlockedError.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// Rules are the parsed robots.txt directives for one host.
// A nil *Rules allows everything.
type Rules struct {
	data  *robotstxt.RobotsData
	group *robotstxt.Group
	agent string
}

// Parse builds Rules from a robots.txt response. Any 4xx status means no
// restrictions. 5xx statuses are also treated as allow-all so a flaky
// robots endpoint cannot hide a whole site from the audit.
func Parse(statusCode int, body []byte, userAgent string) (*Rules, error) {
	if statusCode >= http.StatusInternalServerError {
		statusCode = http.StatusNotFound
	}
	data, err := robotstxt.FromStatusAndBytes(statusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	agent := ProductToken(userAgent)
	return &Rules{
		data:  data,
		group: data.FindGroup(agent),
		agent: agent,
	}, nil
}

// AllowAll returns Rules without restrictions.
func AllowAll(userAgent string) *Rules {
	rules, _ := Parse(http.StatusNotFound, nil, userAgent) //nolint:errcheck // empty input always parses
	return rules
}

// URL returns the robots.txt location for the site of rawURL.
func URL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}
	return u.Scheme + "://" + u.Host + "/robots.txt", nil
}

// Fetch downloads and parses robots.txt for the site of siteURL.
// It never fails: network errors and unparsable files yield allow-all
// rules and a logged warning.
func Fetch(ctx context.Context, f fetcher.Fetcher, siteURL, userAgent string, logger *slog.Logger) *Rules {
	if logger == nil {
		logger = slog.Default()
	}

	robotsURL, err := URL(siteURL)
	if err != nil {
		logger.Warn("cannot derive robots.txt URL", "url", siteURL, "error", err)
		return AllowAll(userAgent)
	}

	resp, err := f.Fetch(ctx, robotsURL)
	if resp == nil {
		logger.Warn("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
		return AllowAll(userAgent)
	}

	rules, perr := Parse(resp.StatusCode, resp.Body, userAgent)
	if perr != nil {
		logger.Warn("robots.txt unparsable, allowing all", "url", robotsURL, "error", perr)
		return AllowAll(userAgent)
	}

	logger.Debug("robots.txt loaded",
		"url", robotsURL,
		"status", resp.StatusCode,
		"sitemaps", len(rules.Sitemaps()),
	)
	return rules
}

// Allowed reports whether rawURL may be fetched.
func (r *Rules) Allowed(rawURL string) bool {
	if r == nil || r.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.group.Test(path)
}

// Check returns a BlockedError when rawURL is disallowed.
func (r *Rules) Check(rawURL string) error {
	if r.Allowed(rawURL) {
		return nil
	}
	return &BlockedError{URL: rawURL}
}

// Sitemaps returns the Sitemap: URLs declared in the file.
func (r *Rules) Sitemaps() []string {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data.Sitemaps
}

// CrawlDelay returns the Crawl-delay for our agent, or zero.
func (r *Rules) CrawlDelay() time.Duration {
	if r == nil || r.group == nil {
		return 0
	}
	return r.group.CrawlDelay
}

// ProductToken extracts the product name from a User-Agent string,
// e.g. "SEOScan" from "SEOScan/1.0 (+https://...)".
func ProductToken(userAgent string) string {
	token := strings.TrimSpace(userAgent)
	if i := strings.IndexAny(token, "/ "); i > 0 {
		token = token[:i]
	}
	if token == "" {
		return "*"
	}
	return token
}

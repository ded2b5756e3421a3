package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the parent of every configuration error. A run that fails
// with an error matching ErrConfig never sends a request.
var ErrConfig = errors.New("invalid configuration")

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = fmt.Errorf("%w: no target specified: provide a URL or use --list", ErrConfig)

	// ErrInvalidURL is returned when a target or competitor is not an absolute http(s) URL.
	ErrInvalidURL = fmt.Errorf("%w: invalid URL", ErrConfig)

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = fmt.Errorf("%w: invalid timeout: must be positive", ErrConfig)

	// ErrInvalidMaxDepth is returned when max depth is negative.
	ErrInvalidMaxDepth = fmt.Errorf("%w: invalid max depth: must be non-negative", ErrConfig)

	// ErrInvalidMaxPages is returned when max pages is not positive.
	ErrInvalidMaxPages = fmt.Errorf("%w: invalid max pages: must be positive", ErrConfig)

	// ErrInvalidMaxURLs is returned when the sitemap URL cap is not positive.
	ErrInvalidMaxURLs = fmt.Errorf("%w: invalid max urls: must be positive", ErrConfig)

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = fmt.Errorf("%w: invalid worker count: must be positive", ErrConfig)

	// ErrInvalidConcurrency is returned when site concurrency is not positive.
	ErrInvalidConcurrency = fmt.Errorf("%w: invalid concurrency: must be positive", ErrConfig)

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = fmt.Errorf("%w: invalid crawl delay: must be non-negative", ErrConfig)

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = fmt.Errorf("%w: invalid max body size: must be non-negative", ErrConfig)

	// ErrInvalidSitemapDepth is returned when the sitemap recursion bound is negative.
	ErrInvalidSitemapDepth = fmt.Errorf("%w: invalid sitemap depth: must be non-negative", ErrConfig)

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = fmt.Errorf("%w: invalid report format", ErrConfig)

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = fmt.Errorf("%w: invalid log format", ErrConfig)

	// ErrMissingAPIKey is returned when LLM recommendations are requested
	// without an API key.
	ErrMissingAPIKey = fmt.Errorf("%w: --llm requires OPENAI_API_KEY or SEOSCAN_LLM_API_KEY", ErrConfig)

	// ErrInvalidWeights is returned when all score weights are zero or negative.
	ErrInvalidWeights = fmt.Errorf("%w: score weights must add up to a positive number", ErrConfig)
)

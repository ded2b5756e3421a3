package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/seoscan/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "seoscan"

	// DefaultTimeout is the per-request timeout. Ordinary web servers answer
	// well within 10 seconds; slower pages are reported as slow anyway.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxDepth is the maximum BFS depth from the seed URL.
	// Depth 0 means only the seed page is analyzed.
	DefaultMaxDepth = 3

	// DefaultMaxPages caps the number of pages visited per site.
	DefaultMaxPages = 100

	// DefaultMaxURLs caps the number of sitemap URLs analyzed per site.
	DefaultMaxURLs = 500

	// DefaultWorkers is the number of concurrent fetches within one crawl batch.
	DefaultWorkers = 5

	// DefaultConcurrency is the number of sites audited in parallel.
	DefaultConcurrency = 3

	// DefaultCrawlDelay is the minimum interval between two requests to the
	// same host. Use 0 to disable the delay.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultUserAgent identifies SEOScan in HTTP requests and robots.txt matching.
	DefaultUserAgent = "SEOScan/1.0 (+https://github.com/nao1215/seoscan)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSitemapDepth bounds sitemap index recursion.
	DefaultSitemapDepth = 3

	// DefaultFormat is the report format written when none is given.
	DefaultFormat = "text"

	// DefaultLogFormat is the log output format.
	DefaultLogFormat = "text"

	// DefaultLLMBaseURL is the OpenAI-compatible API endpoint.
	DefaultLLMBaseURL = "https://api.openai.com/v1"

	// DefaultLLMModel is the chat model asked for recommendations.
	DefaultLLMModel = "gpt-4o-mini"

	// DefaultLLMTimeout bounds a single recommendation request.
	DefaultLLMTimeout = 60 * time.Second

	// DefaultCacheTTL is how long cached responses stay valid in Redis.
	DefaultCacheTTL = 1 * time.Hour

	// DefaultElasticsearchIndex is the index page results are exported to.
	DefaultElasticsearchIndex = "seoscan-pages"
)

// Report formats accepted by --format.
var validFormats = []string{"text", "json", "markdown", "html", "csv"}

// ValidFormats returns the accepted report format names.
func ValidFormats() []string {
	return slices.Clone(validFormats)
}

// Config holds all runtime options. It is populated from defaults, the
// configuration file, environment variables and CLI flags, in that order
// of increasing precedence, and passed explicitly to the components.
type Config struct {
	// Targets are the seed URLs to audit. Each must include a scheme.
	Targets []string

	// Competitors are compared against the first target by the compare command.
	Competitors []string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxDepth is the maximum BFS depth. Depth 0 means the seed only.
	MaxDepth int

	// MaxPages caps the number of visited pages per site.
	MaxPages int

	// MaxURLs caps the number of sitemap URLs analyzed in sitemap mode.
	MaxURLs int

	// Workers is the fetch concurrency within a crawl batch.
	Workers int

	// Concurrency is the number of sites audited at once.
	Concurrency int

	// CrawlDelay is the per-host politeness interval.
	CrawlDelay time.Duration

	// UserAgent is sent with every request and used for robots.txt matching.
	UserAgent string

	// MaxBodySize is the maximum body size in bytes; 0 uses the default.
	MaxBodySize int64

	// UseSitemap makes the audit analyze sitemap URLs instead of crawling
	// when a sitemap is found.
	UseSitemap bool

	// SitemapDepth bounds sitemap index recursion.
	SitemapDepth int

	// IgnoreRobots disables robots.txt filtering.
	IgnoreRobots bool

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// Format is the report format (see ValidFormats).
	Format string

	// ReportFile is the output path; empty writes to stdout.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// SiteConfigs holds the parsed configuration file.
	SiteConfigs *File

	// Weights are the score weights; zero value means defaults.
	Weights model.ScoreWeights

	// DBDir is the directory holding the SQLite history database.
	DBDir string

	// SaveToDB stores finished reports in the history database.
	SaveToDB bool

	// LLMEnabled asks the language model for recommendations.
	LLMEnabled bool

	// LLMAPIKey is the API key for the language model.
	LLMAPIKey string

	// LLMBaseURL is the OpenAI-compatible endpoint.
	LLMBaseURL string

	// LLMModel is the chat model name.
	LLMModel string

	// LLMTimeout bounds one recommendation request.
	LLMTimeout time.Duration

	// RedisAddr enables the response cache when set.
	RedisAddr string

	// RedisPassword and RedisDB select the Redis database.
	RedisPassword string
	RedisDB       int

	// CacheTTL is the cache entry lifetime.
	CacheTTL time.Duration

	// ElasticsearchURL enables exporting page results when set.
	ElasticsearchURL string

	// ElasticsearchIndex is the target index name.
	ElasticsearchIndex string

	// MetricsFile is a Prometheus textfile written at the end of the run.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:            DefaultTimeout,
		MaxDepth:           DefaultMaxDepth,
		MaxPages:           DefaultMaxPages,
		MaxURLs:            DefaultMaxURLs,
		Workers:            DefaultWorkers,
		Concurrency:        DefaultConcurrency,
		CrawlDelay:         DefaultCrawlDelay,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		SitemapDepth:       DefaultSitemapDepth,
		Format:             DefaultFormat,
		LogFormat:          DefaultLogFormat,
		Weights:            model.DefaultScoreWeights(),
		LLMBaseURL:         DefaultLLMBaseURL,
		LLMModel:           DefaultLLMModel,
		LLMTimeout:         DefaultLLMTimeout,
		CacheTTL:           DefaultCacheTTL,
		ElasticsearchIndex: DefaultElasticsearchIndex,
	}
}

// XDGDataDir returns the XDG data directory for SEOScan.
// On Linux: ~/.local/share/seoscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for SEOScan.
// On Linux: ~/.config/seoscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for SEOScan.
// On Linux: ~/.cache/seoscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// Every returned error wraps ErrConfig. Validate runs before any network
// request is made.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if err := ValidateURL(target); err != nil {
			return err
		}
	}
	for _, competitor := range c.Competitors {
		if err := ValidateURL(competitor); err != nil {
			return err
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxURLs <= 0 {
		return ErrInvalidMaxURLs
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SitemapDepth < 0 {
		return ErrInvalidSitemapDepth
	}
	if !slices.Contains(validFormats, c.Format) {
		return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidFormat, c.Format, validFormats)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.LLMEnabled && c.LLMAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Weights.Total() <= 0 {
		return ErrInvalidWeights
	}
	return nil
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return nil
}

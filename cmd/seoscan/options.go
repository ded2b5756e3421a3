package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/database"
	seolog "github.com/nao1215/seoscan/internal/log"
)

// runOptions are command line settings that only shape a single run and
// have no place in the configuration file.
type runOptions struct {
	listFile       string
	ignorePatterns []string
	followPatterns []string
	subdomains     bool
	deadline       time.Duration
	noColor        bool
	noRecommend    bool
	progress       bool
}

// addFetchFlags registers flags for commands that fetch pages.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent with every request and used for robots.txt matching")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between two requests to the same host (0 disables)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent requests")
	cmd.Flags().String("redis", "",
		"Redis address used to cache responses (host:port)")
}

// addCrawlFlags registers flags for commands that crawl a site.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the seed URL (0 = seed only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per site")
	cmd.Flags().Bool("ignore-robots", false,
		"Ignore robots.txt rules")
	cmd.Flags().Bool("subdomains", false,
		"Also follow links to other subdomains of the site")
	cmd.Flags().StringSlice("ignore-pattern", nil,
		"URL path glob to skip (repeatable)")
	cmd.Flags().StringSlice("follow-pattern", nil,
		"Only crawl URL paths matching this glob (repeatable)")
	cmd.Flags().Int("sitemap-depth", config.DefaultSitemapDepth,
		"Maximum sitemap index recursion depth")
	cmd.Flags().Int("max-urls", config.DefaultMaxURLs,
		"Maximum number of sitemap URLs to analyze")
	cmd.Flags().Bool("progress", false,
		"Print a line for every finished page to stderr")
}

// addOutputFlags registers report output flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		fmt.Sprintf("Report format: %s", strings.Join(config.ValidFormats(), ", ")))
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored text output")
}

// addAuditFlags registers flags for commands that produce a full audit.
func addAuditFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("competitor", nil,
		"Competitor page compared with the seed page (repeatable)")
	cmd.Flags().Bool("llm", false,
		"Ask an OpenAI-compatible model for recommendations (needs OPENAI_API_KEY)")
	cmd.Flags().Bool("no-recommendations", false,
		"Skip recommendations")
	cmd.Flags().Bool("no-save", false,
		"Do not store the report in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in textfile format to this path")
	cmd.Flags().String("elasticsearch", "",
		"Elasticsearch URL to export page results to")
	cmd.Flags().Duration("deadline", 0,
		"Stop the audit after this duration and report partial results (0 = none)")
}

// flagSetter copies the values of flags the user actually set onto
// configuration fields, so file and environment values survive unset flags.
// The first error is kept and later calls become no-ops.
type flagSetter struct {
	cmd *cobra.Command
	err error
}

func (s *flagSetter) changed(name string) bool {
	if s.err != nil {
		return false
	}
	f := s.cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func (s *flagSetter) String(name string, dst *string) {
	if s.changed(name) {
		*dst, s.err = s.cmd.Flags().GetString(name)
	}
}

func (s *flagSetter) Int(name string, dst *int) {
	if s.changed(name) {
		*dst, s.err = s.cmd.Flags().GetInt(name)
	}
}

func (s *flagSetter) Bool(name string, dst *bool) {
	if s.changed(name) {
		*dst, s.err = s.cmd.Flags().GetBool(name)
	}
}

func (s *flagSetter) Duration(name string, dst *time.Duration) {
	if s.changed(name) {
		*dst, s.err = s.cmd.Flags().GetDuration(name)
	}
}

func (s *flagSetter) Strings(name string, dst *[]string) {
	if s.changed(name) {
		*dst, s.err = s.cmd.Flags().GetStringSlice(name)
	}
}

// flagValue returns the string value of a local or inherited flag, or ""
// when the command does not define it.
func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return flagValue(cmd, "verbose") == "true"
}

// buildConfig creates a Config from defaults, the configuration file, the
// environment and the command line flags, in that order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, runOptions, error) {
	cfg := config.NewConfig()
	cfg.DBDir = config.XDGDataDir()
	cfg.SaveToDB = true

	cfg.ConfigFilePath = flagValue(cmd, "config")
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, runOptions{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, runOptions{}, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.ApplyFile(&config.File{Sites: make(map[string]config.SiteConfig)})
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, runOptions{}, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	if v := flagValue(cmd, "log-format"); v != "" {
		cfg.LogFormat = v
	}

	s := &flagSetter{cmd: cmd}
	s.Duration("timeout", &cfg.Timeout)
	s.String("user-agent", &cfg.UserAgent)
	s.Duration("delay", &cfg.CrawlDelay)
	s.String("proxy", &cfg.ProxyAddress)
	s.Int("workers", &cfg.Workers)
	s.String("redis", &cfg.RedisAddr)
	s.Int("depth", &cfg.MaxDepth)
	s.Int("max-pages", &cfg.MaxPages)
	s.Int("max-urls", &cfg.MaxURLs)
	s.Int("sitemap-depth", &cfg.SitemapDepth)
	s.Bool("sitemap", &cfg.UseSitemap)
	s.Bool("ignore-robots", &cfg.IgnoreRobots)
	s.Int("concurrency", &cfg.Concurrency)
	s.String("format", &cfg.Format)
	s.String("output", &cfg.ReportFile)
	s.Strings("competitor", &cfg.Competitors)
	s.Bool("llm", &cfg.LLMEnabled)
	s.String("db-dir", &cfg.DBDir)
	s.String("metrics-file", &cfg.MetricsFile)
	s.String("elasticsearch", &cfg.ElasticsearchURL)

	var noSave bool
	s.Bool("no-save", &noSave)
	if noSave {
		cfg.SaveToDB = false
	}

	var opts runOptions
	s.String("list", &opts.listFile)
	s.Strings("ignore-pattern", &opts.ignorePatterns)
	s.Strings("follow-pattern", &opts.followPatterns)
	s.Bool("subdomains", &opts.subdomains)
	s.Duration("deadline", &opts.deadline)
	s.Bool("no-color", &opts.noColor)
	s.Bool("no-recommendations", &opts.noRecommend)
	s.Bool("progress", &opts.progress)
	if s.err != nil {
		return nil, runOptions{}, s.err
	}

	cfg.Targets = append([]string{}, args...)
	if opts.listFile != "" {
		urls, err := readURLList(opts.listFile)
		if err != nil {
			return nil, runOptions{}, err
		}
		cfg.Targets = append(cfg.Targets, urls...)
	}

	return cfg, opts, nil
}

// readURLList reads one URL per line, skipping blank lines and # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}

// siteConfig returns the configuration file settings for the host of target.
func siteConfig(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(database.HostOf(target))
}

// setupLogger creates the run logger and installs it as the default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := seolog.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// runContext derives the context of a run: cancelled on interrupt and,
// when deadline is positive, after deadline.
func runContext(parent context.Context, deadline time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signalContext(parent)
	if deadline <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	return ctx, func() {
		cancel()
		stop()
	}
}

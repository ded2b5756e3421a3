package config

import "github.com/nao1215/seoscan/internal/model"

// SiteConfig holds per-site crawl settings. Sites are keyed by host name
// in the configuration file, for example "www.example.com".
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global max depth. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page cap. Zero keeps the global value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict crawling to matching URL paths when set.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Competitors are compared against this site's seed page.
	Competitors []string `yaml:"competitors,omitempty"`
}

// File represents the structure of the .seoscan.yaml configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Scoring overrides the page score weights.
	Scoring *model.ScoreWeights `yaml:"scoring,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if len(siteConfig.Competitors) > 0 {
		result.Competitors = siteConfig.Competitors
	}
	return result
}

package model

import (
	"fmt"
	"strings"
)

// Severity represents how much an issue hurts a page's search visibility.
// Higher values are more severe, so severities can be compared and sorted.
type Severity int

const (
	// SeverityInfo marks a suggestion that rarely affects ranking on its own.
	// Examples: missing canonical link, no Open Graph tags.
	SeverityInfo Severity = iota

	// SeverityWarning marks a problem worth fixing.
	// Examples: title too long, images without alt text, thin content.
	SeverityWarning

	// SeverityCritical marks a problem that search engines penalise directly
	// or that keeps the page from being indexed.
	// Examples: missing title, missing H1, fetch failures.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the severity as its lowercase name so JSON reports
// read "critical" rather than 2.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText decodes a severity name. Matching is case-insensitive.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

// IssueCode identifies one rule of the page checklist.
type IssueCode string

// Checklist rule identifiers.
const (
	IssueMissingTitle           IssueCode = "missing_title"
	IssueTitleLength            IssueCode = "title_length"
	IssueMissingMetaDescription IssueCode = "missing_meta_description"
	IssueMetaDescriptionLength  IssueCode = "meta_description_length"
	IssueMissingH1              IssueCode = "missing_h1"
	IssueMultipleH1             IssueCode = "multiple_h1"
	IssueImagesMissingAlt       IssueCode = "images_missing_alt"
	IssueLowWordCount           IssueCode = "low_word_count"
	IssueMissingCanonical       IssueCode = "missing_canonical"
	IssueNotHTTPS               IssueCode = "not_https"
	IssueMissingViewport        IssueCode = "missing_viewport"
	IssueMissingLang            IssueCode = "missing_lang"
	IssueNoStructuredData       IssueCode = "no_structured_data"
	IssueMissingOpenGraph       IssueCode = "missing_open_graph"
	IssuePoorReadability        IssueCode = "poor_readability"
	IssueKeywordStuffing        IssueCode = "keyword_stuffing"
	IssueNoIndex                IssueCode = "noindex"
	IssueSpamTerms              IssueCode = "spam_terms"
	IssueSlowResponse           IssueCode = "slow_response"
	IssueLargePage              IssueCode = "large_page"
	IssueNoCompression          IssueCode = "no_compression"
	IssueHTTPError              IssueCode = "http_error"
	IssueNetworkError           IssueCode = "network_error"
	IssueParseError             IssueCode = "parse_error"
)

// IssueInfo contains metadata about a checklist rule.
type IssueInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// issueInfoMapping is the single source of severities and remediation text
// for every checklist rule.
var issueInfoMapping = map[IssueCode]IssueInfo{
	// CRITICAL
	IssueMissingTitle: {
		Severity:       SeverityCritical,
		Impact:         "Search engines show the URL instead of a title, and the page loses its strongest relevance signal.",
		Recommendation: "Add a unique <title> of 30-60 characters that leads with the primary keyword.",
	},
	IssueMissingMetaDescription: {
		Severity:       SeverityCritical,
		Impact:         "Search engines generate a snippet from page text, which usually lowers click-through rate.",
		Recommendation: "Write a meta description of 120-160 characters summarising the page.",
	},
	IssueMissingH1: {
		Severity:       SeverityCritical,
		Impact:         "The page has no top-level heading describing its topic.",
		Recommendation: "Add exactly one <h1> that states the page topic.",
	},
	IssueNotHTTPS: {
		Severity:       SeverityCritical,
		Impact:         "Browsers flag plain HTTP pages as not secure, and HTTPS is a ranking signal.",
		Recommendation: "Serve the page over HTTPS and redirect HTTP requests permanently.",
	},
	IssueHTTPError: {
		Severity:       SeverityCritical,
		Impact:         "The server answered with an error status, so the page cannot be indexed.",
		Recommendation: "Fix the failing route or redirect it to a working page.",
	},
	IssueNetworkError: {
		Severity:       SeverityCritical,
		Impact:         "The page could not be reached at all.",
		Recommendation: "Check DNS, TLS and server availability for this URL.",
	},
	IssueParseError: {
		Severity:       SeverityCritical,
		Impact:         "The response is not a parsable HTML document.",
		Recommendation: "Make sure the URL serves text/html with a valid document.",
	},

	// WARNING
	IssueTitleLength: {
		Severity:       SeverityWarning,
		Impact:         "Titles outside 30-60 characters are either weak or truncated in results.",
		Recommendation: "Rewrite the title to 30-60 characters.",
	},
	IssueMetaDescriptionLength: {
		Severity:       SeverityWarning,
		Impact:         "Descriptions outside 120-160 characters are either too thin or truncated.",
		Recommendation: "Rewrite the meta description to 120-160 characters.",
	},
	IssueMultipleH1: {
		Severity:       SeverityWarning,
		Impact:         "Several H1 headings dilute the page's main topic.",
		Recommendation: "Keep one <h1> and demote the rest to <h2>.",
	},
	IssueImagesMissingAlt: {
		Severity:       SeverityWarning,
		Impact:         "Images without alt text are invisible to image search and screen readers.",
		Recommendation: "Add descriptive alt attributes to every meaningful image.",
	},
	IssueLowWordCount: {
		Severity:       SeverityWarning,
		Impact:         "Thin content rarely ranks for competitive queries.",
		Recommendation: "Expand the page to at least 300 words of useful content.",
	},
	IssueMissingViewport: {
		Severity:       SeverityWarning,
		Impact:         "Without a viewport meta tag the page renders poorly on mobile, hurting mobile-first indexing.",
		Recommendation: `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
	},
	IssueKeywordStuffing: {
		Severity:       SeverityWarning,
		Impact:         "A single term above 3% density looks like keyword stuffing.",
		Recommendation: "Use synonyms and natural phrasing to bring the density down.",
	},
	IssueNoIndex: {
		Severity:       SeverityWarning,
		Impact:         "The robots meta tag tells search engines not to index this page.",
		Recommendation: "Remove noindex if the page should appear in search results.",
	},
	IssueSpamTerms: {
		Severity:       SeverityWarning,
		Impact:         "The page uses several phrases common in spam, which can trigger quality filters.",
		Recommendation: "Rewrite promotional copy in neutral language.",
	},
	IssueSlowResponse: {
		Severity:       SeverityWarning,
		Impact:         "Responses slower than 3 seconds hurt both ranking and user retention.",
		Recommendation: "Profile the server, enable caching and consider a CDN.",
	},
	IssueLargePage: {
		Severity:       SeverityWarning,
		Impact:         "HTML larger than 3 MB slows rendering and crawling.",
		Recommendation: "Move inline assets out of the document and paginate long content.",
	},

	// INFO
	IssueMissingCanonical: {
		Severity:       SeverityInfo,
		Impact:         "Without a canonical link, duplicate URLs may split ranking signals.",
		Recommendation: `Add <link rel="canonical"> pointing to the preferred URL.`,
	},
	IssueMissingLang: {
		Severity:       SeverityInfo,
		Impact:         "Search engines must guess the document language.",
		Recommendation: `Declare the language with <html lang="...">.`,
	},
	IssueNoStructuredData: {
		Severity:       SeverityInfo,
		Impact:         "The page is not eligible for rich results.",
		Recommendation: "Add Schema.org markup as JSON-LD.",
	},
	IssueMissingOpenGraph: {
		Severity:       SeverityInfo,
		Impact:         "Shared links render without a preview card.",
		Recommendation: "Add og:title, og:description and og:image meta tags.",
	},
	IssuePoorReadability: {
		Severity:       SeverityInfo,
		Impact:         "The text is hard to read for a general audience.",
		Recommendation: "Shorten sentences and prefer simpler words.",
	},
	IssueNoCompression: {
		Severity:       SeverityInfo,
		Impact:         "The response is transferred without compression.",
		Recommendation: "Enable gzip or brotli on the server.",
	},
}

// GetSeverity returns the severity level for an issue code.
// Returns SeverityInfo if the code is not in the mapping.
func GetSeverity(code IssueCode) Severity {
	if info, ok := issueInfoMapping[code]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetIssueInfo returns the full metadata for an issue code.
func GetIssueInfo(code IssueCode) IssueInfo {
	if info, ok := issueInfoMapping[code]; ok {
		return info
	}
	return IssueInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown issue. Review manually.",
		Recommendation: "Investigate the page and assess the impact.",
	}
}

// NewIssue builds an Issue for code using the catalogued severity and
// recommendation.
func NewIssue(code IssueCode, message string) Issue {
	info := GetIssueInfo(code)
	return Issue{
		Code:           code,
		Severity:       info.Severity,
		Message:        message,
		Recommendation: info.Recommendation,
	}
}

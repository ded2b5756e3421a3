package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PageResult holds every signal extracted from one fetched page.
// A PageResult is produced once by the analyzer and treated as read-only
// afterwards. Signals that were not found are zero values, never missing keys.
type PageResult struct {
	// URL is the normalized URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects, when it differs from URL.
	FinalURL string `json:"final_url,omitempty"`

	// Depth is the BFS depth at which the crawler discovered the URL.
	// Pages analyzed outside a crawl have depth 0.
	Depth int `json:"depth"`

	// StatusCode is the HTTP response status, or 0 when no response arrived.
	StatusCode int `json:"status_code"`

	// FetchTimeMS is the wall-clock fetch duration in milliseconds.
	FetchTimeMS int64 `json:"fetch_time_ms"`

	// HTMLSize is the size of the response body in bytes.
	HTMLSize int `json:"html_size"`

	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Server       string `json:"server,omitempty"`
	CacheControl string `json:"cache_control,omitempty"`
	Compression  string `json:"compression,omitempty"`

	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
	MetaKeywords    string `json:"meta_keywords,omitempty"`
	Canonical       string `json:"canonical,omitempty"`
	RobotsMeta      string `json:"robots_meta,omitempty"`
	Lang            string `json:"lang,omitempty"`
	Viewport        string `json:"viewport,omitempty"`
	Charset         string `json:"charset,omitempty"`

	// OpenGraph maps og:* property names to their content.
	OpenGraph map[string]string `json:"open_graph,omitempty"`

	// TwitterCard maps twitter:* names to their content.
	TwitterCard map[string]string `json:"twitter_card,omitempty"`

	// Headings maps "h1".."h6" to heading texts in document order.
	Headings map[string][]string `json:"headings"`

	// InternalLinks and ExternalLinks are absolute, fragment-free URLs
	// in document order, without duplicates.
	InternalLinks []string `json:"internal_links"`
	ExternalLinks []string `json:"external_links"`

	Images         ImageStats     `json:"images"`
	StructuredData StructuredData `json:"structured_data"`
	Content        ContentMetrics `json:"content"`

	Keywords     []Keyword `json:"keywords,omitempty"`
	Phrases      []Keyword `json:"phrases,omitempty"`
	Language     *Language `json:"language,omitempty"`
	Technologies []string  `json:"technologies,omitempty"`
	SpamTerms    []string  `json:"spam_terms,omitempty"`

	// Score is the weighted checklist score in the range 0..100.
	Score int `json:"score"`

	// Issues are the checklist findings in rule order.
	Issues []Issue `json:"issues"`

	// Error is set when the page could not be fetched or parsed.
	Error *PageError `json:"error,omitempty"`

	// ContentHash is the SHA-256 of the body, used to spot duplicate pages.
	ContentHash string `json:"content_hash,omitempty"`
}

// ImageStats summarises <img> alt-text coverage.
type ImageStats struct {
	Total      int `json:"total"`
	WithAlt    int `json:"with_alt"`
	WithoutAlt int `json:"without_alt"`

	// AltCoverage is WithAlt/Total in percent; 100 when there are no images.
	AltCoverage float64 `json:"alt_coverage"`
}

// StructuredData records which machine-readable markup formats are present.
type StructuredData struct {
	JSONLD      bool `json:"json_ld"`
	Microdata   bool `json:"microdata"`
	RDFa        bool `json:"rdfa"`
	OpenGraph   bool `json:"open_graph"`
	TwitterCard bool `json:"twitter_card"`

	// Types are the Schema.org types found in JSON-LD and microdata.
	Types []string `json:"types,omitempty"`
}

// HasSchema reports whether any Schema.org style markup is present.
func (s StructuredData) HasSchema() bool {
	return s.JSONLD || s.Microdata || s.RDFa
}

// ContentMetrics are the text statistics of the visible page content.
type ContentMetrics struct {
	WordCount          int       `json:"word_count"`
	SentenceCount      int       `json:"sentence_count"`
	SyllableCount      int       `json:"syllable_count"`
	ParagraphCount     int       `json:"paragraph_count"`
	FleschReadingEase  float64   `json:"flesch_reading_ease"`
	FleschKincaidGrade float64   `json:"flesch_kincaid_grade"`
	Sentiment          Sentiment `json:"sentiment"`
}

// Sentiment is a lexicon-based polarity score.
type Sentiment struct {
	// Compound is the normalized score in -1..1.
	Compound float64 `json:"compound"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`

	// Label is "positive", "negative" or "neutral".
	Label string `json:"label"`
}

// Keyword is a term or phrase with its frequency on the page.
type Keyword struct {
	Term    string  `json:"term"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// Language is the detected content language.
type Language struct {
	// Code is the ISO 639-1 code, e.g. "en".
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Issue is a single checklist finding on a page.
type Issue struct {
	Code           IssueCode `json:"code"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// PageErrorKind classifies why a page has no signals.
type PageErrorKind string

// Page error kinds.
const (
	PageErrorNetwork PageErrorKind = "network"
	PageErrorHTTP    PageErrorKind = "http"
	PageErrorParse   PageErrorKind = "parse"
)

// PageError is the serializable form of a per-page failure.
type PageError struct {
	Kind       PageErrorKind `json:"kind"`
	Message    string        `json:"message"`
	StatusCode int           `json:"status_code,omitempty"`
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Failed reports whether the page could not be fetched or parsed.
func (p *PageResult) Failed() bool {
	return p.Error != nil
}

// IsHTTPS reports whether the page was served over https, judged by the
// final URL after redirects when known.
func (p *PageResult) IsHTTPS() bool {
	u := p.URL
	if p.FinalURL != "" {
		u = p.FinalURL
	}
	return strings.HasPrefix(strings.ToLower(u), "https://")
}

// H1Count returns the number of H1 headings.
func (p *PageResult) H1Count() int {
	return len(p.Headings["h1"])
}

// HasIssue reports whether the page carries an issue with the given code.
func (p *PageResult) HasIssue(code IssueCode) bool {
	for _, issue := range p.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// ComputeHash sets ContentHash to the SHA-256 of body.
func (p *PageResult) ComputeHash(body []byte) {
	if len(body) == 0 {
		p.ContentHash = ""
		return
	}
	hash := sha256.Sum256(body)
	p.ContentHash = hex.EncodeToString(hash[:])
}

// KeywordSet returns the page's keyword terms as a set.
func (p *PageResult) KeywordSet() map[string]int {
	set := make(map[string]int, len(p.Keywords))
	for _, kw := range p.Keywords {
		set[kw.Term] = kw.Count
	}
	return set
}

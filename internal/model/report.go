package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Source describes where the audited URL list came from.
type Source string

// Audit sources.
const (
	SourceCrawl   Source = "crawl"
	SourceSitemap Source = "sitemap"
	SourceList    Source = "list"
)

// HistogramBucketWidth is the width of each score histogram bucket.
const HistogramBucketWidth = 20

// HistogramBuckets is the number of score histogram buckets.
// The last bucket is closed so that a score of 100 lands in [80,100].
const HistogramBuckets = 100 / HistogramBucketWidth

// SiteReport is the site-wide reduction of a set of PageResults.
// It is built once after a crawl finishes and read-only afterwards.
type SiteReport struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Source      Source    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalPages  int     `json:"total_pages"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`

	// ScoreHistogram counts successful pages per 20-point score bucket.
	ScoreHistogram []HistogramBucket `json:"score_histogram"`

	// TopIssues ranks issue codes by the number of pages they occur on.
	TopIssues []IssueCount `json:"top_issues"`

	Averages Averages     `json:"averages"`
	Counters SiteCounters `json:"counters"`

	// Pages is the per-page table sorted by URL.
	Pages []PageResult `json:"pages"`

	// Recommendations is free text from the recommender, if any.
	Recommendations string `json:"recommendations,omitempty"`

	// RecommendationsSource is "llm", "rules" or empty.
	RecommendationsSource string `json:"recommendations_source,omitempty"`

	// RecommendationsError records why the language model was not used.
	RecommendationsError string `json:"recommendations_error,omitempty"`
}

// HistogramBucket is one score range [Min, Max] and the number of pages in it.
type HistogramBucket struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Count int `json:"count"`
}

// Label returns the bucket range as "min-max".
func (b HistogramBucket) Label() string {
	return strconv.Itoa(b.Min) + "-" + strconv.Itoa(b.Max)
}

// IssueCount is an issue code with the number of pages that carry it.
type IssueCount struct {
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Count    int       `json:"count"`

	// Example is the message from the first page (by URL) with this issue.
	Example string `json:"example"`
}

// Averages are means over successfully analyzed pages.
type Averages struct {
	WordCount      float64 `json:"word_count"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	PageSize       float64 `json:"page_size"`
	Score          float64 `json:"score"`
	Readability    float64 `json:"readability"`
}

// SiteCounters are page counts for common site-wide problems.
type SiteCounters struct {
	MissingTitle           int `json:"missing_title"`
	MissingMetaDescription int `json:"missing_meta_description"`
	MissingH1              int `json:"missing_h1"`
	MultipleH1             int `json:"multiple_h1"`
	WithoutHTTPS           int `json:"without_https"`
	HighScore              int `json:"high_score"`
	MediumScore            int `json:"medium_score"`
	LowScore               int `json:"low_score"`
	LowContent             int `json:"low_content"`
	NoImages               int `json:"no_images"`
	ImagesWithoutAlt       int `json:"images_without_alt"`
}

// NewSiteReport creates an empty report with an initialized histogram.
// The report has no ID until Stamp is called.
func NewSiteReport(target string, source Source) *SiteReport {
	histogram := make([]HistogramBucket, HistogramBuckets)
	for i := range histogram {
		histogram[i] = HistogramBucket{
			Min: i * HistogramBucketWidth,
			Max: (i+1)*HistogramBucketWidth - 1,
		}
	}
	histogram[len(histogram)-1].Max = 100

	return &SiteReport{
		Target:         target,
		Source:         source,
		ScoreHistogram: histogram,
		TopIssues:      []IssueCount{},
		Pages:          []PageResult{},
	}
}

// Stamp assigns a fresh ID and generation time to the report.
func (r *SiteReport) Stamp() {
	r.ID = uuid.NewString()
	r.GeneratedAt = time.Now().UTC()
}

// FailedPages returns the pages that carry a fetch or parse error.
func (r *SiteReport) FailedPages() []PageResult {
	var failed []PageResult
	for _, p := range r.Pages {
		if p.Failed() {
			failed = append(failed, p)
		}
	}
	return failed
}

// CountBySeverity counts issue occurrences across all pages per severity.
func (r *SiteReport) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, p := range r.Pages {
		for _, issue := range p.Issues {
			counts[issue.Severity]++
		}
	}
	return counts
}

package model

import "time"

// Audit is the state shared by the pipeline steps while one site is audited.
// Each step reads what earlier steps produced and adds its own output.
type Audit struct {
	// Target is the seed URL of the site.
	Target string `json:"target"`

	// Source records how the page list was obtained.
	Source Source `json:"source"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// SitemapURLs are the URLs discovered from sitemaps, if any.
	SitemapURLs []string `json:"sitemap_urls,omitempty"`

	// Pages are the raw per-page results in completion order.
	Pages []PageResult `json:"-"`

	// Report is the aggregated site report.
	Report *SiteReport `json:"report,omitempty"`

	// Comparison is set when competitors were configured for the site.
	Comparison *CompetitorComparison `json:"comparison,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// TimedOut is set when the context was cancelled mid-pipeline.
	TimedOut bool `json:"timed_out"`

	// Error holds the first fatal step error.
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// NewAudit creates an Audit for target.
func NewAudit(target string) *Audit {
	return &Audit{
		Target:         target,
		Source:         SourceCrawl,
		StartedAt:      time.Now().UTC(),
		PerformedSteps: []string{},
	}
}

// Duration returns how long the audit took, or the time elapsed so far.
func (a *Audit) Duration() time.Duration {
	if a.CompletedAt.IsZero() {
		return time.Since(a.StartedAt)
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

// Package aggregate reduces per-page results into a site report.
//
// The reduction is pure: Aggregate copies and sorts its input by URL
// first, so the same set of pages always produces the same report no
// matter in which order the crawler finished them.
package aggregate

import (
	"cmp"
	"math"
	"slices"

	"github.com/nao1215/seoscan/internal/model"
)

// Score bands used by the site counters.
const (
	HighScoreThreshold   = 80
	MediumScoreThreshold = 50
)

// Aggregate builds the site report for results. Target and Source are left
// empty and the report is not stamped; callers fill those in.
func Aggregate(results []model.PageResult) *model.SiteReport {
	report := model.NewSiteReport("", "")

	pages := slices.Clone(results)
	slices.SortStableFunc(pages, func(a, b model.PageResult) int {
		return cmp.Compare(a.URL, b.URL)
	})
	if pages == nil {
		pages = []model.PageResult{}
	}
	report.Pages = pages
	report.TotalPages = len(pages)

	var sumWords, sumTime, sumSize, sumScore, sumEase float64
	issues := make(map[model.IssueCode]*model.IssueCount)

	for i := range pages {
		p := &pages[i]
		countIssues(issues, p)

		if p.Failed() {
			report.Failed++
			continue
		}
		report.Successful++

		sumWords += float64(p.Content.WordCount)
		sumTime += float64(p.FetchTimeMS)
		sumSize += float64(p.HTMLSize)
		sumScore += float64(p.Score)
		sumEase += p.Content.FleschReadingEase

		report.ScoreHistogram[bucket(p.Score)].Count++
		countPage(&report.Counters, p)
	}

	if report.TotalPages > 0 {
		report.SuccessRate = round2(float64(report.Successful) / float64(report.TotalPages) * 100)
	}
	if n := float64(report.Successful); n > 0 {
		report.Averages = model.Averages{
			WordCount:      round2(sumWords / n),
			ResponseTimeMS: round2(sumTime / n),
			PageSize:       round2(sumSize / n),
			Score:          round2(sumScore / n),
			Readability:    round2(sumEase / n),
		}
	}

	report.TopIssues = rankIssues(issues)
	return report
}

// countIssues counts each issue code once per page. Pages are visited in
// URL order, so Example comes from the first page by URL.
func countIssues(issues map[model.IssueCode]*model.IssueCount, p *model.PageResult) {
	seen := make(map[model.IssueCode]struct{}, len(p.Issues))
	for _, issue := range p.Issues {
		if _, dup := seen[issue.Code]; dup {
			continue
		}
		seen[issue.Code] = struct{}{}

		entry, ok := issues[issue.Code]
		if !ok {
			entry = &model.IssueCount{
				Code:     issue.Code,
				Severity: issue.Severity,
				Example:  issue.Message,
			}
			issues[issue.Code] = entry
		}
		entry.Count++
		if issue.Severity > entry.Severity {
			entry.Severity = issue.Severity
		}
	}
}

func countPage(c *model.SiteCounters, p *model.PageResult) {
	if p.Title == "" {
		c.MissingTitle++
	}
	if p.MetaDescription == "" {
		c.MissingMetaDescription++
	}
	switch h1 := p.H1Count(); {
	case h1 == 0:
		c.MissingH1++
	case h1 > 1:
		c.MultipleH1++
	}
	if !p.IsHTTPS() {
		c.WithoutHTTPS++
	}
	switch {
	case p.Score >= HighScoreThreshold:
		c.HighScore++
	case p.Score >= MediumScoreThreshold:
		c.MediumScore++
	default:
		c.LowScore++
	}
	if p.HasIssue(model.IssueLowWordCount) {
		c.LowContent++
	}
	if p.Images.Total == 0 {
		c.NoImages++
	}
	if p.Images.WithoutAlt > 0 {
		c.ImagesWithoutAlt++
	}
}

// rankIssues orders issue counts by count, then severity, then code.
func rankIssues(issues map[model.IssueCode]*model.IssueCount) []model.IssueCount {
	ranked := make([]model.IssueCount, 0, len(issues))
	for _, entry := range issues {
		ranked = append(ranked, *entry)
	}
	slices.SortFunc(ranked, func(a, b model.IssueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return ranked
}

// bucket returns the histogram index for score; 100 falls into the last bucket.
func bucket(score int) int {
	idx := score / model.HistogramBucketWidth
	return max(0, min(idx, model.HistogramBuckets-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/seoscan/internal/model"
)

// RuleBased derives recommendations from the summary without any network
// call. Its output depends only on the summary.
type RuleBased struct{}

// Recommend implements Recommender. It never fails.
func (RuleBased) Recommend(_ context.Context, s Summary) (string, error) {
	var sb strings.Builder
	sb.WriteString("# SEO Recommendations\n")

	bySeverity := map[model.Severity][]model.IssueCount{}
	for _, ic := range s.TopIssues {
		bySeverity[ic.Severity] = append(bySeverity[ic.Severity], ic)
	}

	sections := []struct {
		severity model.Severity
		title    string
	}{
		{model.SeverityCritical, "Critical fixes (high priority)"},
		{model.SeverityWarning, "SEO optimization"},
		{model.SeverityInfo, "Improvements"},
	}
	for _, section := range sections {
		issues := bySeverity[section.severity]
		if len(issues) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n", section.title)
		for _, ic := range issues {
			info := model.GetIssueInfo(ic.Code)
			fmt.Fprintf(&sb, "- %s (%s)\n", info.Recommendation, pages(ic.Count))
		}
	}

	if advice := siteAdvice(s); len(advice) > 0 {
		sb.WriteString("\n## Site-wide\n")
		for _, line := range advice {
			sb.WriteString("- " + line + "\n")
		}
	}

	if len(s.ContentGaps) > 0 || len(s.TechGaps) > 0 {
		sb.WriteString("\n## Competitive gaps\n")
		for _, gap := range s.TechGaps {
			sb.WriteString("- " + gap + "\n")
		}
		if len(s.ContentGaps) > 0 {
			gaps := s.ContentGaps
			if len(gaps) > 10 {
				gaps = gaps[:10]
			}
			fmt.Fprintf(&sb, "- Cover topics competitors rank for: %s\n", strings.Join(gaps, ", "))
		}
	}

	sb.WriteString("\n## Monitoring & maintenance\n")
	sb.WriteString("- Submit the XML sitemap to search consoles and re-run this audit after changes.\n")
	sb.WriteString("- Track Core Web Vitals and fix regressions early.\n")
	return sb.String(), nil
}

// siteAdvice turns site averages and counters into advice lines.
func siteAdvice(s Summary) []string {
	var lines []string
	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Fix the %s that could not be fetched or parsed.", pages(s.Failed)))
	}
	if s.Averages.ResponseTimeMS > 2000 {
		lines = append(lines, fmt.Sprintf("Average response time is %.0f ms; aim for under 2 seconds with caching and a CDN.", s.Averages.ResponseTimeMS))
	}
	if s.Successful > 0 && s.Averages.WordCount < 300 {
		lines = append(lines, fmt.Sprintf("Pages average %.0f words; deepen content on key pages.", s.Averages.WordCount))
	}
	if s.Counters.WithoutHTTPS > 0 {
		lines = append(lines, "Serve every page over HTTPS.")
	}
	if s.Counters.LowScore > 0 {
		lines = append(lines, fmt.Sprintf("Start with the %s scoring below 50.", pages(s.Counters.LowScore)))
	}
	return lines
}

func pages(n int) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}

package recommend

import (
	"context"

	"github.com/nao1215/seoscan/internal/model"
)

// Recommender produces improvement advice for an audit summary.
type Recommender interface {
	Recommend(ctx context.Context, s Summary) (string, error)
}

// maxSummaryIssues bounds how many issues are passed to a recommender.
const maxSummaryIssues = 10

// Summary is the condensed audit data a Recommender works from.
type Summary struct {
	Target      string
	TotalPages  int
	Successful  int
	Failed      int
	Averages    model.Averages
	Counters    model.SiteCounters
	TopIssues   []model.IssueCount
	Languages   []string
	Technology  []string
	ContentGaps []string
	TechGaps    []string
}

// NewSummary condenses report and, when non-nil, comparison.
func NewSummary(report *model.SiteReport, comparison *model.CompetitorComparison) Summary {
	s := Summary{
		Target:     report.Target,
		TotalPages: report.TotalPages,
		Successful: report.Successful,
		Failed:     report.Failed,
		Averages:   report.Averages,
		Counters:   report.Counters,
	}
	s.TopIssues = report.TopIssues
	if len(s.TopIssues) > maxSummaryIssues {
		s.TopIssues = s.TopIssues[:maxSummaryIssues]
	}

	langs := make(map[string]struct{})
	techs := make(map[string]struct{})
	for _, p := range report.Pages {
		if p.Language != nil {
			if _, ok := langs[p.Language.Name]; !ok {
				langs[p.Language.Name] = struct{}{}
				s.Languages = append(s.Languages, p.Language.Name)
			}
		}
		for _, tech := range p.Technologies {
			if _, ok := techs[tech]; !ok {
				techs[tech] = struct{}{}
				s.Technology = append(s.Technology, tech)
			}
		}
	}

	if comparison != nil {
		s.ContentGaps = comparison.ContentGaps
		s.TechGaps = comparison.TechnicalGaps
	}
	return s
}

// Package compare diffs a target page against competitor pages.
package compare

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nao1215/seoscan/internal/analyzer"
	"github.com/nao1215/seoscan/internal/model"
)

// MaxContentGaps bounds the number of content gap keywords reported.
const MaxContentGaps = 20

// metric extracts one comparable number from a page.
type metric struct {
	name  string
	value func(p *model.PageResult) float64

	// lowerIsBetter marks cost metrics such as response time.
	lowerIsBetter bool
}

var metrics = []metric{
	{name: "word_count", value: func(p *model.PageResult) float64 { return float64(p.Content.WordCount) }},
	{name: "images", value: func(p *model.PageResult) float64 { return float64(p.Images.Total) }},
	{name: "internal_links", value: func(p *model.PageResult) float64 { return float64(len(p.InternalLinks)) }},
	{name: "external_links", value: func(p *model.PageResult) float64 { return float64(len(p.ExternalLinks)) }},
	{name: "response_time", value: func(p *model.PageResult) float64 { return float64(p.FetchTimeMS) }, lowerIsBetter: true},
	{name: "page_size", value: func(p *model.PageResult) float64 { return float64(p.HTMLSize) }, lowerIsBetter: true},
}

// Compare diffs target against competitors. Failed competitors are kept in
// the result but excluded from every derived number.
func Compare(target model.PageResult, competitors []model.PageResult) (*model.CompetitorComparison, error) {
	if target.Failed() {
		return nil, &InsufficientDataError{Reason: fmt.Sprintf("target %s failed: %v", target.URL, target.Error)}
	}

	ok := make([]model.PageResult, 0, len(competitors))
	for _, c := range competitors {
		if !c.Failed() {
			ok = append(ok, c)
		}
	}
	if len(ok) == 0 {
		return nil, &InsufficientDataError{Reason: "no competitor page could be analyzed"}
	}

	result := &model.CompetitorComparison{
		Target:        target,
		Competitors:   slices.Clone(competitors),
		Deltas:        make([]model.CompetitorDelta, 0, len(ok)),
		TechnicalGaps: []string{},
		Strengths:     []string{},
		Weaknesses:    []string{},
	}

	targetSet := target.KeywordSet()
	competitorCounts := make(map[string]int)
	for _, c := range ok {
		for _, kw := range c.Keywords {
			competitorCounts[kw.Term] += kw.Count
		}
		result.Deltas = append(result.Deltas, model.CompetitorDelta{
			URL:                 c.URL,
			WordCountDelta:      target.Content.WordCount - c.Content.WordCount,
			ResponseTimeDeltaMS: target.FetchTimeMS - c.FetchTimeMS,
			ScoreDelta:          target.Score - c.Score,
		})
	}

	result.SharedKeywords, result.TargetOnlyKeywords, result.CompetitorOnlyKeywords = keywordSets(targetSet, competitorCounts)
	result.ContentGaps = contentGaps(result.CompetitorOnlyKeywords, competitorCounts, ok)
	result.Metrics = compareMetrics(&target, ok)
	result.TechnicalGaps = technicalGaps(&target, ok)

	for _, m := range result.Metrics {
		label := strings.ReplaceAll(m.Name, "_", " ")
		switch m.Performance {
		case model.PerformanceBetter:
			result.Strengths = append(result.Strengths, "Superior "+label)
		case model.PerformanceWorse:
			result.Weaknesses = append(result.Weaknesses, "Inferior "+label)
		}
	}
	return result, nil
}

// keywordSets splits the keyword vocabulary into shared, target-only and
// competitor-only terms, each sorted.
func keywordSets(target, competitors map[string]int) (shared, targetOnly, competitorOnly []string) {
	shared, targetOnly, competitorOnly = []string{}, []string{}, []string{}
	for term := range target {
		if _, ok := competitors[term]; ok {
			shared = append(shared, term)
		} else {
			targetOnly = append(targetOnly, term)
		}
	}
	for term := range competitors {
		if _, ok := target[term]; !ok {
			competitorOnly = append(competitorOnly, term)
		}
	}
	slices.Sort(shared)
	slices.Sort(targetOnly)
	slices.Sort(competitorOnly)
	return shared, targetOnly, competitorOnly
}

// contentGaps ranks competitor-only terms by total competitor frequency,
// then by their best TF-IDF weight, then alphabetically.
func contentGaps(terms []string, counts map[string]int, competitors []model.PageResult) []string {
	best := make(map[string]float64, len(terms))
	for _, weights := range analyzer.TFIDF(competitors) {
		for term, w := range weights {
			best[term] = math.Max(best[term], w)
		}
	}

	ranked := slices.Clone(terms)
	slices.SortFunc(ranked, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		if c := cmp.Compare(best[b], best[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(ranked) > MaxContentGaps {
		ranked = ranked[:MaxContentGaps]
	}
	return ranked
}

func compareMetrics(target *model.PageResult, competitors []model.PageResult) []model.MetricComparison {
	out := make([]model.MetricComparison, 0, len(metrics))
	for _, m := range metrics {
		mc := model.MetricComparison{
			Name:          m.name,
			Target:        m.value(target),
			CompetitorMin: math.Inf(1),
			CompetitorMax: math.Inf(-1),
		}
		sum := 0.0
		for i := range competitors {
			v := m.value(&competitors[i])
			sum += v
			mc.CompetitorMin = math.Min(mc.CompetitorMin, v)
			mc.CompetitorMax = math.Max(mc.CompetitorMax, v)
		}
		mc.CompetitorAvg = math.Round(sum/float64(len(competitors))*100) / 100

		switch {
		case mc.Target == mc.CompetitorAvg:
			mc.Performance = model.PerformanceEqual
		case (mc.Target > mc.CompetitorAvg) != m.lowerIsBetter:
			mc.Performance = model.PerformanceBetter
		default:
			mc.Performance = model.PerformanceWorse
		}
		out = append(out, mc)
	}
	return out
}

// technicalGaps lists technical features the target lacks while at least
// one competitor has them.
func technicalGaps(target *model.PageResult, competitors []model.PageResult) []string {
	checks := []struct {
		has func(p *model.PageResult) bool
		gap string
	}{
		{(*model.PageResult).IsHTTPS, "HTTPS not implemented while competitors use it"},
		{func(p *model.PageResult) bool { return p.StructuredData.HasSchema() }, "Missing structured data while competitors implement it"},
		{func(p *model.PageResult) bool { return p.Viewport != "" }, "Missing viewport meta tag while competitors are mobile-ready"},
		{func(p *model.PageResult) bool { return p.Canonical != "" }, "Missing canonical link while competitors declare one"},
	}

	gaps := []string{}
	for _, check := range checks {
		if check.has(target) {
			continue
		}
		for i := range competitors {
			if check.has(&competitors[i]) {
				gaps = append(gaps, check.gap)
				break
			}
		}
	}
	return gaps
}

package analyzer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/seoscan/internal/model"
)

// Checklist thresholds.
const (
	minTitleLength           = 30
	maxTitleLength           = 60
	minMetaDescriptionLength = 120
	maxMetaDescriptionLength = 160
	minWordCount             = 300
	minReadabilityWords      = 100
	poorReadabilityEase      = 30.0
	maxKeywordDensity        = 3.0
	slowResponseMS           = 3000
	largePageBytes           = 3 * 1024 * 1024
)

// evaluateContent runs the content checklist in its fixed order and returns
// at most one issue per rule.
func evaluateContent(p *model.PageResult, spamThreshold int) []model.Issue {
	issues := make([]model.Issue, 0)
	add := func(code model.IssueCode, format string, args ...any) {
		issues = append(issues, model.NewIssue(code, fmt.Sprintf(format, args...)))
	}

	titleLen := utf8.RuneCountInString(p.Title)
	switch {
	case titleLen == 0:
		add(model.IssueMissingTitle, "page has no <title>")
	case titleLen < minTitleLength || titleLen > maxTitleLength:
		add(model.IssueTitleLength, "title is %d characters (recommended %d-%d)", titleLen, minTitleLength, maxTitleLength)
	}

	metaLen := utf8.RuneCountInString(p.MetaDescription)
	switch {
	case metaLen == 0:
		add(model.IssueMissingMetaDescription, "page has no meta description")
	case metaLen < minMetaDescriptionLength || metaLen > maxMetaDescriptionLength:
		add(model.IssueMetaDescriptionLength, "meta description is %d characters (recommended %d-%d)",
			metaLen, minMetaDescriptionLength, maxMetaDescriptionLength)
	}

	switch h1 := p.H1Count(); {
	case h1 == 0:
		add(model.IssueMissingH1, "page has no H1 heading")
	case h1 > 1:
		add(model.IssueMultipleH1, "page has %d H1 headings", h1)
	}

	if p.Images.WithoutAlt > 0 {
		add(model.IssueImagesMissingAlt, "%d of %d images have no alt text", p.Images.WithoutAlt, p.Images.Total)
	}
	if p.Content.WordCount < minWordCount {
		add(model.IssueLowWordCount, "page has %d words (recommended at least %d)", p.Content.WordCount, minWordCount)
	}
	if p.Canonical == "" {
		add(model.IssueMissingCanonical, "page has no canonical link")
	}
	if !p.IsHTTPS() {
		add(model.IssueNotHTTPS, "page is not served over HTTPS")
	}
	if p.Viewport == "" {
		add(model.IssueMissingViewport, "page has no viewport meta tag")
	}
	if p.Lang == "" {
		add(model.IssueMissingLang, "<html> element has no lang attribute")
	}
	if !p.StructuredData.HasSchema() {
		add(model.IssueNoStructuredData, "page has no JSON-LD, microdata or RDFa markup")
	}
	if len(p.OpenGraph) == 0 {
		add(model.IssueMissingOpenGraph, "page has no Open Graph tags")
	}
	if p.Content.WordCount >= minReadabilityWords && p.Content.FleschReadingEase < poorReadabilityEase {
		add(model.IssuePoorReadability, "Flesch reading ease is %.1f", p.Content.FleschReadingEase)
	}
	if p.Content.WordCount >= minReadabilityWords && len(p.Keywords) > 0 && p.Keywords[0].Density > maxKeywordDensity {
		add(model.IssueKeywordStuffing, "keyword %q has a density of %.2f%%", p.Keywords[0].Term, p.Keywords[0].Density)
	}
	if strings.Contains(p.RobotsMeta, "noindex") {
		add(model.IssueNoIndex, "page is excluded from indexing (%s)", p.RobotsMeta)
	}
	if spamThreshold > 0 && len(p.SpamTerms) >= spamThreshold {
		add(model.IssueSpamTerms, "page contains %d spam phrases: %s", len(p.SpamTerms), strings.Join(p.SpamTerms, ", "))
	}
	return issues
}

// evaluateResponse runs the rules that need response metadata.
func evaluateResponse(p *model.PageResult) []model.Issue {
	issues := make([]model.Issue, 0)
	if p.FetchTimeMS > slowResponseMS {
		issues = append(issues, model.NewIssue(model.IssueSlowResponse,
			fmt.Sprintf("response took %.2fs", float64(p.FetchTimeMS)/1000)))
	}
	if p.HTMLSize > largePageBytes {
		issues = append(issues, model.NewIssue(model.IssueLargePage,
			fmt.Sprintf("page is %.1f MB", float64(p.HTMLSize)/(1024*1024))))
	}
	if p.Compression == "" && p.HTMLSize > 0 {
		issues = append(issues, model.NewIssue(model.IssueNoCompression, "response is not compressed"))
	}
	return issues
}

// computeScore sums the weights of the passing score checks, normalized to
// a 0..100 scale. Pages without images earn the full image weight and
// pages with images earn it in proportion to alt-text coverage.
func computeScore(p *model.PageResult, weights model.ScoreWeights) int {
	if p.Failed() {
		return 0
	}
	total := weights.Total()
	if total <= 0 {
		return 0
	}

	points := 0.0
	titleLen := utf8.RuneCountInString(p.Title)
	if titleLen >= minTitleLength && titleLen <= maxTitleLength {
		points += float64(weights.Title)
	}
	metaLen := utf8.RuneCountInString(p.MetaDescription)
	if metaLen >= minMetaDescriptionLength && metaLen <= maxMetaDescriptionLength {
		points += float64(weights.MetaDescription)
	}
	if p.H1Count() == 1 {
		points += float64(weights.H1)
	}
	if p.Images.Total == 0 {
		points += float64(weights.ImageAlt)
	} else {
		points += float64(weights.ImageAlt) * float64(p.Images.WithAlt) / float64(p.Images.Total)
	}
	if p.Content.WordCount >= minWordCount {
		points += float64(weights.WordCount)
	}
	if p.Canonical != "" {
		points += float64(weights.Canonical)
	}
	if p.IsHTTPS() {
		points += float64(weights.HTTPS)
	}

	score := int(math.Round(points * 100 / float64(total)))
	return min(max(score, 0), 100)
}

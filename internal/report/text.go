package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/seoscan/internal/model"
)

const ruleWidth = 70

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle  = lipgloss.NewStyle().Bold(true)
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	goodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TextWriter outputs human-readable reports for the terminal.
type TextWriter struct {
	baseWriter

	// color enables lipgloss styling.
	color bool

	// verbose lists every page with its issues.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithColor enables coloured output.
func WithColor(color bool) TextWriterOption {
	return func(w *TextWriter) {
		w.color = color
	}
}

// WithVerbose lists every page and its issues.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *TextWriter) style(s lipgloss.Style, text string) string {
	if !w.color {
		return text
	}
	return s.Render(text)
}

func (w *TextWriter) severityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return criticalStyle
	case model.SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

func (w *TextWriter) scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 80:
		return goodStyle
	case score >= 50:
		return warningStyle
	default:
		return criticalStyle
	}
}

func (w *TextWriter) section(sb *strings.Builder, name string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.style(sectionStyle, name))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// Write outputs the site report.
func (w *TextWriter) Write(report *model.SiteReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.style(titleStyle, "                          SEOSCAN REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Target:        %s\n", report.Target)
	fmt.Fprintf(&sb, "Source:        %s\n", report.Source)
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated:     %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, "Pages:         %d (%d ok, %d failed, %.1f%% success)\n",
		report.TotalPages, report.Successful, report.Failed, report.SuccessRate)
	fmt.Fprintf(&sb, "Average score: %s\n\n",
		w.style(w.scoreStyle(report.Averages.Score), strconv.FormatFloat(report.Averages.Score, 'f', 1, 64)))

	w.writeAverages(&sb, report)
	w.writeHistogram(&sb, report)
	w.writeCounters(&sb, report)
	w.writeIssues(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeFailures(&sb, report)
	w.writeRecommendations(&sb, report)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

func (w *TextWriter) writeAverages(sb *strings.Builder, report *model.SiteReport) {
	w.section(sb, "AVERAGES")
	fmt.Fprintf(sb, "  Word count:     %.1f\n", report.Averages.WordCount)
	fmt.Fprintf(sb, "  Response time:  %.1f ms\n", report.Averages.ResponseTimeMS)
	fmt.Fprintf(sb, "  Page size:      %.1f bytes\n", report.Averages.PageSize)
	fmt.Fprintf(sb, "  Readability:    %.1f\n\n", report.Averages.Readability)
}

func (w *TextWriter) writeHistogram(sb *strings.Builder, report *model.SiteReport) {
	w.section(sb, "SCORE DISTRIBUTION")
	for _, b := range report.ScoreHistogram {
		bar := strings.Repeat("#", min(b.Count, 50))
		fmt.Fprintf(sb, "  %-7s %4d %s\n", b.Label(), b.Count, bar)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeCounters(sb *strings.Builder, report *model.SiteReport) {
	c := report.Counters
	w.section(sb, "SITE COUNTERS")
	rows := []struct {
		label string
		n     int
	}{
		{"Missing title", c.MissingTitle},
		{"Missing meta description", c.MissingMetaDescription},
		{"Missing H1", c.MissingH1},
		{"Multiple H1", c.MultipleH1},
		{"Without HTTPS", c.WithoutHTTPS},
		{"Low content (<300 words)", c.LowContent},
		{"No images", c.NoImages},
		{"Images without alt", c.ImagesWithoutAlt},
		{"High score (>=80)", c.HighScore},
		{"Medium score (50-79)", c.MediumScore},
		{"Low score (<50)", c.LowScore},
	}
	for _, r := range rows {
		fmt.Fprintf(sb, "  %-26s %d\n", r.label+":", r.n)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeIssues(sb *strings.Builder, report *model.SiteReport) {
	w.section(sb, "TOP ISSUES")
	if len(report.TopIssues) == 0 {
		sb.WriteString("  No issues found\n\n")
		return
	}
	for _, issue := range report.TopIssues {
		label := fmt.Sprintf("[%s]", issue.Severity)
		fmt.Fprintf(sb, "  %s %s on %d page(s)\n",
			w.style(w.severityStyle(issue.Severity), label), issue.Code, issue.Count)
		if issue.Example != "" {
			fmt.Fprintf(sb, "      %s\n", w.style(dimStyle, truncateString(issue.Example, 90)))
		}
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writePages(sb *strings.Builder, report *model.SiteReport) {
	w.section(sb, "PAGES")
	for _, p := range report.Pages {
		fmt.Fprintf(sb, "  %s  score %s  status %d  %d words  %d ms\n",
			p.URL, w.style(w.scoreStyle(float64(p.Score)), strconv.Itoa(p.Score)),
			p.StatusCode, p.Content.WordCount, p.FetchTimeMS)
		for _, issue := range p.Issues {
			fmt.Fprintf(sb, "      - %s: %s\n", issue.Code, issue.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeFailures(sb *strings.Builder, report *model.SiteReport) {
	failed := report.FailedPages()
	if len(failed) == 0 {
		return
	}
	w.section(sb, "FAILED PAGES")
	for _, p := range failed {
		fmt.Fprintf(sb, "  %s %s (%s)\n", w.style(criticalStyle, "x"), p.URL, p.Error.Error())
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeRecommendations(sb *strings.Builder, report *model.SiteReport) {
	if report.Recommendations == "" {
		return
	}
	header := "RECOMMENDATIONS"
	if report.RecommendationsSource != "" {
		header += " (" + report.RecommendationsSource + ")"
	}
	w.section(sb, header)
	sb.WriteString(strings.TrimSpace(report.Recommendations))
	sb.WriteString("\n\n")
	if report.RecommendationsError != "" {
		fmt.Fprintf(sb, "%s\n\n", w.style(dimStyle, "Language model unavailable: "+report.RecommendationsError))
	}
}

// WriteComparison outputs the competitor comparison.
func (w *TextWriter) WriteComparison(c *model.CompetitorComparison) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.style(titleStyle, "                       COMPETITOR COMPARISON"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Target:      %s (score %d)\n", c.Target.URL, c.Target.Score)
	for _, comp := range c.Competitors {
		status := "score " + strconv.Itoa(comp.Score)
		if comp.Failed() {
			status = "failed"
		}
		fmt.Fprintf(&sb, "Competitor:  %s (%s)\n", comp.URL, status)
	}
	sb.WriteString("\n")

	w.section(&sb, "METRICS")
	fmt.Fprintf(&sb, "  %-16s %10s %10s %10s %10s  %s\n", "metric", "target", "avg", "min", "max", "result")
	for _, m := range c.Metrics {
		result := string(m.Performance)
		switch m.Performance {
		case model.PerformanceBetter:
			result = w.style(goodStyle, result)
		case model.PerformanceWorse:
			result = w.style(criticalStyle, result)
		}
		fmt.Fprintf(&sb, "  %-16s %10.1f %10.1f %10.1f %10.1f  %s\n",
			m.Name, m.Target, m.CompetitorAvg, m.CompetitorMin, m.CompetitorMax, result)
	}
	sb.WriteString("\n")

	if len(c.Deltas) > 0 {
		w.section(&sb, "DELTAS (target minus competitor)")
		for _, d := range c.Deltas {
			fmt.Fprintf(&sb, "  %s: words %+d, response %+d ms, score %+d\n",
				d.URL, d.WordCountDelta, d.ResponseTimeDeltaMS, d.ScoreDelta)
		}
		sb.WriteString("\n")
	}

	lists := []struct {
		name  string
		items []string
	}{
		{"STRENGTHS", c.Strengths},
		{"WEAKNESSES", c.Weaknesses},
		{"TECHNICAL GAPS", c.TechnicalGaps},
		{"CONTENT GAPS", c.ContentGaps},
		{"SHARED KEYWORDS", c.SharedKeywords},
	}
	for _, l := range lists {
		if len(l.items) == 0 {
			continue
		}
		w.section(&sb, l.name)
		for _, item := range l.items {
			fmt.Fprintf(&sb, "  [+] %s\n", item)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

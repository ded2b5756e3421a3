package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/seoscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown for documentation and
// sharing in pull requests or wikis.
type MarkdownWriter struct {
	baseWriter
	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the site report in Markdown.
func (w *MarkdownWriter) Write(report *model.SiteReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSeverity(md, report)
	w.writeHistogram(md, report)
	w.writeIssues(md, report)
	w.writePages(md, report)
	w.writeRecommendations(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SiteReport) {
	md.H1("SEO Report")
	md.PlainText("")

	generated := "-"
	if !report.GeneratedAt.IsZero() {
		generated = report.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Source", string(report.Source)},
			{"Generated", generated},
			{"Pages", strconv.Itoa(report.TotalPages)},
			{"Successful", strconv.Itoa(report.Successful)},
			{"Failed", strconv.Itoa(report.Failed)},
			{"Success rate", formatFloat(report.SuccessRate) + "%"},
			{"Average score", formatFloat(report.Averages.Score)},
			{"Average words", formatFloat(report.Averages.WordCount)},
			{"Average response", formatFloat(report.Averages.ResponseTimeMS) + " ms"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSeverity(md *markdown.Markdown, report *model.SiteReport) {
	md.H2("Issue Severity")
	md.PlainText("")

	counts := report.CountBySeverity()
	total := 0
	rows := make([][]string, 0, len(severityOrder)+1)
	for _, sev := range severityOrder {
		rows = append(rows, []string{severityLabel(sev), strconv.Itoa(counts[sev])})
		total += counts[sev]
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Issue Severity Distribution"),
			piechart.WithShowData(true),
		)
		for _, sev := range severityOrder {
			if counts[sev] > 0 {
				chart.LabelAndIntValue(severityName(sev), uint64(counts[sev]))
			}
		}
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf("%d critical issue(s) keep pages from ranking or being indexed.", counts[model.SeverityCritical])
	case counts[model.SeverityWarning] > 0:
		md.Warningf("%d warning(s) should be addressed.", counts[model.SeverityWarning])
	case total > 0:
		md.Note("Only informational findings detected.")
	default:
		md.Tip("No SEO issues detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeHistogram(md *markdown.Markdown, report *model.SiteReport) {
	md.H2("Score Distribution")
	md.PlainText("")

	rows := make([][]string, len(report.ScoreHistogram))
	for i, b := range report.ScoreHistogram {
		rows[i] = []string{b.Label(), strconv.Itoa(b.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Score", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, report *model.SiteReport) {
	md.H2("Top Issues")
	md.PlainText("")

	if len(report.TopIssues) == 0 {
		md.PlainText("No issues found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.TopIssues))
	for i, issue := range report.TopIssues {
		rows[i] = []string{
			"`" + string(issue.Code) + "`",
			severityLabel(issue.Severity),
			strconv.Itoa(issue.Count),
			truncateString(orDash(issue.Example), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Severity", "Pages", "Example"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, issue := range report.TopIssues {
		info := model.GetIssueInfo(issue.Code)
		md.Details(string(issue.Code), info.Impact+" "+info.Recommendation)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.SiteReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages analyzed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		status := strconv.Itoa(p.StatusCode)
		if p.Error != nil {
			status += " (" + string(p.Error.Kind) + ")"
		}
		rows[i] = []string{
			truncateString(p.URL, 60),
			status,
			strconv.Itoa(p.Score),
			strconv.Itoa(p.Content.WordCount),
			strconv.Itoa(len(p.Issues)),
			truncateString(orDash(p.Title), 40),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Score", "Words", "Issues", "Title"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, report *model.SiteReport) {
	if report.Recommendations == "" {
		return
	}
	md.H2("Recommendations")
	md.PlainText("")
	if report.RecommendationsError != "" {
		md.Importantf("Generated by rules; the language model failed: %s", report.RecommendationsError)
		md.PlainText("")
	}
	// Recommendation text is already Markdown; demote its headings by one.
	for _, line := range strings.Split(strings.TrimSpace(report.Recommendations), "\n") {
		if strings.HasPrefix(line, "#") {
			line = "##" + line
		}
		md.PlainText(line)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	footer := "*Report generated by seoscan"
	if w.version != "" {
		footer += " " + w.version
	}
	md.PlainText(footer + "*")
}

// WriteComparison outputs the competitor comparison in Markdown.
func (w *MarkdownWriter) WriteComparison(c *model.CompetitorComparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Competitor Comparison")
	md.PlainText("")

	rows := [][]string{{"target", c.Target.URL, strconv.Itoa(c.Target.Score), strconv.Itoa(c.Target.Content.WordCount)}}
	for _, comp := range c.Competitors {
		score := strconv.Itoa(comp.Score)
		if comp.Failed() {
			score = "failed"
		}
		rows = append(rows, []string{"competitor", comp.URL, score, strconv.Itoa(comp.Content.WordCount)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Role", "URL", "Score", "Words"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Metrics")
	md.PlainText("")
	metricRows := make([][]string, len(c.Metrics))
	for i, m := range c.Metrics {
		metricRows[i] = []string{
			m.Name,
			formatFloat(m.Target),
			formatFloat(m.CompetitorAvg),
			formatFloat(m.CompetitorMin),
			formatFloat(m.CompetitorMax),
			string(m.Performance),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Target", "Avg", "Min", "Max", "Result"},
		Rows:   metricRows,
	})
	md.PlainText("")

	lists := []struct {
		name  string
		items []string
	}{
		{"Strengths", c.Strengths},
		{"Weaknesses", c.Weaknesses},
		{"Technical Gaps", c.TechnicalGaps},
		{"Content Gaps", c.ContentGaps},
	}
	for _, l := range lists {
		md.H2(l.name)
		md.PlainText("")
		if len(l.items) == 0 {
			md.PlainText("None.")
		} else {
			md.BulletList(l.items...)
		}
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func severityName(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "Critical"
	case model.SeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}

func severityLabel(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "🔴 Critical"
	case model.SeverityWarning:
		return "🟡 Warning"
	default:
		return "🔵 Info"
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

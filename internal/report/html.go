package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/nao1215/seoscan/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var htmlTemplates = template.Must(
	template.New("").Funcs(template.FuncMap{
		"scoreClass":    scoreClass,
		"severityClass": severityClass,
		"barWidth":      func(n int) int { return min(n*8, 400) },
	}).ParseFS(templateFS, "templates/*.html.tmpl"),
)

// HTMLWriter outputs standalone HTML pages. All page data is escaped by
// html/template.
type HTMLWriter struct {
	baseWriter
	version string
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer, version string) *HTMLWriter {
	return &HTMLWriter{baseWriter: newBaseWriter(output), version: version}
}

// Write outputs the site report as HTML.
func (w *HTMLWriter) Write(report *model.SiteReport) (int, error) {
	return w.render("report.html.tmpl", map[string]any{
		"Report":  report,
		"Version": w.version,
	})
}

// WriteComparison outputs the comparison as HTML.
func (w *HTMLWriter) WriteComparison(c *model.CompetitorComparison) (int, error) {
	return w.render("comparison.html.tmpl", map[string]any{
		"Comparison": c,
		"Version":    w.version,
	})
}

// render executes into a buffer first so a template error writes nothing.
func (w *HTMLWriter) render(name string, data any) (int, error) {
	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// scoreClass accepts int and float64 scores.
func scoreClass(score any) string {
	var s float64
	switch v := score.(type) {
	case int:
		s = float64(v)
	case float64:
		s = v
	}
	switch {
	case s >= 80:
		return "high"
	case s >= 50:
		return "medium"
	default:
		return "low"
	}
}

func severityClass(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "critical"
	case model.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

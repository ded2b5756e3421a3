package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/seoscan/internal/model"
)

// pageColumns is the CSV header for site reports.
var pageColumns = []string{
	"url", "final_url", "depth", "status_code", "error", "score",
	"title", "title_length", "meta_description_length", "h1_count",
	"word_count", "flesch_reading_ease", "internal_links", "external_links",
	"images", "images_without_alt", "canonical", "https", "structured_data",
	"language", "fetch_time_ms", "html_size", "issue_count", "issues",
}

// CSVWriter outputs one row per page, or one row per metric for comparisons.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report pages in URL order.
func (w *CSVWriter) Write(report *model.SiteReport) (int, error) {
	rows := make([][]string, 0, len(report.Pages)+1)
	rows = append(rows, pageColumns)
	for _, p := range report.Pages {
		rows = append(rows, pageRow(p))
	}
	return w.writeAll(rows)
}

// WriteComparison outputs the metric comparison.
func (w *CSVWriter) WriteComparison(c *model.CompetitorComparison) (int, error) {
	rows := [][]string{{"metric", "target", "competitor_avg", "competitor_min", "competitor_max", "performance"}}
	for _, m := range c.Metrics {
		rows = append(rows, []string{
			m.Name,
			csvFloat(m.Target),
			csvFloat(m.CompetitorAvg),
			csvFloat(m.CompetitorMin),
			csvFloat(m.CompetitorMax),
			string(m.Performance),
		})
	}
	return w.writeAll(rows)
}

func (w *CSVWriter) writeAll(rows [][]string) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

func pageRow(p model.PageResult) []string {
	errText := ""
	if p.Error != nil {
		errText = string(p.Error.Kind) + ": " + p.Error.Message
	}
	language := ""
	if p.Language != nil {
		language = p.Language.Code
	}
	codes := make([]string, len(p.Issues))
	for i, issue := range p.Issues {
		codes[i] = string(issue.Code)
	}

	return []string{
		p.URL,
		p.FinalURL,
		strconv.Itoa(p.Depth),
		strconv.Itoa(p.StatusCode),
		errText,
		strconv.Itoa(p.Score),
		p.Title,
		strconv.Itoa(len([]rune(p.Title))),
		strconv.Itoa(len([]rune(p.MetaDescription))),
		strconv.Itoa(p.H1Count()),
		strconv.Itoa(p.Content.WordCount),
		csvFloat(p.Content.FleschReadingEase),
		strconv.Itoa(len(p.InternalLinks)),
		strconv.Itoa(len(p.ExternalLinks)),
		strconv.Itoa(p.Images.Total),
		strconv.Itoa(p.Images.WithoutAlt),
		p.Canonical,
		strconv.FormatBool(p.IsHTTPS()),
		strconv.FormatBool(p.StructuredData.HasSchema()),
		language,
		strconv.FormatInt(p.FetchTimeMS, 10),
		strconv.Itoa(p.HTMLSize),
		strconv.Itoa(len(p.Issues)),
		strings.Join(codes, ";"),
	}
}

func csvFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

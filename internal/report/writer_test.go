package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoscan/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.SiteReport {
	report := model.NewSiteReport("https://example.com/", model.SourceCrawl)
	report.ID = "0b8e9a4c-1111-4c1a-9d55-000000000001"
	report.GeneratedAt = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	report.TotalPages = 2
	report.Successful = 1
	report.Failed = 1
	report.SuccessRate = 50
	report.Averages = model.Averages{WordCount: 420, ResponseTimeMS: 120, PageSize: 5120, Score: 65, Readability: 60.5}
	report.ScoreHistogram[3].Count = 1
	report.Counters.MissingTitle = 1
	report.TopIssues = []model.IssueCount{
		{Code: model.IssueMissingTitle, Severity: model.SeverityCritical, Count: 1, Example: "page has no <title>"},
		{Code: model.IssueMissingCanonical, Severity: model.SeverityInfo, Count: 1, Example: "no canonical link"},
	}
	report.Pages = []model.PageResult{
		{
			URL:         "https://example.com/",
			StatusCode:  200,
			Score:       65,
			FetchTimeMS: 120,
			Title:       "Home, sweet <home>",
			Content:     model.ContentMetrics{WordCount: 420},
			Issues: []model.Issue{
				model.NewIssue(model.IssueMissingTitle, "page has no <title>"),
				model.NewIssue(model.IssueMissingCanonical, "no canonical link"),
			},
		},
		{
			URL:        "https://example.com/broken",
			StatusCode: 500,
			Error:      &model.PageError{Kind: model.PageErrorHTTP, Message: "HTTP 500", StatusCode: 500},
			Issues:     []model.Issue{model.NewIssue(model.IssueHTTPError, "HTTP 500")},
		},
	}
	report.Recommendations = "# SEO Recommendations\n\n- Add titles"
	report.RecommendationsSource = "rules"
	return report
}

func createTestComparison() *model.CompetitorComparison {
	return &model.CompetitorComparison{
		Target:      model.PageResult{URL: "https://example.com/", Score: 70},
		Competitors: []model.PageResult{{URL: "https://rival.com/", Score: 80}},
		Metrics: []model.MetricComparison{
			{Name: "word_count", Target: 500, CompetitorAvg: 300, CompetitorMin: 300, CompetitorMax: 300, Performance: model.PerformanceBetter},
			{Name: "response_time", Target: 400, CompetitorAvg: 100, CompetitorMin: 100, CompetitorMax: 100, Performance: model.PerformanceWorse},
		},
		Deltas:        []model.CompetitorDelta{{URL: "https://rival.com/", WordCountDelta: 200, ResponseTimeDeltaMS: 300, ScoreDelta: -10}},
		ContentGaps:   []string{"pricing"},
		TechnicalGaps: []string{"Missing structured data (competitors use Schema.org markup)"},
		Strengths:     []string{"Superior word_count"},
		Weaknesses:    []string{"Inferior response_time"},
	}
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"SEOSCAN REPORT",
			"https://example.com/",
			"2 (1 ok, 1 failed, 50.0% success)",
			"SCORE DISTRIBUTION",
			"60-79",
			"[CRITICAL] missing_title on 1 page(s)",
			"FAILED PAGES",
			"https://example.com/broken",
			"RECOMMENDATIONS (rules)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "\x1b[") {
			t.Error("expected no ANSI escapes without colour")
		}
	})

	t.Run("verbose lists pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "- missing_canonical: no canonical link") {
			t.Error("expected per-page issues in verbose output")
		}
	})

	t.Run("empty report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := model.NewSiteReport("https://empty.example/", model.SourceList)
		if _, err := NewTextWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No issues found") {
			t.Error("expected empty issues message")
		}
	})

	t.Run("comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"COMPETITOR COMPARISON", "https://rival.com/", "words +200", "Superior word_count", "pricing"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["target"] != "https://example.com/" {
			t.Errorf("target = %v", decoded["target"])
		}
		issues := decoded["top_issues"].([]any)
		if issues[0].(map[string]any)["severity"] != "critical" {
			t.Errorf("severity = %v, want critical", issues[0])
		}
		if strings.Contains(buf.String(), "\n  ") {
			t.Error("expected compact output")
		}
	})

	t.Run("pretty print with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" || decoded.Report == nil || decoded.Report.TotalPages != 2 {
			t.Errorf("decoded = %+v", decoded)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded model.CompetitorComparison
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Metrics) != 2 || decoded.Metrics[1].Performance != model.PerformanceWorse {
			t.Errorf("metrics = %+v", decoded.Metrics)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "v0.1.0").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# SEO Report",
			"## Issue Severity",
			"```mermaid",
			"pie",
			"## Top Issues",
			"`missing_title`",
			"## Pages",
			"### SEO Recommendations",
			"seoscan v0.1.0",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no issues gives tip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := model.NewSiteReport("https://clean.example/", model.SourceCrawl)
		if _, err := NewMarkdownWriter(&buf, "").Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No SEO issues detected.") {
			t.Error("expected tip for clean report")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no pie chart without issues")
		}
	})

	t.Run("comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "").WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"# Competitor Comparison", "## Metrics", "word_count", "## Content Gaps", "pricing"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestHTMLWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewHTMLWriter(&buf, "v0.1.0").Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>SEO Report - https://example.com/</title>",
		"Home, sweet &lt;home&gt;",
		`class="critical"`,
		"missing_title",
		"seoscan v0.1.0",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(output, "<home>") {
		t.Error("expected page data to be escaped")
	}

	buf.Reset()
	if _, err := NewHTMLWriter(&buf, "").WriteComparison(createTestComparison()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `class="worse"`) {
		t.Error("expected performance class in comparison")
	}
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewCSVWriter(&buf).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if len(records[0]) != len(pageColumns) {
		t.Errorf("header has %d columns, want %d", len(records[0]), len(pageColumns))
	}

	col := func(name string) int {
		for i, c := range records[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %q missing", name)
		return -1
	}
	if got := records[1][col("title")]; got != "Home, sweet <home>" {
		t.Errorf("title = %q", got)
	}
	if got := records[1][col("issues")]; got != "missing_title;missing_canonical" {
		t.Errorf("issues = %q", got)
	}
	if got := records[2][col("error")]; got != "http: HTTP 500" {
		t.Errorf("error = %q", got)
	}
	if got := records[1][col("https")]; got != "true" {
		t.Errorf("https = %q", got)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"text", "*report.TextWriter"},
		{"", "*report.TextWriter"},
		{"json", "*report.JSONWriter"},
		{"markdown", "*report.MarkdownWriter"},
		{"md", "*report.MarkdownWriter"},
		{"HTML", "*report.HTMLWriter"},
		{"csv", "*report.CSVWriter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			w, err := New(tt.format, &bytes.Buffer{}, Options{})
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.format, err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := New("pdf", &bytes.Buffer{}, Options{}); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("New(pdf) error = %v, want ErrUnknownFormat", err)
		}
	})
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*report.TextWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *HTMLWriter:
		return "*report.HTMLWriter"
	case *CSVWriter:
		return "*report.CSVWriter"
	default:
		return "unknown"
	}
}

type failingWriter struct{}

func (failingWriter) Write(*model.SiteReport) (int, error) { return 0, errors.New("boom") }
func (failingWriter) WriteComparison(*model.CompetitorComparison) (int, error) {
	return 0, errors.New("boom")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewJSONWriter(&a), NewCSVWriter(&b))
		n, err := m.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("n = %d, want %d", n, a.Len()+b.Len())
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewJSONWriter(&buf))
		if _, err := m.WriteComparison(createTestComparison()); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のテキスト", 5, "日本..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nao1215/seoscan/internal/model"
)

// ErrUnknownFormat is returned by New for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatCSV      = "csv"
)

// Writer renders reports to an output destination.
type Writer interface {
	// Write outputs a site report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.SiteReport) (int, error)

	// WriteComparison outputs a competitor comparison.
	WriteComparison(comparison *model.CompetitorComparison) (int, error)
}

// MultiWriter writes to multiple Writers, for example the terminal and a
// report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all Writers and stops on the first error.
func (m *MultiWriter) Write(report *model.SiteReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison to all Writers.
func (m *MultiWriter) WriteComparison(comparison *model.CompetitorComparison) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(comparison)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Options are shared by the writers New can build.
type Options struct {
	// Color enables ANSI styling in the text writer.
	Color bool

	// Verbose adds per-page detail to the text writer.
	Verbose bool

	// Version is embedded in JSON, Markdown and HTML output.
	Version string
}

// New returns the writer for format.
func New(format string, output io.Writer, opts Options) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextWriter(output, WithColor(opts.Color), WithVerbose(opts.Verbose)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(opts.Version)), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output, opts.Version), nil
	case FormatHTML:
		return NewHTMLWriter(output, opts.Version), nil
	case FormatCSV:
		return NewCSVWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// IsTerminal reports whether w is a terminal, so colour output is safe.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityWarning,
	model.SeverityInfo,
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// orDash returns "-" for empty strings.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

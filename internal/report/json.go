package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/seoscan/internal/model"
)

// JSONWriter outputs reports as JSON for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version, when set, wraps output in a JSONReport envelope.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps output in a JSONReport carrying version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the envelope written when a version is configured.
type JSONReport struct {
	Version    string                      `json:"version"`
	Report     *model.SiteReport           `json:"report,omitempty"`
	Comparison *model.CompetitorComparison `json:"comparison,omitempty"`
}

// Write outputs the site report.
func (w *JSONWriter) Write(report *model.SiteReport) (int, error) {
	if w.version != "" {
		return w.writeJSON(&JSONReport{Version: w.version, Report: report})
	}
	return w.writeJSON(report)
}

// WriteComparison outputs the comparison.
func (w *JSONWriter) WriteComparison(comparison *model.CompetitorComparison) (int, error) {
	if w.version != "" {
		return w.writeJSON(&JSONReport{Version: w.version, Comparison: comparison})
	}
	return w.writeJSON(comparison)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// Package report renders site reports and competitor comparisons.
//
// Writers exist for plain text (coloured with lipgloss on a terminal),
// JSON, Markdown (nao1215/markdown, with a mermaid pie chart of issue
// severities), standalone HTML and CSV with one row per page.
//
// Report data lives in the model package. Writers only format it, so a
// new output format never touches the data structures.
package report

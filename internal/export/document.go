package export

import (
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/seoscan/internal/model"
)

// Document is the indexed form of one audited page.
type Document struct {
	ReportID     string    `json:"report_id"`
	Target       string    `json:"target"`
	Source       string    `json:"source"`
	AuditedAt    time.Time `json:"audited_at"`
	URL          string    `json:"url"`
	FinalURL     string    `json:"final_url,omitempty"`
	Depth        int       `json:"depth"`
	StatusCode   int       `json:"status_code"`
	Failed       bool      `json:"failed"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"meta_description,omitempty"`
	Score        int       `json:"score"`
	WordCount    int       `json:"word_count"`
	Readability  float64   `json:"flesch_reading_ease"`
	FetchTimeMS  int64     `json:"fetch_time_ms"`
	HTMLSize     int       `json:"html_size"`
	Language     string    `json:"language,omitempty"`
	Technologies []string  `json:"technologies,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	IssueCodes   []string  `json:"issue_codes"`
	Critical     int       `json:"critical_issues"`
	Warnings     int       `json:"warning_issues"`
	ContentHash  string    `json:"content_hash,omitempty"`
}

// NewDocument flattens page for indexing under report.
func NewDocument(report *model.SiteReport, page *model.PageResult) Document {
	doc := Document{
		ReportID:     report.ID,
		Target:       report.Target,
		Source:       string(report.Source),
		AuditedAt:    report.GeneratedAt,
		URL:          page.URL,
		FinalURL:     page.FinalURL,
		Depth:        page.Depth,
		StatusCode:   page.StatusCode,
		Failed:       page.Failed(),
		Title:        page.Title,
		Description:  page.MetaDescription,
		Score:        page.Score,
		WordCount:    page.Content.WordCount,
		Readability:  page.Content.FleschReadingEase,
		FetchTimeMS:  page.FetchTimeMS,
		HTMLSize:     page.HTMLSize,
		Technologies: page.Technologies,
		IssueCodes:   make([]string, 0, len(page.Issues)),
		ContentHash:  page.ContentHash,
	}
	if page.Error != nil {
		doc.ErrorKind = string(page.Error.Kind)
	}
	if page.Language != nil {
		doc.Language = page.Language.Code
	}
	for _, kw := range page.Keywords {
		doc.Keywords = append(doc.Keywords, kw.Term)
	}
	for _, issue := range page.Issues {
		doc.IssueCodes = append(doc.IssueCodes, string(issue.Code))
		switch issue.Severity {
		case model.SeverityCritical:
			doc.Critical++
		case model.SeverityWarning:
			doc.Warnings++
		}
	}
	return doc
}

// DocumentID returns the stable document ID of pageURL within reportID.
func DocumentID(reportID, pageURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(reportID+"|"+pageURL)).String()
}

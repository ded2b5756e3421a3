package sitemap

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/nao1215/seoscan/internal/model"
)

// Namespace is the sitemap protocol XML namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Generate writes a sitemap urlset for the pages that answered 200 OK and
// are not marked noindex, ordered by crawl depth and then URL.
func Generate(w io.Writer, pages []model.PageResult) error {
	ok := make([]model.PageResult, 0, len(pages))
	for _, p := range pages {
		if p.StatusCode == http.StatusOK && !p.Failed() && !p.HasIssue(model.IssueNoIndex) {
			ok = append(ok, p)
		}
	}
	slices.SortFunc(ok, func(a, b model.PageResult) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})

	set := urlSet{Xmlns: Namespace, URLs: make([]urlEntry, 0, len(ok))}
	for _, p := range ok {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        p.URL,
			LastMod:    lastMod(p.LastModified),
			ChangeFreq: changeFreq(p.Depth, p.Content.WordCount),
			Priority:   priority(p.Depth),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	return nil
}

// lastMod converts a Last-Modified header to the W3C date format.
func lastMod(header string) string {
	if header == "" {
		return ""
	}
	t, err := http.ParseTime(header)
	if err != nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func changeFreq(depth, words int) string {
	switch {
	case depth == 0:
		return "daily"
	case depth == 1 && words > 500:
		return "weekly"
	case words > 1000:
		return "monthly"
	default:
		return "yearly"
	}
}

func priority(depth int) string {
	switch depth {
	case 0:
		return "1.0"
	case 1:
		return "0.8"
	case 2:
		return "0.6"
	default:
		return "0.4"
	}
}

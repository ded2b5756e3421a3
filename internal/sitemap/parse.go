package sitemap

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxDecompressedSize bounds gzip-compressed sitemaps (the protocol limit is 50MB).
const maxDecompressedSize = 50 * 1024 * 1024

// ErrNotSitemap is returned for XML that is neither a urlset nor a sitemapindex.
var ErrNotSitemap = errors.New("document is not a sitemap")

// Kind distinguishes page lists from index documents.
type Kind int

// Sitemap document kinds.
const (
	KindURLSet Kind = iota
	KindIndex
)

// Entry is one <url> or <sitemap> element.
type Entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Document is a parsed sitemap. Element names are matched by local name so
// both namespaced and plain documents decode.
type Document struct {
	XMLName  xml.Name
	URLs     []Entry `xml:"url"`
	Sitemaps []Entry `xml:"sitemap"`
}

// Kind returns whether the document lists pages or child sitemaps.
func (d *Document) Kind() Kind {
	if d.XMLName.Local == "sitemapindex" {
		return KindIndex
	}
	return KindURLSet
}

// Parse decodes a sitemap body, transparently decompressing gzip.
func Parse(body []byte) (*Document, error) {
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip sitemap: %w", err)
		}
		defer zr.Close()
		body, err = io.ReadAll(io.LimitReader(zr, maxDecompressedSize))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress sitemap: %w", err)
		}
	}

	var doc Document
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap: %w", err)
	}

	switch doc.XMLName.Local {
	case "urlset", "sitemapindex":
	default:
		return nil, fmt.Errorf("%w: root element <%s>", ErrNotSitemap, doc.XMLName.Local)
	}

	for i := range doc.URLs {
		doc.URLs[i].Loc = strings.TrimSpace(doc.URLs[i].Loc)
	}
	for i := range doc.Sitemaps {
		doc.Sitemaps[i].Loc = strings.TrimSpace(doc.Sitemaps[i].Loc)
	}
	return &doc, nil
}

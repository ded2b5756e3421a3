package analyzer

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/urlutil"
)

// invisibleElements hold no rendered text.
var invisibleElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "svg": {}, "head": {},
	"iframe": {}, "object": {},
}

// blockElements end a line of visible text.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "br": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {},
	"h6": {}, "tr": {}, "td": {}, "th": {}, "section": {}, "article": {}, "header": {},
	"footer": {}, "nav": {}, "aside": {}, "blockquote": {}, "pre": {}, "ul": {}, "ol": {},
}

// hasElements reports whether body contains at least one HTML tag.
// The HTML parser invents html, head and body for any input, so this is
// checked on the token stream.
func hasElements(body []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

// extractHead fills the <head> derived fields.
func extractHead(doc *goquery.Document, result *model.PageResult) {
	result.Title = collapseSpace(doc.Find("title").First().Text())
	result.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		content := strings.TrimSpace(s.AttrOr("content", ""))

		if cs, ok := s.Attr("charset"); ok && result.Charset == "" {
			result.Charset = strings.ToLower(strings.TrimSpace(cs))
		}
		if strings.EqualFold(s.AttrOr("http-equiv", ""), "content-type") && result.Charset == "" {
			if idx := strings.Index(strings.ToLower(content), "charset="); idx >= 0 {
				result.Charset = strings.ToLower(strings.TrimSpace(content[idx+len("charset="):]))
			}
		}

		switch name {
		case "description":
			if result.MetaDescription == "" {
				result.MetaDescription = collapseSpace(content)
			}
		case "keywords":
			result.MetaKeywords = content
		case "robots":
			result.RobotsMeta = strings.ToLower(content)
		case "viewport":
			result.Viewport = content
		}

		if strings.HasPrefix(property, "og:") {
			if result.OpenGraph == nil {
				result.OpenGraph = make(map[string]string)
			}
			result.OpenGraph[property] = content
		}
		twitterKey := name
		if !strings.HasPrefix(twitterKey, "twitter:") {
			twitterKey = property
		}
		if strings.HasPrefix(twitterKey, "twitter:") {
			if result.TwitterCard == nil {
				result.TwitterCard = make(map[string]string)
			}
			result.TwitterCard[twitterKey] = content
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			if rel == "canonical" {
				result.Canonical = strings.TrimSpace(s.AttrOr("href", ""))
				return false
			}
		}
		return true
	})
}

// extractHeadings collects h1..h6 texts in document order.
func extractHeadings(doc *goquery.Document) map[string][]string {
	headings := make(map[string][]string)
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := goquery.NodeName(s)
		headings[level] = append(headings[level], collapseSpace(s.Text()))
	})
	return headings
}

// baseFor returns the URL relative links resolve against, honouring <base href>.
func baseFor(doc *goquery.Document, pageURL *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return pageURL
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return pageURL.ResolveReference(ref)
}

// extractLinks splits anchors into internal (same host as pageURL) and
// external absolute URLs, deduplicated in document order.
func extractLinks(doc *goquery.Document, pageURL *url.URL) (internal, external []string) {
	internal = make([]string, 0)
	external = make([]string, 0)
	base := baseFor(doc, pageURL)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		link, ok := urlutil.Resolve(base, s.AttrOr("href", ""))
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		if urlutil.SameHost(pageURL.Host, link) {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	})
	return internal, external
}

// extractImages counts images and alt-text coverage. An empty alt counts as missing.
func extractImages(doc *goquery.Document) model.ImageStats {
	stats := model.ImageStats{AltCoverage: 100}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		stats.Total++
		if strings.TrimSpace(s.AttrOr("alt", "")) != "" {
			stats.WithAlt++
		} else {
			stats.WithoutAlt++
		}
	})
	if stats.Total > 0 {
		stats.AltCoverage = round2(float64(stats.WithAlt) / float64(stats.Total) * 100)
	}
	return stats
}

// extractStructuredData detects JSON-LD, microdata and RDFa and collects
// the Schema.org types they declare.
func extractStructuredData(doc *goquery.Document, result *model.PageResult) model.StructuredData {
	data := model.StructuredData{
		OpenGraph:   len(result.OpenGraph) > 0,
		TwitterCard: len(result.TwitterCard) > 0,
	}
	types := make(map[string]struct{})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}
		data.JSONLD = true
		collectJSONLDTypes(payload, types)
	})

	doc.Find("[itemscope]").Each(func(_ int, s *goquery.Selection) {
		data.Microdata = true
		for _, itemType := range strings.Fields(s.AttrOr("itemtype", "")) {
			if name := path.Base(strings.TrimRight(itemType, "/")); name != "." && name != "/" {
				types[name] = struct{}{}
			}
		}
	})

	if doc.Find("[typeof], [vocab]").Length() > 0 {
		data.RDFa = true
		doc.Find("[typeof]").Each(func(_ int, s *goquery.Selection) {
			for _, t := range strings.Fields(s.AttrOr("typeof", "")) {
				types[strings.TrimPrefix(t, "schema:")] = struct{}{}
			}
		})
	}

	if len(types) > 0 {
		data.Types = make([]string, 0, len(types))
		for t := range types {
			data.Types = append(data.Types, t)
		}
		sort.Strings(data.Types)
	}
	return data
}

func collectJSONLDTypes(node any, types map[string]struct{}) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectJSONLDTypes(item, types)
		}
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			types[t] = struct{}{}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					types[s] = struct{}{}
				}
			}
		}
		if graph, ok := v["@graph"]; ok {
			collectJSONLDTypes(graph, types)
		}
	}
}

// visibleText returns the rendered text of the document body with block
// elements on separate lines, and the number of non-empty paragraphs.
func visibleText(doc *goquery.Document) (string, int) {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if _, skip := invisibleElements[n.Data]; skip {
				return
			}
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if _, block := blockElements[n.Data]; block {
				sb.WriteByte('\n')
			}
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	paragraphs := 0
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			paragraphs++
		}
	})

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = collapseSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), paragraphs
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

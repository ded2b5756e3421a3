// Package urlutil normalizes, resolves and classifies URLs for crawling.
package urlutil

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Normalize returns the canonical form of rawURL used for deduplication:
// the fragment is dropped, scheme and host are lowercased, default ports
// are removed and an empty path becomes "/".
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return normalizeURL(u), nil
}

func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)

	if (n.Scheme == "http" && strings.HasSuffix(n.Host, ":80")) ||
		(n.Scheme == "https" && strings.HasSuffix(n.Host, ":443")) {
		n.Host = n.Host[:strings.LastIndex(n.Host, ":")]
	}
	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

// Resolve resolves href against base and normalizes the result.
// It reports false for links that cannot be crawled: empty and
// fragment-only hrefs, and javascript:, mailto:, tel: and data: URLs.
func Resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return normalizeURL(resolved), true
}

// SameHost reports whether rawURL is on host (case-insensitive, port included).
func SameHost(host, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// SameSite reports whether both hosts share a registrable domain, so that
// www.example.co.uk and blog.example.co.uk are treated as one site.
func SameSite(hostA, hostB string) bool {
	a := strings.ToLower(stripPort(hostA))
	b := strings.ToLower(stripPort(hostB))
	if a == b {
		return true
	}
	da, errA := publicsuffix.EffectiveTLDPlusOne(a)
	db, errB := publicsuffix.EffectiveTLDPlusOne(b)
	if errA != nil || errB != nil {
		return false
	}
	return da == db
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}

// MatchPattern reports whether a URL path matches a glob pattern.
// "/admin/*" matches /admin and everything below it, "*.pdf" matches by
// extension, and other patterns use filepath.Match semantics.
func MatchPattern(pattern, urlPath string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(urlPath, prefix+"/") || urlPath == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(strings.ToLower(urlPath), strings.ToLower(strings.TrimPrefix(pattern, "*"))) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, path.Base(urlPath)); err == nil && matched {
			return true
		}
	}
	return false
}

// skipExtensions are file types that never contain crawlable HTML.
var skipExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".rar": {}, ".tar": {}, ".gz": {}, ".7z": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".webm": {},
	".css": {}, ".js": {}, ".json": {}, ".xml": {}, ".txt": {}, ".rss": {}, ".atom": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".exe": {}, ".dmg": {},
}

// skipPathPrefixes are application areas that are not public content.
var skipPathPrefixes = []string{
	"/admin", "/wp-admin", "/wp-login", "/login", "/logout", "/register",
	"/cart", "/checkout", "/account", "/my-account", "/cgi-bin",
}

// trackingParams mark URLs that are duplicates of a canonical page.
var trackingParams = []string{"utm_", "fbclid", "gclid", "msclkid", "mc_cid", "mc_eid"}

// IsAsset reports whether rawURL points to a non-HTML resource by extension.
func IsAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, skip := skipExtensions[strings.ToLower(path.Ext(u.Path))]
	return skip
}

// ShouldSkip reports whether rawURL should be left out of a crawl because
// it is an asset, a private application path or a tracking variant.
func ShouldSkip(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if IsAsset(rawURL) {
		return true
	}

	lowerPath := strings.ToLower(u.Path)
	for _, prefix := range skipPathPrefixes {
		if lowerPath == prefix || strings.HasPrefix(lowerPath, prefix+"/") {
			return true
		}
	}

	for key := range u.Query() {
		lowerKey := strings.ToLower(key)
		for _, tracking := range trackingParams {
			if strings.HasPrefix(lowerKey, tracking) {
				return true
			}
		}
	}
	return false
}

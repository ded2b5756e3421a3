package urlutil

import (
	"net/url"
	"testing"
)

// TestNormalize tests URL normalization for deduplication.
func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"adds root path", "https://example.test", "https://example.test/"},
		{"drops fragment", "https://example.test/a#section", "https://example.test/a"},
		{"lowercases scheme and host", "HTTPS://Example.TEST/Path", "https://example.test/Path"},
		{"drops default https port", "https://example.test:443/a", "https://example.test/a"},
		{"drops default http port", "http://example.test:80/a", "http://example.test/a"},
		{"keeps custom port", "http://example.test:8080/a", "http://example.test:8080/a"},
		{"keeps query", "https://example.test/a?b=c", "https://example.test/a?b=c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
		})
	}
}

// TestResolve tests link resolution against a page URL.
func TestResolve(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://example.test/dir/page.html")

	testCases := []struct {
		href     string
		expected string
		ok       bool
	}{
		{"/a", "https://example.test/a", true},
		{"b", "https://example.test/dir/b", true},
		{"../c#frag", "https://example.test/c", true},
		{"https://other.test", "https://other.test/", true},
		{"//cdn.test/x", "https://cdn.test/x", true},
		{"#top", "", false},
		{"", "", false},
		{"javascript:void(0)", "", false},
		{"MAILTO:me@example.test", "", false},
		{"tel:123", "", false},
		{"data:text/plain,hi", "", false},
		{"ftp://example.test/file", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.href, func(t *testing.T) {
			t.Parallel()
			got, ok := Resolve(base, tc.href)
			if ok != tc.ok || got != tc.expected {
				t.Errorf("Resolve(%q) = (%q, %v), expected (%q, %v)", tc.href, got, ok, tc.expected, tc.ok)
			}
		})
	}
}

// TestSameHostAndSite tests host and registrable-domain comparison.
func TestSameHostAndSite(t *testing.T) {
	t.Parallel()

	if !SameHost("Example.test", "https://example.TEST/a") {
		t.Error("expected case-insensitive host match")
	}
	if SameHost("example.test", "https://www.example.test/") {
		t.Error("subdomain is not the same host")
	}
	if !SameSite("www.example.co.uk", "blog.example.co.uk:8443") {
		t.Error("expected same registrable domain")
	}
	if SameSite("example.co.uk", "other.co.uk") {
		t.Error("different registrable domains must not match")
	}
}

// TestMatchPattern tests glob pattern matching.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		pattern string
		path    string
		match   bool
	}{
		{"/admin/*", "/admin", true},
		{"/admin/*", "/admin/users", true},
		{"/admin/*", "/administrator", false},
		{"*.pdf", "/docs/file.PDF", true},
		{"*.pdf", "/docs/file.html", false},
		{"/blog/?", "/blog/1", true},
		{"report-*", "/x/report-2024", true},
	}

	for _, tc := range testCases {
		if got := MatchPattern(tc.pattern, tc.path); got != tc.match {
			t.Errorf("MatchPattern(%q, %q) = %v, expected %v", tc.pattern, tc.path, got, tc.match)
		}
	}
}

// TestShouldSkip tests asset, private path and tracking URL filtering.
func TestShouldSkip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		url  string
		skip bool
	}{
		{"https://example.test/", false},
		{"https://example.test/blog/post", false},
		{"https://example.test/file.pdf", true},
		{"https://example.test/img/logo.PNG", true},
		{"https://example.test/wp-admin/edit.php", true},
		{"https://example.test/login", true},
		{"https://example.test/loginhelp", false},
		{"https://example.test/a?utm_source=x", true},
		{"https://example.test/a?gclid=1", true},
		{"https://example.test/a?page=2", false},
	}

	for _, tc := range testCases {
		if got := ShouldSkip(tc.url); got != tc.skip {
			t.Errorf("ShouldSkip(%s) = %v, expected %v", tc.url, got, tc.skip)
		}
	}
}

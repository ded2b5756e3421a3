package model

import "testing"

// TestPageResultComputeHash tests the content hash helper.
func TestPageResultComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("hash of content", func(t *testing.T) {
		t.Parallel()
		p := &PageResult{}
		p.ComputeHash([]byte("hello"))
		want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
		if p.ContentHash != want {
			t.Errorf("got %s, expected %s", p.ContentHash, want)
		}
	})

	t.Run("empty body clears hash", func(t *testing.T) {
		t.Parallel()
		p := &PageResult{ContentHash: "stale"}
		p.ComputeHash(nil)
		if p.ContentHash != "" {
			t.Errorf("expected empty hash, got %q", p.ContentHash)
		}
	})
}

// TestPageResultHelpers tests the small accessor methods.
func TestPageResultHelpers(t *testing.T) {
	t.Parallel()

	p := &PageResult{
		URL:      "HTTPS://example.test/",
		Headings: map[string][]string{"h1": {"One", "Two"}},
		Issues:   []Issue{NewIssue(IssueMultipleH1, "2 H1 headings")},
		Keywords: []Keyword{{Term: "seo", Count: 4}, {Term: "audit", Count: 2}},
	}

	t.Run("IsHTTPS is case-insensitive", func(t *testing.T) {
		t.Parallel()
		if !p.IsHTTPS() {
			t.Error("expected https page")
		}
	})

	t.Run("IsHTTPS follows the redirect target", func(t *testing.T) {
		t.Parallel()
		upgraded := &PageResult{URL: "http://example.test/", FinalURL: "https://example.test/"}
		if !upgraded.IsHTTPS() {
			t.Error("page redirected to https must count as https")
		}
		downgraded := &PageResult{URL: "https://example.test/", FinalURL: "http://example.test/"}
		if downgraded.IsHTTPS() {
			t.Error("page redirected to http must not count as https")
		}
	})

	t.Run("H1Count", func(t *testing.T) {
		t.Parallel()
		if p.H1Count() != 2 {
			t.Errorf("expected 2, got %d", p.H1Count())
		}
	})

	t.Run("HasIssue", func(t *testing.T) {
		t.Parallel()
		if !p.HasIssue(IssueMultipleH1) {
			t.Error("expected multiple_h1 issue")
		}
		if p.HasIssue(IssueMissingH1) {
			t.Error("did not expect missing_h1 issue")
		}
	})

	t.Run("KeywordSet", func(t *testing.T) {
		t.Parallel()
		set := p.KeywordSet()
		if set["seo"] != 4 || set["audit"] != 2 || len(set) != 2 {
			t.Errorf("unexpected keyword set %v", set)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		t.Parallel()
		if p.Failed() {
			t.Error("page without error should not be failed")
		}
		failed := &PageResult{Error: &PageError{Kind: PageErrorHTTP, Message: "500", StatusCode: 500}}
		if !failed.Failed() {
			t.Error("page with error should be failed")
		}
		if failed.Error.Error() != "http: 500" {
			t.Errorf("unexpected error text %q", failed.Error.Error())
		}
	})
}

// TestStructuredDataHasSchema tests schema detection across formats.
func TestStructuredDataHasSchema(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		data     StructuredData
		expected bool
	}{
		{"none", StructuredData{}, false},
		{"open graph only", StructuredData{OpenGraph: true}, false},
		{"json-ld", StructuredData{JSONLD: true}, true},
		{"microdata", StructuredData{Microdata: true}, true},
		{"rdfa", StructuredData{RDFa: true}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.data.HasSchema(); got != tc.expected {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}
}

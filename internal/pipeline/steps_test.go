package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/seoscan/internal/analyzer"
	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/export"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/recommend"
)

const testUserAgent = "seoscan-test"

// testSite serves static pages plus optional robots.txt and sitemap.xml.
// Sitemap entries are paths resolved against the request host.
type testSite struct {
	mu      sync.Mutex
	hits    map[string]int
	pages   map[string]string
	robots  string
	sitemap []string
}

func newTestSite(pages map[string]string) *testSite {
	return &testSite{hits: make(map[string]int), pages: pages}
}

func (s *testSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/robots.txt" && s.robots != "":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, s.robots)
		return
	case r.URL.Path == "/sitemap.xml" && len(s.sitemap) > 0:
		w.Header().Set("Content-Type", "application/xml")
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for _, path := range s.sitemap {
			fmt.Fprintf(&sb, "<url><loc>http://%s%s</loc></url>", r.Host, path)
		}
		sb.WriteString("</urlset>")
		_, _ = io.WriteString(w, sb.String())
		return
	}

	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, body)
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func htmlPage(title string, links ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<html lang="en"><head><title>%s</title>`, title)
	sb.WriteString(`<meta name="description" content="A page used to exercise the audit pipeline end to end.">`)
	sb.WriteString(`</head><body><h1>`)
	sb.WriteString(title)
	sb.WriteString(`</h1><p>Gardening tools and gardening tips for small gardens and balconies.</p>`)
	for _, link := range links {
		fmt.Fprintf(&sb, `<a href="%s">link</a>`, link)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func startSite(t *testing.T, s *testSite) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	return server
}

func testServices(t *testing.T) Services {
	t.Helper()
	client, err := fetcher.NewHTTPClient(
		fetcher.WithUserAgent(testUserAgent),
		fetcher.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return Services{
		Fetcher:  client,
		Analyzer: analyzer.New(analyzer.WithLogger(quietLogger())),
		Recorder: metrics.NewRecorder(),
		Logger:   quietLogger(),
	}
}

func testConfig() DefaultPipelineConfig {
	return DefaultPipelineConfig{
		MaxDepth:     2,
		MaxPages:     20,
		Workers:      2,
		SitemapDepth: 2,
		MaxURLs:      100,
		UserAgent:    testUserAgent,
	}
}

type memStore struct {
	mu      sync.Mutex
	reports []*model.SiteReport
	err     error
}

func (m *memStore) SaveReport(_ context.Context, report *model.SiteReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, report)
	return nil
}

type fakeExporter struct {
	calls int
	err   error
}

func (f *fakeExporter) Export(_ context.Context, report *model.SiteReport) (export.Result, error) {
	f.calls++
	if f.err != nil {
		return export.Result{}, f.err
	}
	return export.Result{Indexed: len(report.Pages)}, nil
}

type failingRecommender struct{}

func (failingRecommender) Recommend(context.Context, recommend.Summary) (string, error) {
	return "", errors.New("model unavailable")
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("full audit with every step", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{
			"/":  htmlPage("Home", "/a", "/b"),
			"/a": htmlPage("A", "/"),
			"/b": htmlPage("B", "/a"),
		})
		server := startSite(t, site)
		competitor := startSite(t, newTestSite(map[string]string{"/": htmlPage("Rival")}))

		svc := testServices(t)
		store := &memStore{}
		exporter := &fakeExporter{}
		svc.Store = store
		svc.Exporter = exporter

		cfg := testConfig()
		cfg.Competitors = []string{competitor.URL + "/"}
		p := DefaultPipeline(svc, cfg)

		want := []string{"crawl", "aggregate", "compare", "recommend", "persist", "export"}
		if got := p.StepNames(); !slices.Equal(got, want) {
			t.Fatalf("StepNames() = %v, want %v", got, want)
		}

		audit := model.NewAudit(server.URL + "/")
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		report := audit.Report
		if report == nil {
			t.Fatal("report is nil")
		}
		if report.TotalPages != 3 {
			t.Errorf("TotalPages = %d, want 3", report.TotalPages)
		}
		if report.ID == "" || report.GeneratedAt.IsZero() {
			t.Error("report is not stamped")
		}
		if report.Source != model.SourceCrawl {
			t.Errorf("Source = %q, want %q", report.Source, model.SourceCrawl)
		}
		if report.RecommendationsSource != recommend.SourceRules {
			t.Errorf("RecommendationsSource = %q, want %q", report.RecommendationsSource, recommend.SourceRules)
		}
		if audit.Comparison == nil {
			t.Error("comparison is nil")
		}
		if len(store.reports) != 1 || store.reports[0] != report {
			t.Error("report was not persisted")
		}
		if exporter.calls != 1 {
			t.Errorf("exporter called %d times, want 1", exporter.calls)
		}
	})

	t.Run("explicit URL list", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{
			"/":  htmlPage("Home", "/a"),
			"/a": htmlPage("A"),
			"/b": htmlPage("B"),
		}))

		cfg := testConfig()
		cfg.URLs = []string{server.URL + "/b", server.URL + "/missing"}
		cfg.SkipRecommendations = true
		p := DefaultPipeline(testServices(t), cfg)

		want := []string{"list", "aggregate"}
		if got := p.StepNames(); !slices.Equal(got, want) {
			t.Fatalf("StepNames() = %v, want %v", got, want)
		}

		audit := model.NewAudit(server.URL + "/")
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if audit.Report.TotalPages != 2 || audit.Report.Failed != 1 {
			t.Errorf("TotalPages = %d, Failed = %d, want 2 and 1", audit.Report.TotalPages, audit.Report.Failed)
		}
		if audit.Report.Source != model.SourceList {
			t.Errorf("Source = %q, want %q", audit.Report.Source, model.SourceList)
		}
	})

	t.Run("standalone pages ignore robots.txt", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{"/private": htmlPage("Private")})
		site.robots = "User-agent: *\nDisallow: /\n"
		server := startSite(t, site)

		cfg := testConfig()
		cfg.URLs = []string{server.URL + "/private", server.URL + "/private"}
		cfg.Standalone = true
		cfg.SkipRecommendations = true
		p := DefaultPipeline(testServices(t), cfg)

		if got := p.StepNames(); !slices.Equal(got, []string{"pages", "aggregate"}) {
			t.Fatalf("StepNames() = %v", got)
		}
		audit := model.NewAudit(server.URL + "/private")
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if audit.Report.Successful != 2 {
			t.Errorf("Successful = %d, want 2", audit.Report.Successful)
		}
		if site.hitCount("/robots.txt") != 0 {
			t.Error("robots.txt was fetched for standalone pages")
		}
	})

	t.Run("unreachable seed fails the audit", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{}))
		p := DefaultPipeline(testServices(t), testConfig())

		audit := model.NewAudit(server.URL + "/")
		if err := p.Execute(context.Background(), audit); err == nil {
			t.Fatal("Execute() error = nil, want seed error")
		}
		if audit.Report != nil {
			t.Error("report built for an unreachable seed")
		}
	})

	t.Run("cancelled audit still aggregates", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{"/": htmlPage("Home")}))
		p := DefaultPipeline(testServices(t), testConfig())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		audit := model.NewAudit(server.URL + "/")
		err := p.Execute(ctx, audit)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() error = %v, want context.Canceled", err)
		}
		if !audit.TimedOut {
			t.Error("TimedOut = false")
		}
		if audit.Report == nil {
			t.Fatal("report is nil after cancellation")
		}
		if audit.Report.TotalPages != 0 {
			t.Errorf("TotalPages = %d, want 0", audit.Report.TotalPages)
		}
	})
}

func TestSitemapStep(t *testing.T) {
	t.Parallel()

	t.Run("audits sitemap URLs", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{
			"/":  htmlPage("Home"),
			"/a": htmlPage("A"),
			"/b": htmlPage("B"),
		})
		site.sitemap = []string{"/a", "/b"}
		server := startSite(t, site)

		cfg := testConfig()
		cfg.UseSitemap = true
		p := DefaultPipeline(testServices(t), cfg)

		audit := model.NewAudit(server.URL + "/")
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if audit.Source != model.SourceSitemap {
			t.Errorf("Source = %q, want %q", audit.Source, model.SourceSitemap)
		}
		if len(audit.SitemapURLs) != 2 {
			t.Errorf("SitemapURLs = %v, want 2 URLs", audit.SitemapURLs)
		}
		if audit.Report.TotalPages != 2 {
			t.Errorf("TotalPages = %d, want 2", audit.Report.TotalPages)
		}
		if site.hitCount("/") != 0 {
			t.Error("seed was fetched although it is not listed in the sitemap")
		}
	})

	t.Run("falls back to crawling", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{
			"/":  htmlPage("Home", "/a"),
			"/a": htmlPage("A"),
		}))

		cfg := testConfig()
		cfg.UseSitemap = true
		p := DefaultPipeline(testServices(t), cfg)

		audit := model.NewAudit(server.URL + "/")
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if audit.Source != model.SourceCrawl {
			t.Errorf("Source = %q, want %q", audit.Source, model.SourceCrawl)
		}
		if audit.Report.TotalPages != 2 {
			t.Errorf("TotalPages = %d, want 2", audit.Report.TotalPages)
		}
	})

	t.Run("no fallback", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{"/": htmlPage("Home")}))
		svc := testServices(t)
		policy := NewRobotsPolicy(svc.Fetcher, testUserAgent, false, nil, quietLogger())
		step := NewSitemapStep(svc.Fetcher, svc.Analyzer, policy, nil, WithSitemapLogger(quietLogger()))

		err := step.Do(context.Background(), model.NewAudit(server.URL+"/"))
		if !errors.Is(err, ErrNoSitemapURLs) {
			t.Errorf("Do() error = %v, want %v", err, ErrNoSitemapURLs)
		}
	})
}

func TestRobotsPolicy(t *testing.T) {
	t.Parallel()

	t.Run("rules are fetched once per host", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{"/": htmlPage("Home")})
		site.robots = "User-agent: *\nDisallow: /private\n"
		server := startSite(t, site)

		svc := testServices(t)
		policy := NewRobotsPolicy(svc.Fetcher, testUserAgent, false, nil, quietLogger())
		first := policy.Rules(context.Background(), server.URL+"/")
		second := policy.Rules(context.Background(), server.URL+"/other")

		if first != second {
			t.Error("rules were not cached")
		}
		if site.hitCount("/robots.txt") != 1 {
			t.Errorf("robots.txt fetched %d times, want 1", site.hitCount("/robots.txt"))
		}
		if first.Allowed(server.URL + "/private/page") {
			t.Error("disallowed path is allowed")
		}
	})

	t.Run("ignore never fetches robots.txt", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{"/": htmlPage("Home")})
		site.robots = "User-agent: *\nDisallow: /\n"
		server := startSite(t, site)

		svc := testServices(t)
		policy := NewRobotsPolicy(svc.Fetcher, testUserAgent, true, nil, quietLogger())
		rules := policy.Rules(context.Background(), server.URL+"/")

		if !rules.Allowed(server.URL + "/") {
			t.Error("ignored robots.txt still disallows")
		}
		if site.hitCount("/robots.txt") != 0 {
			t.Error("robots.txt was fetched")
		}
	})

	t.Run("crawl delay slows the host", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{"/": htmlPage("Home")})
		site.robots = "User-agent: *\nCrawl-delay: 5\n"
		server := startSite(t, site)

		svc := testServices(t)
		limiter := fetcher.NewHostLimiter(0)
		policy := NewRobotsPolicy(svc.Fetcher, testUserAgent, false, limiter, quietLogger())
		policy.Rules(context.Background(), server.URL+"/")

		host := strings.TrimPrefix(server.URL, "http://")
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if err := limiter.Wait(ctx, host); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}
		if err := limiter.Wait(ctx, host); err == nil {
			t.Error("second Wait() did not honour the crawl delay")
		}
	})

	t.Run("crawl applies the rules of the redirect host", func(t *testing.T) {
		t.Parallel()

		target := newTestSite(map[string]string{
			"/":        htmlPage("Home", "/private", "/public"),
			"/private": htmlPage("Private"),
			"/public":  htmlPage("Public"),
		})
		target.robots = "User-agent: *\nDisallow: /private\n"
		targetServer := startSite(t, target)

		server := httptest.NewServer(http.RedirectHandler(targetServer.URL+"/", http.StatusMovedPermanently))
		t.Cleanup(server.Close)

		svc := testServices(t)
		policy := NewRobotsPolicy(svc.Fetcher, testUserAgent, false, nil, quietLogger())
		step := NewCrawlStep(svc.Fetcher, svc.Analyzer, policy, crawler.WithLogger(quietLogger()))
		if err := step.Do(context.Background(), model.NewAudit(server.URL+"/")); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if target.hitCount("/private") != 0 {
			t.Error("path disallowed by the redirect host was fetched")
		}
		if target.hitCount("/public") != 1 {
			t.Errorf("/public fetched %d times, want 1", target.hitCount("/public"))
		}
		if target.hitCount("/robots.txt") != 1 {
			t.Errorf("robots.txt fetched %d times, want 1", target.hitCount("/robots.txt"))
		}
	})
}

func TestCompareStep(t *testing.T) {
	t.Parallel()

	t.Run("insufficient data is not fatal", func(t *testing.T) {
		t.Parallel()

		server := startSite(t, newTestSite(map[string]string{"/": htmlPage("Home")}))
		rival := startSite(t, newTestSite(map[string]string{}))

		svc := testServices(t)
		step := NewCompareStep(svc.Fetcher, svc.Analyzer, []string{rival.URL + "/"}, 2, quietLogger())

		audit := model.NewAudit(server.URL + "/")
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if audit.Comparison != nil {
			t.Error("comparison set without competitor data")
		}
	})

	t.Run("fetches the target when it was not collected", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(map[string]string{"/": htmlPage("Home")})
		server := startSite(t, site)
		rival := startSite(t, newTestSite(map[string]string{"/": htmlPage("Rival")}))

		svc := testServices(t)
		step := NewCompareStep(svc.Fetcher, svc.Analyzer, []string{rival.URL + "/"}, 2, quietLogger())

		audit := model.NewAudit(server.URL + "/")
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if audit.Comparison == nil {
			t.Fatal("comparison is nil")
		}
		if site.hitCount("/") != 1 {
			t.Errorf("target fetched %d times, want 1", site.hitCount("/"))
		}
	})
}

func TestRecommendStep(t *testing.T) {
	t.Parallel()

	t.Run("language model failure falls back to rules", func(t *testing.T) {
		t.Parallel()

		step := NewRecommendStep(failingRecommender{}, metrics.NewRecorder(), quietLogger())
		audit := model.NewAudit("https://example.com")
		audit.Report = model.NewSiteReport(audit.Target, model.SourceCrawl)

		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if audit.Report.RecommendationsSource != recommend.SourceRules {
			t.Errorf("RecommendationsSource = %q", audit.Report.RecommendationsSource)
		}
		if audit.Report.RecommendationsError == "" {
			t.Error("RecommendationsError is empty")
		}
		if audit.Report.Recommendations == "" {
			t.Error("Recommendations is empty")
		}
	})

	t.Run("requires a report", func(t *testing.T) {
		t.Parallel()

		step := NewRecommendStep(nil, nil, quietLogger())
		if err := step.Do(context.Background(), model.NewAudit("https://example.com")); !errors.Is(err, ErrNoReport) {
			t.Errorf("Do() error = %v, want %v", err, ErrNoReport)
		}
	})
}

func TestPersistAndExportSteps(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("disk full")
	exportErr := errors.New("cluster down")

	tests := []struct {
		name    string
		step    Step
		report  bool
		wantErr error
	}{
		{name: "persist without report", step: NewPersistStep(&memStore{}), wantErr: ErrNoReport},
		{name: "persist error", step: NewPersistStep(&memStore{err: saveErr}), report: true, wantErr: saveErr},
		{name: "persist", step: NewPersistStep(&memStore{}), report: true},
		{name: "export without report", step: NewExportStep(&fakeExporter{}), wantErr: ErrNoReport},
		{name: "export error", step: NewExportStep(&fakeExporter{err: exportErr}), report: true, wantErr: exportErr},
		{name: "export", step: NewExportStep(&fakeExporter{}), report: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			audit := model.NewAudit("https://example.com")
			if tt.report {
				audit.Report = model.NewSiteReport(audit.Target, model.SourceCrawl)
				audit.Report.Stamp()
			}
			err := tt.step.Do(context.Background(), audit)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(50 * time.Millisecond)
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, htmlPage(r.URL.Path))
	}))
	t.Cleanup(server.Close)

	svc := testServices(t)
	urls := []string{server.URL + "/slow", server.URL + "/fast", server.URL + "/missing"}
	pages := FetchPages(context.Background(), svc.Fetcher, svc.Analyzer, urls, 3)

	if len(pages) != len(urls) {
		t.Fatalf("got %d pages, want %d", len(pages), len(urls))
	}
	for i, p := range pages {
		if p.URL != urls[i] {
			t.Errorf("pages[%d].URL = %q, want %q", i, p.URL, urls[i])
		}
	}
	if !pages[2].Failed() {
		t.Error("missing page is not marked failed")
	}
	if pages[0].Failed() || pages[1].Failed() {
		t.Error("healthy page marked failed")
	}
}

package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/seoscan/internal/model"
)

func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newReport(id, target string, at time.Time, pages ...model.PageResult) *model.SiteReport {
	r := model.NewSiteReport(target, model.SourceCrawl)
	r.ID = id
	r.GeneratedAt = at
	r.Pages = pages
	r.TotalPages = len(pages)
	for _, p := range pages {
		if p.Failed() {
			r.Failed++
		} else {
			r.Successful++
		}
	}
	return r
}

func page(u string, score int, hash string) model.PageResult {
	return model.PageResult{
		URL:         u,
		StatusCode:  200,
		Score:       score,
		FetchTimeMS: 120,
		ContentHash: hash,
		Content:     model.ContentMetrics{WordCount: 400},
		Issues: []model.Issue{
			model.NewIssue(model.IssueMissingTitle, "no title"),
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "data")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if db.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
		if _, err := os.Stat(db.Path()); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("missing database without create fails", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})
}

func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	report := newReport("r1", "https://Example.com/", at,
		page("https://example.com/", 80, "aaa"),
		page("https://example.com/about", 60, "bbb"),
	)
	report.Averages.Score = 70

	if err := db.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	got, err := db.GetReport(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetReport() returned nil")
	}
	if got.Target != report.Target || len(got.Pages) != 2 {
		t.Errorf("GetReport() = %+v", got)
	}
	if !got.GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, at)
	}
	if got.Pages[0].Issues[0].Severity != model.SeverityCritical {
		t.Errorf("issue severity = %v, want critical", got.Pages[0].Issues[0].Severity)
	}

	missing, err := db.GetReport(ctx, "nope")
	if err != nil {
		t.Fatalf("GetReport(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetReport(missing) = %+v, want nil", missing)
	}
}

func TestSaveReportReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	at := time.Now().UTC()

	first := newReport("r1", "https://example.com/", at,
		page("https://example.com/", 50, "aaa"),
		page("https://example.com/old", 50, "bbb"),
	)
	if err := db.SaveReport(ctx, first); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	second := newReport("r1", "https://example.com/", at, page("https://example.com/", 90, "ccc"))
	if err := db.SaveReport(ctx, second); err != nil {
		t.Fatalf("SaveReport() second error = %v", err)
	}

	old, err := db.PageHistory(ctx, "https://example.com/old")
	if err != nil {
		t.Fatalf("PageHistory() error = %v", err)
	}
	if len(old) != 0 {
		t.Errorf("stale page rows kept: %+v", old)
	}
	snaps, err := db.PageHistory(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("PageHistory() error = %v", err)
	}
	if len(snaps) != 1 || snaps[0].Score != 90 {
		t.Errorf("PageHistory() = %+v, want one snapshot with score 90", snaps)
	}
}

func TestSaveReportWithoutID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	report := model.NewSiteReport("https://example.com/", model.SourceCrawl)
	if err := db.SaveReport(t.Context(), report); err != ErrReportWithoutID {
		t.Errorf("SaveReport() error = %v, want ErrReportWithoutID", err)
	}
}

func TestHistoryAndLatest(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		r := newReport(id, "https://example.com/", base.Add(time.Duration(i)*24*time.Hour),
			page("https://example.com/", 50+i*10, id))
		r.Averages.Score = float64(50 + i*10)
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport(%s) error = %v", id, err)
		}
	}
	other := newReport("z", "https://other.org/", base, page("https://other.org/", 10, "z"))
	if err := db.SaveReport(ctx, other); err != nil {
		t.Fatalf("SaveReport(other) error = %v", err)
	}

	latest, err := db.LatestReport(ctx, "EXAMPLE.com")
	if err != nil {
		t.Fatalf("LatestReport() error = %v", err)
	}
	if latest == nil || latest.ID != "c" {
		t.Fatalf("LatestReport() = %+v, want report c", latest)
	}

	history, err := db.History(ctx, "example.com", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() len = %d, want 3", len(history))
	}
	wantOrder := []string{"c", "b", "a"}
	for i, meta := range history {
		if meta.ID != wantOrder[i] {
			t.Errorf("History()[%d].ID = %s, want %s", i, meta.ID, wantOrder[i])
		}
	}
	if history[0].AverageScore != 70 {
		t.Errorf("AverageScore = %v, want 70", history[0].AverageScore)
	}
	if history[0].SeveritySummary["critical"] != 1 {
		t.Errorf("SeveritySummary = %v, want critical=1", history[0].SeveritySummary)
	}
	if history[0].Source != model.SourceCrawl {
		t.Errorf("Source = %q", history[0].Source)
	}

	limited, err := db.History(ctx, "example.com", 2)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("History(limit 2) len = %d", len(limited))
	}

	sites, err := db.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites() error = %v", err)
	}
	if len(sites) != 2 || sites[0] != "example.com" || sites[1] != "other.org" {
		t.Errorf("ListSites() = %v", sites)
	}

	none, err := db.LatestReport(ctx, "unknown.net")
	if err != nil || none != nil {
		t.Errorf("LatestReport(unknown) = %v, %v", none, err)
	}
}

func TestPageHistoryAndChangedPages(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	failed := model.PageResult{
		URL:   "https://example.com/broken",
		Error: &model.PageError{Kind: model.PageErrorHTTP, Message: "404", StatusCode: 404},
	}
	older := newReport("old", "https://example.com/", base,
		page("https://example.com/", 60, "h1"),
		page("https://example.com/blog", 70, "h2"),
		page("https://example.com/gone", 70, "h3"),
	)
	newer := newReport("new", "https://example.com/", base.Add(time.Hour),
		page("https://example.com/", 65, "h1"),
		page("https://example.com/blog", 75, "h2-changed"),
		failed,
	)
	for _, r := range []*model.SiteReport{older, newer} {
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport(%s) error = %v", r.ID, err)
		}
	}

	snaps, err := db.PageHistory(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("PageHistory() error = %v", err)
	}
	if len(snaps) != 2 || snaps[0].ReportID != "old" || snaps[1].Score != 65 {
		t.Errorf("PageHistory() = %+v", snaps)
	}
	if snaps[0].WordCount != 400 || snaps[0].FetchTimeMS != 120 {
		t.Errorf("snapshot metrics = %+v", snaps[0])
	}

	broken, err := db.PageHistory(ctx, "https://example.com/broken")
	if err != nil {
		t.Fatalf("PageHistory(broken) error = %v", err)
	}
	if len(broken) != 1 || broken[0].ErrorKind != "http" {
		t.Errorf("PageHistory(broken) = %+v", broken)
	}

	changed, err := db.ChangedPages(ctx, "old", "new")
	if err != nil {
		t.Fatalf("ChangedPages() error = %v", err)
	}
	if len(changed) != 1 || changed[0] != "https://example.com/blog" {
		t.Errorf("ChangedPages() = %v, want [https://example.com/blog]", changed)
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/path", "example.com"},
		{"http://example.com:8080/", "example.com:8080"},
		{"example.com", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := HostOf(tt.in); got != tt.want {
				t.Errorf("HostOf(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		isZero bool
	}{
		{"2025-01-02T03:04:05.123456789Z", false},
		{"2025-01-02T03:04:05Z", false},
		{"2025-01-02 03:04:05", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); got.IsZero() != tt.isZero {
				t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
			}
		})
	}
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoscan/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "seoscan.db"

// ErrReportWithoutID is returned when saving a report that was never stamped.
var ErrReportWithoutID = errors.New("report has no ID")

// HistoryDB stores site reports and their pages.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run an audit with --save first)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS site_reports (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		host TEXT NOT NULL,
		source TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		successful INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		avg_score REAL NOT NULL,
		severity_summary TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_host ON site_reports(host);
	CREATE INDEX IF NOT EXISTS idx_reports_generated ON site_reports(generated_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL REFERENCES site_reports(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		score INTEGER,
		word_count INTEGER,
		fetch_time_ms INTEGER,
		content_hash TEXT,
		error_kind TEXT,
		UNIQUE(report_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// HostOf returns the lowercase host of a target URL, or target itself
// when it does not parse.
func HostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return strings.ToLower(target)
	}
	return strings.ToLower(u.Host)
}

// SaveReport stores report and its pages in one transaction.
// Saving the same report ID again replaces the earlier copy.
func (h *HistoryDB) SaveReport(ctx context.Context, report *model.SiteReport) (err error) {
	if report.ID == "" {
		return ErrReportWithoutID
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summary := make(map[string]int)
	for severity, n := range report.CountBySeverity() {
		summary[strings.ToLower(severity.String())] = n
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize severity summary: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE report_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to replace pages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO site_reports (id, target, host, source, generated_at, total_pages, successful, failed, avg_score, severity_summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		target = excluded.target,
		host = excluded.host,
		source = excluded.source,
		generated_at = excluded.generated_at,
		total_pages = excluded.total_pages,
		successful = excluded.successful,
		failed = excluded.failed,
		avg_score = excluded.avg_score,
		severity_summary = excluded.severity_summary,
		report_json = excluded.report_json
	`,
		report.ID,
		report.Target,
		HostOf(report.Target),
		string(report.Source),
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		report.TotalPages,
		report.Successful,
		report.Failed,
		report.Averages.Score,
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (report_id, url, status_code, score, word_count, fetch_time_ms, content_hash, error_kind)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(report_id, url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pages {
		errorKind := ""
		if p.Error != nil {
			errorKind = string(p.Error.Kind)
		}
		if _, err = stmt.ExecContext(ctx,
			report.ID, p.URL, p.StatusCode, p.Score, p.Content.WordCount, p.FetchTimeMS, p.ContentHash, errorKind,
		); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// GetReport returns the report with the given ID, or nil if none exists.
func (h *HistoryDB) GetReport(ctx context.Context, id string) (*model.SiteReport, error) {
	return h.queryReport(ctx, `SELECT report_json FROM site_reports WHERE id = ?`, id)
}

// LatestReport returns the most recent report for host, or nil.
func (h *HistoryDB) LatestReport(ctx context.Context, host string) (*model.SiteReport, error) {
	return h.queryReport(ctx, `
	SELECT report_json FROM site_reports
	WHERE host = ?
	ORDER BY generated_at DESC
	LIMIT 1
	`, strings.ToLower(host))
}

func (h *HistoryDB) queryReport(ctx context.Context, query string, arg any) (*model.SiteReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.SiteReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListSites returns every audited host, sorted.
func (h *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT host FROM site_reports ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// ReportMetadata summarises a stored report without decoding it.
type ReportMetadata struct {
	ID           string
	Target       string
	Source       model.Source
	GeneratedAt  time.Time
	TotalPages   int
	Successful   int
	Failed       int
	AverageScore float64

	// SeveritySummary counts issues by lowercase severity name.
	SeveritySummary map[string]int
}

// History returns report metadata for host, newest first. A limit of 0
// returns every report.
func (h *HistoryDB) History(ctx context.Context, host string, limit int) ([]ReportMetadata, error) {
	query := `
	SELECT id, target, source, generated_at, total_pages, successful, failed, avg_score, severity_summary
	FROM site_reports
	WHERE host = ?
	ORDER BY generated_at DESC
	`
	args := []any{strings.ToLower(host)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var source, generatedAt string
		var summaryJSON sql.NullString
		if err := rows.Scan(&meta.ID, &meta.Target, &source, &generatedAt,
			&meta.TotalPages, &meta.Successful, &meta.Failed, &meta.AverageScore, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Source = model.Source(source)
		meta.GeneratedAt = parseTimestamp(generatedAt)
		meta.SeveritySummary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.SeveritySummary)
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// PageSnapshot is one stored observation of a URL.
type PageSnapshot struct {
	ReportID    string
	GeneratedAt time.Time
	StatusCode  int
	Score       int
	WordCount   int
	FetchTimeMS int64
	ContentHash string
	ErrorKind   string
}

// PageHistory returns the stored observations of pageURL, oldest first.
func (h *HistoryDB) PageHistory(ctx context.Context, pageURL string) ([]PageSnapshot, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT p.report_id, r.generated_at, p.status_code, p.score, p.word_count, p.fetch_time_ms, p.content_hash, p.error_kind
	FROM pages p
	JOIN site_reports r ON r.id = p.report_id
	WHERE p.url = ?
	ORDER BY r.generated_at ASC
	`, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	var snapshots []PageSnapshot
	for rows.Next() {
		var s PageSnapshot
		var generatedAt string
		if err := rows.Scan(&s.ReportID, &generatedAt, &s.StatusCode, &s.Score,
			&s.WordCount, &s.FetchTimeMS, &s.ContentHash, &s.ErrorKind); err != nil {
			return nil, fmt.Errorf("failed to scan page snapshot: %w", err)
		}
		s.GeneratedAt = parseTimestamp(generatedAt)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// ChangedPages returns the URLs present in both reports whose content
// hash differs, sorted.
func (h *HistoryDB) ChangedPages(ctx context.Context, olderID, newerID string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT n.url
	FROM pages n
	JOIN pages o ON o.url = n.url AND o.report_id = ?
	WHERE n.report_id = ?
	  AND n.content_hash != ''
	  AND o.content_hash != ''
	  AND n.content_hash != o.content_hash
	ORDER BY n.url
	`, olderID, newerID)
	if err != nil {
		return nil, fmt.Errorf("failed to diff reports: %w", err)
	}
	defer rows.Close()

	var changed []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		changed = append(changed, u)
	}
	return changed, rows.Err()
}

// timestampFormats are tried in order when reading stored timestamps.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/database"
)

// errNoHistory is returned when fewer reports exist than an operation needs.
var errNoHistory = errors.New("not enough audit history")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored audit history",
		Long: `History reads the audit history database written by crawl and analyze.

Without arguments it lists every audited site. With a URL it lists the stored
reports of that site, newest first.

Examples:
  # List audited sites
  seoscan history

  # List reports of a site
  seoscan history https://example.com

  # Pages whose content changed between the last two audits
  seoscan history --changed https://example.com

  # Score and status of one page over time
  seoscan history --page https://example.com/pricing

  # Re-render a stored report as HTML
  seoscan history --show 3f1c... -f html -o report.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of reports to list (0 = all)")
	cmd.Flags().Bool("changed", false, "List pages whose content changed between the last two audits")
	cmd.Flags().String("page", "", "Show the history of a single page URL")
	cmd.Flags().String("show", "", "Render the stored report with this ID")
	cmd.Flags().Bool("json", false, "Print listings as JSON")
	cmd.Flags().String("db-dir", "", "Directory of the history database (default: XDG data directory)")
	addOutputFlags(cmd)

	return cmd
}

// historyFlags are the parsed history command flags.
type historyFlags struct {
	limit   int
	changed bool
	page    string
	show    string
	json    bool
}

func parseHistoryFlags(cmd *cobra.Command) (historyFlags, error) {
	var hf historyFlags
	var err error
	if hf.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return hf, err
	}
	if hf.changed, err = cmd.Flags().GetBool("changed"); err != nil {
		return hf, err
	}
	if hf.page, err = cmd.Flags().GetString("page"); err != nil {
		return hf, err
	}
	if hf.show, err = cmd.Flags().GetString("show"); err != nil {
		return hf, err
	}
	if hf.json, err = cmd.Flags().GetBool("json"); err != nil {
		return hf, err
	}
	return hf, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	hf, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}
	// Validate arguments before opening the database.
	if hf.changed && len(args) == 0 {
		return errors.New("--changed requires a site URL")
	}
	if len(args) == 1 {
		if err := config.ValidateURL(args[0]); err != nil {
			return err
		}
	}

	cfg, opts, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if _, err := setupLogger(cmd, cfg); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case hf.show != "":
		return showReport(ctx, cmd, db, cfg, opts, hf.show)
	case hf.page != "":
		return listPageHistory(ctx, out, db, hf.page, hf.json)
	case hf.changed:
		return listChangedPages(ctx, out, db, args[0], hf.json)
	case len(args) == 1:
		return listReports(ctx, out, db, args[0], hf.limit, hf.json)
	default:
		return listSites(ctx, out, db, hf.json)
	}
}

func listSites(ctx context.Context, out io.Writer, db *database.HistoryDB, asJSON bool) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, sites)
	}
	if len(sites) == 0 {
		fmt.Fprintln(out, "No audits stored yet.")
		return nil
	}
	for _, site := range sites {
		fmt.Fprintln(out, site)
	}
	return nil
}

func listReports(ctx context.Context, out io.Writer, db *database.HistoryDB, target string, limit int, asJSON bool) error {
	host := database.HostOf(target)
	history, err := db.History(ctx, host, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, history)
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No reports stored for %s.\n", host)
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, m := range history {
		rows = append(rows, []string{
			m.ID,
			m.GeneratedAt.Local().Format(time.DateTime),
			string(m.Source),
			strconv.Itoa(m.TotalPages),
			strconv.Itoa(m.Failed),
			strconv.FormatFloat(m.AverageScore, 'f', 1, 64),
			strconv.Itoa(m.SeveritySummary["critical"]),
			strconv.Itoa(m.SeveritySummary["warning"]),
		})
	}
	fmt.Fprintf(out, "Reports for %s\n", host)
	fmt.Fprintln(out, renderTable([]string{"ID", "Generated", "Source", "Pages", "Failed", "Avg score", "Critical", "Warning"}, rows))
	return nil
}

func listPageHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, pageURL string, asJSON bool) error {
	snapshots, err := db.PageHistory(ctx, pageURL)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, snapshots)
	}
	if len(snapshots) == 0 {
		fmt.Fprintf(out, "No history for %s.\n", pageURL)
		return nil
	}

	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		errorKind := s.ErrorKind
		if errorKind == "" {
			errorKind = "-"
		}
		rows = append(rows, []string{
			s.GeneratedAt.Local().Format(time.DateTime),
			strconv.Itoa(s.StatusCode),
			strconv.Itoa(s.Score),
			strconv.Itoa(s.WordCount),
			strconv.FormatInt(s.FetchTimeMS, 10),
			errorKind,
		})
	}
	fmt.Fprintf(out, "History of %s\n", pageURL)
	fmt.Fprintln(out, renderTable([]string{"Generated", "Status", "Score", "Words", "Fetch ms", "Error"}, rows))
	return nil
}

func listChangedPages(ctx context.Context, out io.Writer, db *database.HistoryDB, target string, asJSON bool) error {
	host := database.HostOf(target)
	history, err := db.History(ctx, host, 2)
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return fmt.Errorf("%w: %s needs at least two stored reports", errNoHistory, host)
	}
	newer, older := history[0], history[1]

	changed, err := db.ChangedPages(ctx, older.ID, newer.ID)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, changed)
	}
	fmt.Fprintf(out, "Changed pages between %s and %s\n",
		older.GeneratedAt.Local().Format(time.DateTime),
		newer.GeneratedAt.Local().Format(time.DateTime))
	if len(changed) == 0 {
		fmt.Fprintln(out, "No content changes.")
		return nil
	}
	for _, u := range changed {
		fmt.Fprintf(out, "  %s\n", u)
	}
	return nil
}

func showReport(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB, cfg *config.Config, opts runOptions, id string) (err error) {
	report, err := db.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report %s not found", id)
	}

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := newReportWriter(out, cfg, opts.noColor)
	if err != nil {
		return err
	}
	_, err = w.Write(report)
	return err
}

// renderTable renders rows as a bordered table.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

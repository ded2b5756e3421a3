package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/report"
)

// openOutput returns the report destination: the configured file, or the
// command's stdout. The returned close function is always non-nil.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may carry cookies or staging URLs, so keep them owner-only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(out io.Writer, cfg *config.Config, noColor bool) (report.Writer, error) {
	return report.New(cfg.Format, out, report.Options{
		Color:   !noColor && cfg.ReportFile == "" && report.IsTerminal(out),
		Verbose: cfg.Verbose,
		Version: getVersion(),
	})
}

// writeAudits writes the report and comparison of every audit that
// produced a report.
func writeAudits(cmd *cobra.Command, cfg *config.Config, opts runOptions, audits []*model.Audit) (err error) {
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
	for _, audit := range audits {
		if audit.Report == nil {
			continue
		}
		if _, err := w.Write(audit.Report); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", audit.Target, err)
		}
		if audit.Comparison != nil {
			if _, err := w.WriteComparison(audit.Comparison); err != nil {
				return fmt.Errorf("failed to write comparison for %s: %w", audit.Target, err)
			}
		}
	}
	if cfg.ReportFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

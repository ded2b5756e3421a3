package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoscan/internal/config"
)

// NewRootCmd creates the root command for SEOScan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoscan",
		Short: "SEO analyzer for websites",
		Long: `SEOScan crawls a website breadth-first, analyzes every page for on-page
SEO signals (titles, descriptions, headings, images, links, structured data,
content quality) and writes a scored site report with recommendations.

Reports are available as text, JSON, Markdown, HTML and CSV. Audits can be
stored in a local history database, compared against competitors and
exported to Elasticsearch.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .seoscan.yaml in current, XDG config or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewSitemapCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

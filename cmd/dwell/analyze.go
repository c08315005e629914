package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jirakit/dwell/internal/analyze"
	"github.com/jirakit/dwell/internal/fetch"
	"github.com/jirakit/dwell/internal/jira"
	"github.com/jirakit/dwell/internal/replay"
	"github.com/jirakit/dwell/internal/report"
)

var (
	jqlFlag      string
	groupByFlag  string
	pageSizeFlag int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate status durations for all issues matching a JQL filter",
	Long: `Fetch every issue matching the JQL filter (with full change history),
replay each changelog into per-status hours, and aggregate by the chosen
grouping mode. Prints the time-to-market report, or the raw aggregation as
JSON with --json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("jql") {
			cfg.JQL = jqlFlag
		}
		if cmd.Flags().Changed("group-by") {
			cfg.GroupBy = groupByFlag
		}
		if cmd.Flags().Changed("page-size") {
			cfg.PageSize = pageSizeFlag
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.JQL == "" {
			return fmt.Errorf("no JQL filter configured (use --jql or set jql in dwell.yaml)")
		}
		mode, err := cfg.Mode()
		if err != nil {
			return err
		}

		analyzer := newAnalyzer()
		logf("using grouping mode: %s - %s", cfg.GroupBy, mode.Description)

		result, err := analyzer.Run(rootCtx, cfg.JQL, mode.FieldID, mode.FieldName)
		if err != nil {
			if jira.IsAuthError(err) {
				return fmt.Errorf("authentication failed: %w", err)
			}
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		fmt.Print(report.RenderReport(result, cfg.ExpectedStatuses))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&jqlFlag, "jql", "", "JQL filter selecting the issues to analyze")
	analyzeCmd.Flags().StringVar(&groupByFlag, "group-by", "", "grouping mode (e.g. impact, idea_category)")
	analyzeCmd.Flags().IntVar(&pageSizeFlag, "page-size", fetch.DefaultPageSize, "issues per search page")
	rootCmd.AddCommand(analyzeCmd)
}

// newAnalyzer wires the client, fetcher, and calculator from the loaded
// config.
func newAnalyzer() *analyze.Analyzer {
	client := jira.NewClient(cfg.Server, cfg.Email, cfg.APIToken)

	fetcher := fetch.NewFetcher(client)
	fetcher.PageSize = cfg.PageSize
	fetcher.Log = logf

	analyzer := analyze.NewAnalyzer(fetcher, replay.NewCalculator(cfg.Conventions))
	analyzer.Log = logf
	return analyzer
}

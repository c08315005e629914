package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jirakit/dwell/internal/jira"
	"github.com/jirakit/dwell/internal/report"
)

var issueCmd = &cobra.Command{
	Use:   "issue <key>",
	Short: "Show status durations for a single issue",
	Long: `Fetch one issue with its full change history and print how long it has
spent in each workflow status. Statuses outside the configured reference
list are listed separately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		key := args[0]
		result, err := newAnalyzer().AnalyzeIssue(rootCtx, key)
		if err != nil {
			if jira.IsAuthError(err) {
				return fmt.Errorf("authentication failed: %w", err)
			}
			return err
		}

		for _, warning := range result.Warnings {
			logf("warning: %s: %s", key, warning)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Durations)
		}
		fmt.Print(report.RenderIssue(key, result.Durations, cfg.ExpectedStatuses))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(issueCmd)
}

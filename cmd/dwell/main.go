// dwell measures how long Jira issues spend in each workflow status and
// aggregates the results into a time-to-market report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jirakit/dwell/internal/config"
)

var (
	cfgPath    string
	jsonOutput bool
	quietFlag  bool

	cfg *config.Config

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "dwell",
	Short: "Measure how long Jira issues dwell in each workflow status",
	Long: `dwell replays each issue's changelog into per-status durations and
aggregates them across issues into a time-to-market report, grouped by a
configurable Jira custom field (impact, idea category, ...).

Configuration comes from dwell.yaml in the working directory, DWELL_*
environment variables, and flags, in increasing precedence. The API token
may also be supplied as JIRA_API_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ./dwell.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit structured JSON on stdout instead of text")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress output")
}

// logf writes progress and diagnostics to stderr, keeping stdout clean for
// report output.
func logf(format string, args ...any) {
	if quietFlag {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

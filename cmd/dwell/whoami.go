package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jirakit/dwell/internal/jira"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the configured credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := jira.NewClient(cfg.Server, cfg.Email, cfg.APIToken)
		me, err := client.Myself(rootCtx)
		if err != nil {
			if jira.IsAuthError(err) {
				return fmt.Errorf("authentication failed: %w", err)
			}
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(me)
		}
		fmt.Printf("Logged in as: %s (%s)\n", me.DisplayName, me.EmailAddress)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

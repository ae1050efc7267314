package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/batch"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate stored runs by configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := batch.Stored(cmd.Context(), db)
		if err != nil {
			return err
		}
		groups := batch.Summarize(runs)

		if summaryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		}
		printSummary(cmd.OutOrStdout(), groups)
		return nil
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print JSON instead of a table")
}

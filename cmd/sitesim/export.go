package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/persistence"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write a stored run to CSV files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.LoadResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		paths, err := persistence.WriteCSV(exportDir, res)
		if err != nil {
			return err
		}
		slog.Info("run exported", "run_id", res.RunID, "files", len(paths))
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "exports", "output directory")
}

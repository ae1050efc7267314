package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/persistence"
)

var (
	flagConfig  string
	flagVerbose bool

	// cfg is loaded and validated before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sitesim",
	Short: "Construction site situational awareness simulator",
	Long: `sitesim runs an agent-based model of a construction organization and
measures how the safety reporting structure (dedicated reporters, self
reporting or none) affects situational awareness, incidents and schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.LoadOrDefault(flagConfig)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		level := cfg.Logging.SlogLevel()
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(newLogger(os.Stderr, level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(runCmd, sweepCmd, serveCmd, summaryCmd, exportCmd, configCmd)
}

func openStore(c *config.Config) (*persistence.DB, error) {
	db, err := persistence.Open(c.Storage.Path, persistence.OptionsFrom(c.Storage))
	if err != nil {
		return nil, fmt.Errorf("open results store: %w", err)
	}
	slog.Debug("results store opened", "path", db.Path())
	return db, nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := *cfg
		if cmd.Flags().Changed("addr") {
			c.API.Addr = serveAddr
		}

		db, err := openStore(&c)
		if err != nil {
			return err
		}
		defer db.Close()

		return api.NewServer(db, c.API).Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides api.addr)")
}

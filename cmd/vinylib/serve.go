package main

import (
	"github.com/spf13/cobra"

	"github.com/franckmandon/vinylib-sub000/internal/app"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
	rootCmd.AddCommand(serveCmd)
}

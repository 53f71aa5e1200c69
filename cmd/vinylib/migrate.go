package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/franckmandon/vinylib-sub000/internal/app"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Convert the legacy collection blob into per-record storage",
		Long: "Reads the legacy whole-collection blob (VINYLIB_LEGACY_KEY) and writes every\n" +
			"entry as a record with ownership and rating facts. Existing records are\n" +
			"left untouched, so the command can be re-run safely.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			report, err := app.MigrateLegacy(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	rootCmd.AddCommand(migrateCmd)
}

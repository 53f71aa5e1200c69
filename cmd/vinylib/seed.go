package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franckmandon/vinylib-sub000/internal/app"
)

func init() {
	var (
		file    string
		replace bool
	)
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a YAML or JSON catalogue file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			report, err := app.Seed(cmd.Context(), cfg, log, file, replace)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	seedCmd.Flags().StringVarP(&file, "file", "f", "", "Catalogue file (required)")
	seedCmd.Flags().BoolVar(&replace, "replace", false, "Overwrite records already stored instead of skipping them")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

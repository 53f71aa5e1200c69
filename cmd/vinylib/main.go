package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franckmandon/vinylib-sub000/internal/config"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "vinylib",
	Short:         "Shared vinyl record catalogue",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// setup loads the environment configuration and the logger every command needs.
func setup() (*config.Config, logger.Logger) {
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel, cfg.PrettyLog)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vinylib: %v\n", err)
		os.Exit(1)
	}
}

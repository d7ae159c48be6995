// Package cmd implements the exptrack CLI commands.
package cmd

import (
	"fmt"

	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/store"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Local store: %s\n", store.DefaultPath())
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL: %s\n", config.GetAPIURL(cfg))
	if cfg.API.TimeoutSec == 0 {
		fmt.Println("    Timeout:  disabled")
	} else {
		fmt.Printf("    Timeout:  %ds\n", cfg.API.TimeoutSec)
	}
	if token := config.GetToken(); token != "" {
		fmt.Printf("    Token:    %s (from %s)\n", maskToken(token), config.EnvToken)
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Currency:     %s\n", cfg.General.Currency)
	fmt.Printf("    Recent limit: %d\n", cfg.General.RecentLimit)
	if cfg.General.ExportDir != "" {
		fmt.Printf("    Export dir:   %s\n", cfg.General.ExportDir)
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Backend: %s\n", cfg.Cache.Backend)
	if redisURL := config.GetRedisURL(cfg); redisURL != "" {
		fmt.Printf("    Redis:   %s\n", redisURL)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh: %v (every %s)\n", cfg.TUI.AutoRefresh, cfg.RefreshInterval())
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Printf("    File:  %s\n", cfg.Log.File)
	}
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Warning: %v\n\n", err)
	}

	fmt.Println("  Run `exptrack setup` to reconfigure.")
	return nil
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)
	ask := func() string {
		fmt.Print("     > ")
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	// Load existing config or defaults
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to exptrack!")
	fmt.Println()

	// 1. Server
	fmt.Println("  1. Expense server URL")
	fmt.Printf("     Current: %s\n", cfg.API.BaseURL)
	if v := ask(); v != "" {
		cfg.API.BaseURL = v
	}
	fmt.Println()

	// 2. Currency
	fmt.Println("  2. Currency symbol")
	fmt.Printf("     Current: %s\n", cfg.General.Currency)
	if v := ask(); v != "" {
		cfg.General.Currency = v
	}
	fmt.Println()

	// 3. Theme
	fmt.Println("  3. Color theme")
	names := theme.Names()
	for i, name := range names {
		marker := ""
		if name == cfg.Appearance.Theme {
			marker = " [current]"
		}
		fmt.Printf("     (%d) %s%s\n", i+1, name, marker)
	}
	if n, err := strconv.Atoi(ask()); err == nil && n >= 1 && n <= len(names) {
		cfg.Appearance.Theme = names[n-1]
	}
	fmt.Println()

	// 4. Auto refresh
	fmt.Println("  4. Refresh the dashboard automatically?")
	fmt.Println("     (1) No [default]")
	fmt.Println("     (2) Every minute")
	fmt.Println("     (3) Every 5 minutes")
	switch ask() {
	case "2":
		cfg.TUI.AutoRefresh = true
		cfg.TUI.RefreshIntervalSec = 60
	case "3":
		cfg.TUI.AutoRefresh = true
		cfg.TUI.RefreshIntervalSec = 300
	default:
		cfg.TUI.AutoRefresh = false
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Save
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Next: `exptrack signup` or `exptrack login`.")
	fmt.Println()

	return nil
}

func maskToken(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-4:]
	}
	if len(token) > 4 {
		return token[:4] + "..."
	}
	return "****"
}

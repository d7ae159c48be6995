package cmd

import (
	"fmt"

	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Logs go to a file so they do not tear the alt screen.
	e, err := openEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Config:       e.cfg,
		Auth:         e.mgr,
		NewDashboard: e.newDashboard,
		Logger:       e.log,
		SaveConfig:   config.Save,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

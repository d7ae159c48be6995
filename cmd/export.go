package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/cli"

	"github.com/spf13/cobra"
)

var flagExportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download expenses as CSV",
	Long:  "Download the expenses matching the filters as CSV. The file is named by the server unless --output is given; use --output - for stdout.",
	RunE:  runExport,
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Output path, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	f := filterFromFlags()
	if err := f.Validate(); err != nil {
		return commandError("", err)
	}

	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()

	if flagExportOutput == "-" {
		if _, err := d.Export(cmd.Context(), f, os.Stdout); err != nil {
			return commandError("export expenses", err)
		}
		return nil
	}

	// Buffer so a failed download leaves no partial file behind.
	var buf bytes.Buffer
	progress("Downloading export...")
	name, err := d.Export(cmd.Context(), f, &buf)
	if err != nil {
		return commandError("export expenses", err)
	}

	path := flagExportOutput
	if path == "" {
		path = safeExportName(name)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Printf("  Exported %s (%s)\n", path, cli.FormatNumber(int64(buf.Len()))+" bytes")
	return nil
}

// safeExportName keeps only the base name the server suggested.
func safeExportName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return api.DefaultExportName
	}
	return name
}

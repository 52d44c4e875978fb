// =============================================================================
// Attendance Dashboard - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   attendash export [--format csv|xlsx|xml|html|pdf|all] [--output-dir dir] [--xsd]
//
// EXPORT PIPELINE:
//   1. Remove exports older than the configured retention (if set)
//   2. Write every requested format concurrently
//   3. Print one line per file
//   4. With --xsd, also write the schema of the XML export
//
// PDF export needs a Chrome or Chromium executable; set chrome_path in the
// configuration when it is not on the default search path.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/exporter"
	"github.com/ginjaninja78/attendance-dashboard/pkg/utils"
)

var (
	exportFormat string
	exportDir    string
	exportXSD    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the records as CSV, XLSX, XML, HTML or PDF",
	Long: `The export command writes the saved record set to the export directory.

  csv   The five source columns; re-importable
  xlsx  Workbook with the records, department averages and student charts
  xml   Records grouped by department
  html  Printable dashboard report
  pdf   The HTML report rendered by headless Chrome
  all   Every format above`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(exporter.FormatCSV),
		"Export format: csv, xlsx, xml, html, pdf or all")
	exportCmd.Flags().StringVarP(&exportDir, "output-dir", "o", "",
		"Write exports here instead of the configured export directory")
	exportCmd.Flags().BoolVar(&exportXSD, "xsd", false,
		"Also write "+exporter.SchemaFileName+" describing the XML export")
}

func runExport(cmd *cobra.Command) error {
	formats, err := exporter.ParseFormats(exportFormat)
	if err != nil {
		return err
	}

	opts := exportOptions()
	if exportDir != "" {
		opts.Dir = exportDir
	}

	if appConfig.ExportRetention > 0 && utils.FileExists(opts.Dir) {
		removed, err := utils.CleanOldExports(opts.Dir, appConfig.ExportRetention)
		if err != nil {
			return err
		}
		if removed > 0 {
			slog.Info("Removed old exports",
				slog.Int("count", removed),
				slog.Duration("retention", appConfig.ExportRetention))
		}
	}

	return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
		results, err := exporter.RunAll(ctx, d.Records(), formats, opts)

		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "  ✗ %-5s %v\n", r.Format, r.Err)
				continue
			}
			fmt.Fprintf(out, "  ✓ %-5s %s (%d bytes)\n", r.Format, filepath.Clean(r.Path), r.Bytes)
		}
		if err != nil || !exportXSD {
			return err
		}

		path, err := exporter.ExportSchema(opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  ✓ %-5s %s\n", "xsd", filepath.Clean(path))
		return nil
	})
}

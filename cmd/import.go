// =============================================================================
// Attendance Dashboard - Import Command
// =============================================================================
//
// COMMAND USAGE:
//   attendash import <file|directory>... [flags]
//
// FLAGS:
//   --no-warning-log : Do not write the import warning log
//
// IMPORT PIPELINE:
//   1. Expand directories into their .csv, .txt and .xlsx files
//   2. Parse every file concurrently
//   3. Concatenate the records in argument order and replace the saved set
//   4. Print the import summary
//   5. Write the warning log to the export directory
//
// If any file fails to parse, nothing is replaced.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/pkg/utils"
)

// noWarningLog disables the warning log file.
var noWarningLog bool

// importCmd represents the 'import' command.
var importCmd = &cobra.Command{
	Use:   "import <file|directory>...",
	Short: "Replace the records with the contents of CSV or XLSX files",
	Long: `The import command parses one or more CSV (or XLSX) files and replaces the
saved record set with their records, concatenated in argument order.

Directories are expanded into the .csv, .txt and .xlsx files they contain.
Rows that could only be partly read are kept and reported as warnings; the
warnings are also written to a log file in the export directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(
		&noWarningLog,
		"no-warning-log",
		false,
		"Do not write the import warning log",
	)
}

// runImport orchestrates one import.
func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	files, err := utils.ExpandImportPaths(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No importable files found.")
		return nil
	}

	// =========================================================================
	// STEP 2: PARSE AND REPLACE
	// =========================================================================

	return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
		report, err := d.Import(ctx, files)
		if err != nil {
			return err
		}

		// =====================================================================
		// STEP 3: SUMMARY AND WARNING LOG
		// =====================================================================

		fmt.Fprint(out, utils.FormatImportSummary(report.Summary()))
		for _, w := range report.Warnings() {
			fmt.Fprintf(out, "  ! %s\n", w)
		}

		if noWarningLog || len(report.Warnings()) == 0 {
			return nil
		}

		fm := utils.NewFileManager(appConfig.DataDir, appConfig.ExportDir)
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}

		logPath, err := utils.WriteWarningLog(report.WarningLogEntries(), fm.ExportDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Warnings have been logged to %s\n", logPath)
		return nil
	})
}

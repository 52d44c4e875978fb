// =============================================================================
// Attendance Dashboard - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (attendash)
//   ├── import, sample, add, remove, clear    (editing the record set)
//   ├── list, show, summary, charts, sort     (reading the dashboard)
//   ├── export                                (csv, xlsx, xml, html, pdf)
//   ├── serve                                 (HTTP API + websocket)
//   ├── config init
//   └── version
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (defaults, YAML, .env, environment)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/attendance-dashboard/internal/config"
	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/exporter"
	"github.com/ginjaninja78/attendance-dashboard/internal/infrastructure"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig is loaded by PersistentPreRunE before any command runs.
var appConfig *config.Config

// skipConfig marks commands that must run without a loaded configuration.
const skipConfig = "skip-config"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "attendash",
	Short: "Attendance Dashboard - student attendance records, KPIs and reports",
	Long: `Attendance Dashboard keeps a set of student attendance records and
derives attendance percentages, defaulter counts, department averages and
per-student charts from them.

The record set is saved after every change and restored on the next run.

Example Usage:
  attendash import ./roster.csv          # Replace the records with a CSV file
  attendash list --status low            # Show the defaulters
  attendash export --format all          # Write every export format
  attendash serve                        # Start the HTTP dashboard`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := cmd.Annotations[skipConfig]; ok {
			return nil
		}
		return initConfig()
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return infrastructure.CloseLogFile()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigPath,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// initConfig loads the configuration and installs the logger.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	if _, err := infrastructure.InitializeLogger(infrastructure.LoggingConfig{
		Level:    cfg.LogLevel,
		Output:   cfg.LogOutput,
		FilePath: cfg.LogFile,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appConfig = cfg
	return nil
}

// =============================================================================
// SESSION HELPERS
// =============================================================================

// withDashboard opens the saved session, runs fn and closes the session.
func withDashboard(ctx context.Context, fn func(ctx context.Context, d *dashboard.Dashboard) error) (err error) {
	d, err := dashboard.Open(ctx, dashboard.Options{
		Backend:    appConfig.StorageBackend,
		DataDir:    appConfig.DataDir,
		StorageKey: appConfig.StorageKey,
		Locale:     appConfig.Locale,
		Logger:     infrastructure.ComponentLogger("dashboard"),
	})
	if err != nil {
		return fmt.Errorf("failed to open dashboard: %w", err)
	}

	defer func() {
		err = errors.Join(err, d.Close())
	}()

	if restoreErr := d.RestoreErr(); restoreErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: saved records could not be restored: %v\n", restoreErr)
	}

	return fn(ctx, d)
}

// exportOptions maps the configuration onto exporter options.
func exportOptions() exporter.Options {
	return exporter.Options{
		Dir:        appConfig.ExportDir,
		NameFormat: appConfig.OutputNameFormat,
		PDF: exporter.PDFOptions{
			ChromePath: appConfig.ChromePath,
			Timeout:    appConfig.PDFTimeout,
		},
	}
}

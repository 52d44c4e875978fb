// =============================================================================
// Attendance Dashboard - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   attendash serve [--addr host:port]
//
// Serves the dashboard over HTTP until interrupted (Ctrl+C or SIGTERM).
// The session is saved on every change and once more on shutdown.
//
// =============================================================================

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/infrastructure"
	"github.com/ginjaninja78/attendance-dashboard/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard, its JSON API and live updates over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := appConfig.ServerAddress
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withDashboard(ctx, func(ctx context.Context, d *dashboard.Dashboard) error {
			srv := server.New(d, server.Options{
				Address: addr,
				Export:  exportOptions(),
				Logger:  infrastructure.ComponentLogger("server"),
			})
			defer srv.Close()

			slog.Info("Dashboard available", slog.String("url", "http://"+addr+"/"))
			return srv.ListenAndServe(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server_address)")
}

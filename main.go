// =============================================================================
// Attendance Dashboard - Main Entry Point
// =============================================================================
//
// USAGE:
//   attendash import roster.csv   - Replace the records with a CSV file
//   attendash list                - Show the record table
//   attendash summary             - Show the KPI cards
//   attendash export -f all       - Write every export format
//   attendash serve               - Serve the dashboard over HTTP
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parser, metrics, query, store, persistence, exporters,
//                      HTTP server
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/attendance-dashboard/cmd"
)

func main() {
	cmd.Execute()
}

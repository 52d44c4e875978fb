// =============================================================================
// Attendance Dashboard - Report Commands
// =============================================================================
//
// COMMAND USAGE:
//   attendash summary          KPI cards
//   attendash charts           Department averages and per-student percents
//   attendash sort name        Toggle the name order (first use sorts Z-A)
//   attendash sort percent     Toggle the percent order (first use sorts low-high)
//
// The sort commands reorder and save the record set; the direction toggles
// are saved too, so repeated runs alternate.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the KPI summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			return presentation.RenderKPIs(cmd.OutOrStdout(), presentation.BuildKPIs(d.Records()))
		})
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Show the department and student charts as text bars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			return presentation.RenderCharts(cmd.OutOrStdout(), presentation.BuildCharts(d.Records()))
		})
	},
}

var sortCmd = &cobra.Command{
	Use:       "sort <name|percent>",
	Short:     "Toggle the sort order by name or by attendance percent",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"name", "percent"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			var (
				state query.SortState
				err   error
			)

			if args[0] == "name" {
				state, err = d.SortByName(ctx)
			} else {
				state, err = d.SortByPercent(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sorted by %s (%s)\n", args[0], direction(args[0], state))
			return presentation.RenderTable(cmd.OutOrStdout(), presentation.BuildTable(d.Records(), query.Criteria{}))
		})
	},
}

// direction describes the order the last toggle applied.
func direction(field string, state query.SortState) string {
	if field == "name" {
		if state.NameAscending {
			return "A-Z"
		}
		return "Z-A"
	}
	if state.PercentAscending {
		return "low to high"
	}
	return "high to low"
}

func init() {
	rootCmd.AddCommand(summaryCmd, chartsCmd, sortCmd)
}

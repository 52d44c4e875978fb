// =============================================================================
// Attendance Dashboard - Record Commands
// =============================================================================
//
// COMMAND USAGE:
//   attendash sample                                  Load the sample students
//   attendash add <id> <name> <dept> <total> <attended>
//   attendash remove <id> <name>                      Remove matching records
//   attendash clear                                   Delete every record
//   attendash list [--search s] [--department d] [--status low|medium|high]
//   attendash show <id> <name>                        Detail view of one record
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
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// List filters.
var (
	listSearch     string
	listDepartment string
	listStatus     string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Replace the records with the built-in sample students",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			n, err := d.LoadSample()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d sample record(s)\n", n)
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <id> <name> <department> <total-classes> <attended-classes>",
	Short: "Append one record",
	Long: `Append one record to the saved set.

All fields are required. Both counts must be non-negative integers, the total
must be positive and the attended count may not exceed the total.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		record := types.Record{
			ID:              args[0],
			Name:            args[1],
			Department:      args[2],
			TotalClasses:    types.ParseCount(args[3]),
			AttendedClasses: types.ParseCount(args[4]),
		}

		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			if err := d.Add(record); err != nil {
				return err
			}
			row := presentation.NewRow(record.Normalize())
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s): %s %s\n",
				row.Name, row.ID, row.Percent, row.Classification.Label())
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id> <name>",
	Short: "Remove every record with this id and name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			n := d.Remove(args[0], args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", n)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record and the saved snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			if err := d.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All records deleted")
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the record table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := query.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		criteria := query.Criteria{
			Search:     listSearch,
			Department: listDepartment,
			Status:     status,
		}

		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			return presentation.RenderTable(cmd.OutOrStdout(), presentation.BuildTable(d.Records(), criteria))
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id> <name>",
	Short: "Show the detail view of one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd.Context(), func(ctx context.Context, d *dashboard.Dashboard) error {
			record, ok := d.Find(args[0], args[1])
			if !ok {
				return fmt.Errorf("no record with id %q and name %q", args[0], args[1])
			}
			return presentation.RenderDetail(cmd.OutOrStdout(), presentation.BuildDetail(record))
		})
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd, addCmd, removeCmd, clearCmd, listCmd, showCmd)

	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive match on id, name or department")
	listCmd.Flags().StringVar(&listDepartment, "department", "", "Only this department")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only this status bucket: low, medium or high")
}

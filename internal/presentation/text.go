package presentation

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderTable writes the table as aligned columns followed by the info line.
func RenderTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tNAME\tDEPARTMENT\tTOTAL\tATTENDED\tPERCENT\tSTATUS")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, r.Department,
			r.TotalClasses, r.AttendedClasses,
			r.Percent, r.Classification.Label())
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, t.Info())
	return err
}

// RenderKPIs writes the four summary cards on one line each.
func RenderKPIs(w io.Writer, k KPIs) error {
	_, err := fmt.Fprintf(w, "Avg:        %s\nStudents:   %d\nDefaulters: %d\nTop:        %s\n",
		k.AveragePercent, k.Count, k.DefaulterCount, k.TopRecordName)
	return err
}

// RenderCharts writes both chart feeds as horizontal text bars.
func RenderCharts(w io.Writer, c Charts) error {
	fmt.Fprintln(w, "Department averages")
	for i, label := range c.Department.Labels {
		p := c.Department.AveragePercents[i]
		fmt.Fprintf(w, "  %-16s %-8s %s\n", label, p, bar(p.Value, p.Defined))
	}

	fmt.Fprintln(w, "Attendance per student")
	for i, label := range c.Student.Labels {
		p := c.Student.Percents[i]
		fmt.Fprintf(w, "  %-16s %-8s %s\n", label, p, bar(p.Value, p.Defined))
	}

	return nil
}

// RenderDetail writes the detail view.
func RenderDetail(w io.Writer, d Detail) error {
	_, err := fmt.Fprintf(w, "%s (%s)\nDepartment: %s\nAttendance: %s / %s (%s)\nStatus:     %s\n",
		d.Name, d.ID, d.Department, d.AttendedClasses, d.TotalClasses, d.Percent, d.Status)
	if err != nil || d.Note == "" {
		return err
	}
	_, err = fmt.Fprintf(w, "Note:       %s\n", d.Note)
	return err
}

// bar draws one character per 5%, clamped to 0..100.
func bar(value float64, defined bool) string {
	if !defined {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return strings.Repeat("#", int(value/5))
}

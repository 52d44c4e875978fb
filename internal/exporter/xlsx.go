package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/metrics"
	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// Workbook sheet names.
const (
	SheetAttendance  = "Attendance"
	SheetDepartments = "Departments"
	SheetStudents    = "Students"
)

// WriteXLSX builds a workbook with the record table and both charts.
//
// SHEETS:
//   - Attendance:  the canonical five columns plus percent and status,
//     rows filled by classification colour
//   - Departments: department averages with a column chart
//   - Students:    per-student percents with a line chart
func WriteXLSX(w io.Writer, set types.RecordSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAttendance); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeAttendanceSheet(f, set); err != nil {
		return err
	}
	if err := writeDepartmentSheet(f, presentation.BuildDepartmentChart(set)); err != nil {
		return err
	}
	if err := writeStudentSheet(f, presentation.BuildStudentChart(set)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	slog.Debug("Wrote XLSX export", slog.Int("record_count", len(set)))
	return nil
}

func writeAttendanceSheet(f *excelize.File, set types.RecordSet) error {
	header := make([]interface{}, 0, len(csvparser.Header)+2)
	for _, h := range csvparser.Header {
		header = append(header, h)
	}
	header = append(header, "Attendance_Percent", "Status")

	if err := f.SetSheetRow(SheetAttendance, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	styles := make(map[metrics.Classification]int)
	for _, c := range []metrics.Classification{metrics.Low, metrics.Medium, metrics.High} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{
				Type:    "pattern",
				Pattern: 1,
				Color:   []string{presentation.ClassColor(c)},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create style: %w", err)
		}
		styles[c] = style
	}

	for i, r := range set {
		row := presentation.NewRow(r)
		rowNum := i + 2

		values := []interface{}{
			row.ID,
			row.Name,
			row.Department,
			cellCount(row.TotalClasses),
			cellCount(row.AttendedClasses),
			cellPercent(row.Percent),
			row.Classification.Label(),
		}

		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetAttendance, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}

		if style, ok := styles[row.Classification]; ok {
			last, err := excelize.CoordinatesToCellName(len(values), rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetAttendance, cell, last, style); err != nil {
				return fmt.Errorf("failed to style row %d: %w", rowNum, err)
			}
		}
	}

	return nil
}

func writeDepartmentSheet(f *excelize.File, chart presentation.DepartmentChart) error {
	if _, err := f.NewSheet(SheetDepartments); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetDepartments, "A1", &[]interface{}{"Department", "Avg_Attendance_Percent"}); err != nil {
		return err
	}
	for i, label := range chart.Labels {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetDepartments, cell, &[]interface{}{label, cellPercent(chart.AveragePercents[i])}); err != nil {
			return err
		}
	}

	if len(chart.Labels) == 0 {
		return nil
	}

	last := len(chart.Labels) + 1
	return addChart(f, SheetDepartments, excelize.Col, "Avg Attendance %",
		fmt.Sprintf("%s!$A$2:$A$%d", SheetDepartments, last),
		fmt.Sprintf("%s!$B$2:$B$%d", SheetDepartments, last))
}

func writeStudentSheet(f *excelize.File, chart presentation.StudentChart) error {
	if _, err := f.NewSheet(SheetStudents); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetStudents, "A1", &[]interface{}{"Name", "Attendance_Percent"}); err != nil {
		return err
	}
	for i, label := range chart.Labels {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetStudents, cell, &[]interface{}{label, cellPercent(chart.Percents[i])}); err != nil {
			return err
		}
	}

	if len(chart.Labels) == 0 {
		return nil
	}

	last := len(chart.Labels) + 1
	return addChart(f, SheetStudents, excelize.Line, "Attendance %",
		fmt.Sprintf("%s!$A$2:$A$%d", SheetStudents, last),
		fmt.Sprintf("%s!$B$2:$B$%d", SheetStudents, last))
}

func addChart(f *excelize.File, sheet string, kind excelize.ChartType, title, categories, values string) error {
	err := f.AddChart(sheet, "D2", &excelize.Chart{
		Type: kind,
		Series: []excelize.ChartSeries{{
			Name:       title,
			Categories: categories,
			Values:     values,
		}},
		Title: []excelize.RichTextRun{{Text: title}},
	})
	if err != nil {
		return fmt.Errorf("failed to add chart to %s: %w", sheet, err)
	}
	return nil
}

// cellCount leaves invalid counts blank.
func cellCount(c types.Count) interface{} {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// cellPercent rounds to one decimal and leaves undefined percents blank.
func cellPercent(p metrics.Percent) interface{} {
	if !p.Defined {
		return ""
	}
	return p.Rounded()
}

package xlsxparser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/exporter"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// writeWorkbook saves rows to the named sheet of a new workbook.
func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseFile_Positional(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"ID", "Student", "Dept", "Classes", "Present"},
		{"1", "Smith, John", "CS", 10, 8},
		{"2", "Bob", "EE", 20, 10},
	})

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)

	require.Len(t, result.Records, 2)
	assert.Equal(t, types.NewRecord("1", "Smith, John", "CS", 10, 8), result.Records[0])
	assert.Equal(t, types.NewRecord("2", "Bob", "EE", 20, 10), result.Records[1])
	assert.False(t, result.HasWarnings())
}

func TestParseFile_HeaderMapping(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Name", "Attended_Classes", "StudentID", "Total_Classes", "Department"},
		{"Alice", 8, "1", 10, "CS"},
	})

	result, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, types.NewRecord("1", "Alice", "CS", 10, 8), result.Records[0])
}

func TestParseFile_SkipsEmptyRowsAndWarns(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"StudentID", "Name", "Department", "Total_Classes", "Attended_Classes"},
		{"1", "Alice", "CS", "ten", 8},
		{},
		{"2", "Bob", "EE"},
	})

	result, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.False(t, result.Records[0].TotalClasses.Valid)
	assert.False(t, result.Records[1].TotalClasses.Valid)
	assert.False(t, result.Records[1].AttendedClasses.Valid)

	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, csvparser.WarningFieldCoercion, result.Warnings[0].Kind)
	assert.Equal(t, 2, result.Warnings[0].Line)
	assert.Equal(t, "ten", result.Warnings[0].Value)
}

func TestParseFile_NoDataRows(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"StudentID", "Name", "Department", "Total_Classes", "Attended_Classes"},
	})

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, csvparser.ErrNoDataRows))

	var pe *csvparser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Source)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestParseFile_ReimportsExport(t *testing.T) {
	set := types.RecordSet{
		types.NewRecord("101", "Amit Kumar", "MCA", 30, 28),
		types.NewRecord("102", "Kumar, Ravi", "MBA", 30, 20),
		types.NewRecord("103", "Zero", "BCA", 0, 0),
	}

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteXLSX(&buf, set))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, set, result.Records)
}

func TestLayoutFromHeader(t *testing.T) {
	layout, ok := layoutFromHeader([]string{"student id", "NAME", "dept", "total", "attended"})
	require.True(t, ok)
	assert.Equal(t, DefaultColumnLayout(), layout)

	_, ok = layoutFromHeader([]string{"StudentID", "Name", "Department"})
	assert.False(t, ok)
}

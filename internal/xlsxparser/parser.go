// =============================================================================
// Attendance Dashboard - XLSX Import
// =============================================================================
//
// Reads attendance records from an Excel workbook. Spreadsheet cells are
// already separated, so no comma heuristic applies: each row's cells are
// mapped onto the five record fields and then handed to
// csvparser.ParseFields, which applies the same numeric coercion and
// warning rules as CSV import.
//
// SHEET SELECTION:
//   The "Attendance" sheet if present (so exported workbooks re-import),
//   otherwise the first sheet.
//
// COLUMN MAPPING:
//   The first non-empty row is the header. When it names the columns
//   (StudentID, Name, Department, Total_Classes, Attended_Classes, or the
//   aliases in headerAliases) the columns are found by name, in any order.
//   Otherwise columns A to E are mapped positionally.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
)

// PreferredSheet is read when the workbook has it.
const PreferredSheet = "Attendance"

// =============================================================================
// COLUMN LAYOUT
// =============================================================================

// ColumnLayout gives the 0-based column of each record field.
type ColumnLayout struct {
	ID         int
	Name       int
	Department int
	Total      int
	Attended   int
}

// DefaultColumnLayout maps columns A to E in canonical order.
func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		ID:         0, // Column A
		Name:       1, // Column B
		Department: 2, // Column C
		Total:      3, // Column D
		Attended:   4, // Column E
	}
}

// headerAliases maps normalized header text to a field.
var headerAliases = map[string]string{
	"studentid":       "id",
	"id":              "id",
	"rollno":          "id",
	"name":            "name",
	"studentname":     "name",
	"department":      "dept",
	"dept":            "dept",
	"totalclasses":    "total",
	"total":           "total",
	"attendedclasses": "attended",
	"attended":        "attended",
}

// layoutFromHeader finds every field by name. ok is false unless all five
// fields are present.
func layoutFromHeader(header []string) (ColumnLayout, bool) {
	found := make(map[string]int)

	for i, cell := range header {
		field, known := headerAliases[normalizeHeader(cell)]
		if !known {
			continue
		}
		if _, dup := found[field]; !dup {
			found[field] = i
		}
	}

	if len(found) != csvparser.FieldCount {
		return ColumnLayout{}, false
	}

	return ColumnLayout{
		ID:         found["id"],
		Name:       found["name"],
		Department: found["dept"],
		Total:      found["total"],
		Attended:   found["attended"],
	}, true
}

// normalizeHeader lowercases and drops spaces, underscores and hyphens.
func normalizeHeader(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads a workbook and returns its records.
//
// PARAMETERS:
//   - filePath: The path to the .xlsx file.
//
// RETURNS:
//   - The records with warnings. Warning line numbers are spreadsheet rows.
//   - A *csvparser.ParseError wrapping csvparser.ErrNoDataRows if the sheet
//     has no data rows, or an error if the workbook cannot be read.
func ParseFile(filePath string) (*csvparser.Result, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result, err := parseWorkbook(f)
	if err != nil {
		var pe *csvparser.ParseError
		if errors.As(err, &pe) {
			pe.Source = filePath
		}
		return nil, err
	}

	result.Source = filePath
	return result, nil
}

func parseWorkbook(f *excelize.File) (*csvparser.Result, error) {
	sheet := selectSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return ParseRows(rows)
}

// ParseRows maps raw sheet rows onto records. The first non-empty row is the
// header.
func ParseRows(rows [][]string) (*csvparser.Result, error) {
	headerIndex := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, &csvparser.ParseError{Err: csvparser.ErrNoDataRows}
	}

	layout, ok := layoutFromHeader(rows[headerIndex])
	if !ok {
		layout = DefaultColumnLayout()
	}

	result := &csvparser.Result{}

	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		record, warnings := csvparser.ParseFields(fieldsFor(row, layout))
		for j := range warnings {
			warnings[j].Line = i + 1
			warnings[j].Record = len(result.Records)
		}

		result.Records = append(result.Records, record)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if len(result.Records) == 0 {
		return nil, &csvparser.ParseError{Err: csvparser.ErrNoDataRows}
	}

	return result, nil
}

// fieldsFor returns exactly five trimmed cells, blank where the row is short.
func fieldsFor(row []string, layout ColumnLayout) []string {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	return []string{
		getCell(layout.ID),
		getCell(layout.Name),
		getCell(layout.Department),
		getCell(layout.Total),
		getCell(layout.Attended),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func selectSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		if name == PreferredSheet {
			return name
		}
	}
	return f.GetSheetName(0)
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// Attendance Dashboard - CSV Record Parser
// =============================================================================
//
// This module converts raw delimited text into canonical attendance records.
// The input format is deliberately loose (it is whatever a spreadsheet export
// or an instructor's hand-edited file happens to contain):
//   - The first non-blank line is a header and is discarded unvalidated
//   - Fields are comma separated with surrounding whitespace trimmed
//   - There is no quoting support; names may contain bare commas
//
// FIELD-COUNT DISAMBIGUATION:
//   A line with more than 5 fields is assumed to carry commas inside the
//   name. The id is taken from the front, attended/total/department are
//   popped from the back and everything in between is re-joined as the name.
//
//   Example:
//   "1,Smith, John,CS,10,9"
//   -> id "1", name "Smith, John", department "CS", total 10, attended 9
//
// ERROR HANDLING:
//   - Only "no data rows" is fatal (ParseError)
//   - Numeric coercion failures keep the record and add a Warning
//   - Short rows keep the record with empty/invalid fields and add a Warning
//
// =============================================================================

package csvparser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// FIELD LAYOUT
// =============================================================================

// FieldCount is the number of fields in a well-formed line.
const FieldCount = 5

// Header is the canonical header line written by the CSV serializer.
var Header = []string{"StudentID", "Name", "Department", "Total_Classes", "Attended_Classes"}

// =============================================================================
// ERRORS AND WARNINGS
// =============================================================================

// ErrNoDataRows is returned (wrapped in a ParseError) when the input has no
// data lines after the header.
var ErrNoDataRows = errors.New("no data rows after header")

// ParseError is the only fatal parser error.
type ParseError struct {
	// Source is the file name, or empty for in-memory text.
	Source string

	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// WarningKind classifies a non-fatal row issue.
type WarningKind string

const (
	// WarningFieldCoercion means a numeric field failed coercion.
	WarningFieldCoercion WarningKind = "field_coercion"

	// WarningTooFewFields means the line had fewer than 5 fields.
	WarningTooFewFields WarningKind = "too_few_fields"

	// WarningAmbiguousRow means the >5 heuristic fired but the popped
	// trailing fields are not numeric, so the split is probably wrong.
	WarningAmbiguousRow WarningKind = "ambiguous_row"
)

// Warning describes a degraded-but-kept row.
type Warning struct {
	Kind WarningKind

	// Line is the 1-indexed line number in the original text.
	Line int

	// Record is the index of the affected record in the parsed set.
	Record int

	Field string
	Value string

	Message string
}

// String formats the warning for logs and the CLI.
func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return fmt.Sprintf("line %d: %s (field %s, value %q)", w.Line, w.Message, w.Field, w.Value)
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a successful parse.
type Result struct {
	// Records contains one record per data line, in input order.
	Records types.RecordSet

	// Warnings contains every non-fatal issue found.
	Warnings []Warning

	// Source is the file name, or empty for in-memory text.
	Source string
}

// HasWarnings reports whether any row was degraded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse converts raw text into a record set.
//
// PARAMETERS:
//   - text: The raw file contents.
//
// RETURNS:
//   - The parsed records with any row warnings.
//   - A *ParseError wrapping ErrNoDataRows if nothing follows the header.
func Parse(text string) (*Result, error) {
	lines := splitLines(text)
	if len(lines) <= 1 {
		return nil, &ParseError{Err: ErrNoDataRows}
	}

	result := &Result{
		Records: make(types.RecordSet, 0, len(lines)-1),
	}

	// The first remaining line is the header.
	for _, line := range lines[1:] {
		record, warnings := ParseFields(splitFields(line.text))
		for i := range warnings {
			warnings[i].Line = line.number
			warnings[i].Record = len(result.Records)
		}
		result.Records = append(result.Records, record)
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// ParseReader reads everything from r and parses it.
func ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Parse(string(data))
}

// ParseFile reads a CSV file and parses it.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//
// RETURNS:
//   - The parsed records with Source set to filePath.
//   - An error if the file cannot be read or has no data rows.
func ParseFile(filePath string) (*Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	result, err := Parse(string(data))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Source = filePath
		}
		return nil, err
	}

	result.Source = filePath
	return result, nil
}

// ParseFields maps one line's trimmed fields onto a record.
//
// This is exported so the XLSX importer can feed spreadsheet cells through
// the exact same rules. Returned warnings have Line and Record unset.
func ParseFields(parts []string) (types.Record, []Warning) {
	var warnings []Warning

	var id, name, dept, total, attended string
	var haveTotal, haveAttended bool

	switch {
	case len(parts) > FieldCount:
		// Names with commas: pop from the back, join the middle.
		n := len(parts)
		id = parts[0]
		attended, haveAttended = parts[n-1], true
		total, haveTotal = parts[n-2], true
		dept = parts[n-3]
		name = strings.Join(parts[1:n-3], ",")

	default:
		// Positional mapping. Short lines leave the tail empty.
		get := func(i int) (string, bool) {
			if i < len(parts) {
				return parts[i], true
			}
			return "", false
		}
		id, _ = get(0)
		name, _ = get(1)
		dept, _ = get(2)
		total, haveTotal = get(3)
		attended, haveAttended = get(4)

		if len(parts) < FieldCount {
			warnings = append(warnings, Warning{
				Kind:    WarningTooFewFields,
				Message: fmt.Sprintf("expected %d fields, found %d", FieldCount, len(parts)),
			})
		}
	}

	record := types.Record{
		ID:              id,
		Name:            name,
		Department:      dept,
		TotalClasses:    types.ParseCount(total),
		AttendedClasses: types.ParseCount(attended),
	}

	if haveTotal && !record.TotalClasses.Valid {
		warnings = append(warnings, coercionWarning("Total_Classes", total))
	}
	if haveAttended && !record.AttendedClasses.Valid {
		warnings = append(warnings, coercionWarning("Attended_Classes", attended))
	}

	if len(parts) > FieldCount && (!record.TotalClasses.Valid || !record.AttendedClasses.Valid) {
		warnings = append(warnings, Warning{
			Kind:    WarningAmbiguousRow,
			Message: fmt.Sprintf("%d fields with non-numeric trailing values; name may be mis-split", len(parts)),
		})
	}

	return record, warnings
}

// =============================================================================
// HELPERS
// =============================================================================

type line struct {
	number int
	text   string
}

// splitLines splits on LF, strips a trailing CR and drops blank lines.
func splitLines(text string) []line {
	raw := strings.Split(text, "\n")
	lines := make([]line, 0, len(raw))

	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, line{number: i + 1, text: l})
	}

	return lines
}

// splitFields splits on commas and trims every field.
func splitFields(text string) []string {
	parts := strings.Split(text, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func coercionWarning(field, value string) Warning {
	return Warning{
		Kind:    WarningFieldCoercion,
		Field:   field,
		Value:   value,
		Message: "value is not a whole number; percent will be undefined",
	}
}

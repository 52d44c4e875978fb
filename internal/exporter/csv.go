package exporter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// CSVEscape wraps a field in double quotes, doubling inner quotes, when it
// contains a comma or a double quote.
//
// The importer does not undo this: it splits on every comma and keeps quote
// characters literally. A quoted name therefore re-imports with its quotes
// (and any comma-joined pieces trimmed), while plain fields round-trip
// unchanged.
func CSVEscape(value string) string {
	if strings.ContainsAny(value, `,"`) {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// WriteCSV serializes the set: the canonical header, then one line per
// record, separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, set types.RecordSet) error {
	slog.Debug("Writing CSV export", slog.Int("record_count", len(set)))

	if _, err := io.WriteString(w, strings.Join(csvparser.Header, ",")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range set {
		fields := []string{
			r.ID,
			r.Name,
			r.Department,
			r.TotalClasses.String(),
			r.AttendedClasses.String(),
		}
		for j := range fields {
			fields[j] = CSVEscape(fields[j])
		}

		if _, err := io.WriteString(w, "\n"+strings.Join(fields, ",")); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return nil
}

// SerializeCSV returns the CSV export as a string.
func SerializeCSV(set types.RecordSet) string {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail.
	_ = WriteCSV(&buf, set)
	return buf.String()
}

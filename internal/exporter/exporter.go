// =============================================================================
// Attendance Dashboard - Export Runner
// =============================================================================
//
// Exports run as asynchronous tasks. Start returns a channel that delivers
// exactly one Result and is then closed; RunAll runs several formats
// concurrently and returns every result once all have finished.
//
// SUPPORTED FORMATS:
//   csv   - canonical five-column CSV (round-trips through the parser)
//   xlsx  - workbook with Attendance, Departments and Students sheets
//   xml   - records grouped by department
//   html  - standalone report
//   pdf   - the HTML report printed by headless Chrome
//
// =============================================================================

package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
	"github.com/ginjaninja78/attendance-dashboard/pkg/utils"
)

// Format is an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXML  Format = "xml"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// FormatAll selects every format.
const FormatAll = "all"

// Formats lists every format in the order "all" runs them.
var Formats = []Format{FormatCSV, FormatXLSX, FormatXML, FormatHTML, FormatPDF}

// ParseFormats parses a format name, or "all".
func ParseFormats(s string) ([]Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == FormatAll {
		return append([]Format(nil), Formats...), nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return []Format{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown export format %q (want csv, xlsx, xml, html, pdf or all)", s)
}

// Options configures where and how exports are written.
type Options struct {
	// Dir receives export files.
	Dir string

	// NameFormat is passed to utils.GenerateOutputFileName.
	NameFormat string

	// PDF configures the headless browser.
	PDF PDFOptions
}

// DefaultNameFormat names exports like attendance_20240115_143022_a1b2c3d4.csv.
const DefaultNameFormat = "attendance_{timestamp}_{shortid}"

// Result is the outcome of one export.
type Result struct {
	Format   Format
	Path     string
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Write writes one format to w.
func Write(ctx context.Context, w io.Writer, set types.RecordSet, format Format, opts Options) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, set)
	case FormatXLSX:
		return WriteXLSX(w, set)
	case FormatXML:
		return WriteXML(w, set)
	case FormatHTML:
		return WriteHTML(w, set)
	case FormatPDF:
		return WritePDF(ctx, w, set, opts.PDF)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// ExportFile writes one format to a new file in opts.Dir.
func ExportFile(ctx context.Context, set types.RecordSet, format Format, opts Options) Result {
	start := time.Now()
	res := Result{Format: format}

	nameFormat := opts.NameFormat
	if nameFormat == "" {
		nameFormat = DefaultNameFormat
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create export directory: %w", err)
		return res
	}

	name := utils.GenerateOutputFileName(nameFormat, string(format),
		map[string]string{"format": string(format)})
	res.Path = filepath.Join(opts.Dir, name)

	file, err := os.Create(res.Path)
	if err != nil {
		res.Err = fmt.Errorf("failed to create export file: %w", err)
		return res
	}

	err = Write(ctx, file, set, format, opts)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(res.Path)
		res.Err = fmt.Errorf("%s export failed: %w", format, err)
		return res
	}

	if info, err := os.Stat(res.Path); err == nil {
		res.Bytes = info.Size()
	}
	res.Duration = time.Since(start)

	slog.Info("Export written",
		slog.String("format", string(format)),
		slog.String("path", res.Path),
		slog.Int64("bytes", res.Bytes),
		slog.Duration("duration", res.Duration))

	return res
}

// SchemaFileName is the file ExportSchema writes.
const SchemaFileName = "attendance.xsd"

// ExportSchema writes the XSD of the XML export to opts.Dir and returns its
// path. The schema does not depend on the records, so the file is simply
// overwritten on each call.
func ExportSchema(opts Options) (string, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(opts.Dir, SchemaFileName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create schema file: %w", err)
	}

	err = WriteXSD(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("schema export failed: %w", err)
	}

	slog.Info("Schema written", slog.String("path", path))
	return path, nil
}

// Start runs ExportFile in the background. The set is copied first so later
// store mutations cannot affect the export.
func Start(ctx context.Context, set types.RecordSet, format Format, opts Options) <-chan Result {
	snapshot := set.Clone()
	out := make(chan Result, 1)

	go func() {
		defer close(out)
		out <- ExportFile(ctx, snapshot, format, opts)
	}()

	return out
}

// RunAll exports every format concurrently. Results come back in the order
// of formats. The returned error is the first export failure, if any; the
// other exports still run to completion.
func RunAll(ctx context.Context, set types.RecordSet, formats []Format, opts Options) ([]Result, error) {
	snapshot := set.Clone()
	results := make([]Result, len(formats))

	var g errgroup.Group
	for i, f := range formats {
		g.Go(func() error {
			results[i] = <-Start(ctx, snapshot, f, opts)
			return results[i].Err
		})
	}

	err := g.Wait()
	return results, err
}

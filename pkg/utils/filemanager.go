// =============================================================================
// Attendance Dashboard - File Manager Utility
// =============================================================================
//
// File helpers shared by the CLI and the exporters:
//   - Directory management (data and export directories)
//   - Import file discovery (CSV and XLSX, expanding directories)
//   - Export file naming
//   - Import warning logs and import summaries
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportExtensions are the file extensions accepted by the importer.
var ImportExtensions = []string{".csv", ".txt", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager owns the directories the dashboard reads from and writes to.
type FileManager struct {
	// DataDir holds the persisted snapshot.
	DataDir string

	// ExportDir receives exports, warning logs and summaries.
	ExportDir string
}

// NewFileManager creates a FileManager.
func NewFileManager(dataDir, exportDir string) *FileManager {
	return &FileManager{
		DataDir:   dataDir,
		ExportDir: exportDir,
	}
}

// EnsureDirectories creates every configured directory that does not exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.DataDir, fm.ExportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// ExpandImportPaths resolves command-line import arguments into files.
//
// PARAMETERS:
//   - paths: Files or directories. Directories are scanned (not recursively)
//     for files with an ImportExtensions extension, in name order.
//
// RETURNS:
//   - The files in argument order.
//   - An error if a path does not exist or a directory cannot be read.
func ExpandImportPaths(paths []string) ([]string, error) {
	var files []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", p, err)
		}

		var found []string
		for _, e := range entries {
			if e.IsDir() || !IsImportFile(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	return files, nil
}

// IsImportFile reports whether the file name has an importable extension.
func IsImportFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImportExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IsSpreadsheet reports whether the file should go through the XLSX reader.
func IsSpreadsheet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an export file name.
//
// PARAMETERS:
//   - format: The name pattern. Placeholders:
//     {uuid}      - a random UUID
//     {shortid}   - the first 8 characters of a random UUID
//     {timestamp} - YYYYMMDD_HHMMSS
//     {date}      - YYYYMMDD
//     {time}      - HHMMSS
//     plus any key supplied in params.
//   - ext: The extension to enforce, with or without the leading dot.
//   - params: Extra placeholder values.
//
// EXAMPLE:
//
//	format: "attendance_{timestamp}_{shortid}"
//	ext:    "csv"
//	output: "attendance_20240115_143022_a1b2c3d4.csv"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()
	id := uuid.New().String()

	replacements := map[string]string{
		"{uuid}":      id,
		"{shortid}":   id[:8],
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
			result += ext
		}
	}

	return result
}

// =============================================================================
// WARNING LOG
// =============================================================================

// WarningLogEntry is one import warning.
type WarningLogEntry struct {
	FileName string
	Kind     string
	Line     int
	Field    string
	Value    string
	Message  string
}

// WriteWarningLog writes import warnings to a timestamped text file.
//
// RETURNS:
//   - The path to the log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteWarningLog(entries []WarningLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir,
		fmt.Sprintf("import_warnings_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create warning log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Attendance Dashboard - Import Warnings\n"+
		"Generated: %s\n"+
		"Total Warnings: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Warning #%d\n"+
			"  File:    %s\n"+
			"  Kind:    %s\n"+
			"  Line:    %d\n",
			i+1, entry.FileName, entry.Kind, entry.Line)

		if entry.Field != "" {
			fmt.Fprintf(writer, "  Field:   %s\n", entry.Field)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:   %s\n", entry.Value)
		}
		fmt.Fprintf(writer, "  Message: %s\n\n", entry.Message)
	}

	writer.WriteString("================================================================================\n" +
		"End of Warning Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush warning log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// IMPORT SUMMARY
// =============================================================================

// ImportSummary describes one import run.
type ImportSummary struct {
	StartTime     time.Time
	EndTime       time.Time
	Files         []ImportedFileInfo
	TotalRecords  int
	TotalWarnings int
}

// ImportedFileInfo describes one imported file.
type ImportedFileInfo struct {
	InputFile string
	Records   int
	Warnings  int
}

// FormatImportSummary renders the summary as text.
func FormatImportSummary(summary ImportSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Imported %d record(s) from %d file(s) in %s\n",
		summary.TotalRecords,
		len(summary.Files),
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))

	for _, f := range summary.Files {
		fmt.Fprintf(&b, "  %-40s %5d record(s)", f.InputFile, f.Records)
		if f.Warnings > 0 {
			fmt.Fprintf(&b, "  %d warning(s)", f.Warnings)
		}
		b.WriteString("\n")
	}

	if summary.TotalWarnings > 0 {
		fmt.Fprintf(&b, "Warnings: %d\n", summary.TotalWarnings)
	}

	return b.String()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldExports removes export files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if the directory cannot be walked.
func CleanOldExports(exportDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(exportDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean exports: %w", err)
	}

	return removed, nil
}

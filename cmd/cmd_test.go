package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points data, exports and logs at a temporary directory.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("data_dir: %s\nexport_dir: %s\nlog_level: error\n",
		filepath.Join(dir, "data"), filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	listSearch, listDepartment, listStatus = "", "", ""
	exportFormat, exportDir, exportXSD = "csv", "", false
	noWarningLog = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCLI_SessionRoundTrip(t *testing.T) {
	cfg, dir := writeConfig(t)

	out, err := execute(t, "--config", cfg, "sample")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 10 sample record(s)")

	out, err = execute(t, "--config", cfg, "list", "--status", "low")
	require.NoError(t, err)
	assert.Contains(t, out, "Rahul Verma")
	assert.Contains(t, out, "Showing 4 of 10 rows")

	out, err = execute(t, "--config", cfg, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Defaulters: 4")
	assert.Contains(t, out, "Top:        Sneha Gupta")

	out, err = execute(t, "--config", cfg, "show", "104", "Sneha Gupta")
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance: 30 / 30 (100.0%)")

	out, err = execute(t, "--config", cfg, "sort", "percent")
	require.NoError(t, err)
	assert.Contains(t, out, "Sorted by percent (low to high)")

	out, err = execute(t, "--config", cfg, "remove", "103", "Rahul Verma")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 record(s)")

	out, err = execute(t, "--config", cfg, "export", "--format", "csv", "--xsd")
	require.NoError(t, err)
	assert.Contains(t, out, "attendance.xsd")
	matches, err := filepath.Glob(filepath.Join(dir, "exports", "*.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.FileExists(t, filepath.Join(dir, "exports", "attendance.xsd"))
}

func TestCLI_ShowExplainsUnknownStatus(t *testing.T) {
	cfg, dir := writeConfig(t)
	input := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(input,
		[]byte("StudentID,Name,Department,Total_Classes,Attended_Classes\n5,Dev,IT,0,0\n"), 0644))

	_, err := execute(t, "--config", cfg, "import", input)
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "show", "5", "Dev")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:     Unknown")
	assert.Contains(t, out, "Note:       attendance percent undefined")
}

func TestCLI_AddRejectsInvalidRecord(t *testing.T) {
	cfg, _ := writeConfig(t)

	_, err := execute(t, "--config", cfg, "add", "1", "Alice", "CS", "10", "12")
	require.Error(t, err)

	out, err := execute(t, "--config", cfg, "add", "1", "Alice", "CS", "10", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Alice (1): 80.0% Medium")
}

func TestCLI_ImportWritesWarningLog(t *testing.T) {
	cfg, dir := writeConfig(t)
	input := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(input,
		[]byte("StudentID,Name,Department,Total_Classes,Attended_Classes\n1,Alice,CS,10,8\n2,Bob,CS,ten,5\n"), 0644))

	out, err := execute(t, "--config", cfg, "import", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 record(s) from 1 file(s)")

	logs, err := filepath.Glob(filepath.Join(dir, "exports", "import_warnings_*.txt"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestCLI_SortRejectsUnknownField(t *testing.T) {
	cfg, _ := writeConfig(t)

	_, err := execute(t, "--config", cfg, "sort", "height")
	assert.Error(t, err)
}

func TestCLI_ConfigInitAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, path)

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance Dashboard")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsWhenFilesMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFiles(filepath.Join(dir, "config.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
data_dir: /var/lib/attendash
storage_backend: SQLite
pdf_timeout: 45s
locale: fr
`)

	cfg, err := LoadFiles(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/attendash", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 45*time.Second, cfg.PDFTimeout)
	assert.Equal(t, "fr", cfg.Locale)
	assert.Equal(t, "attendanceData_v1", cfg.StorageKey)
}

func TestLoad_EnvOverridesYAMLAndDotenv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "locale: fr\nexport_dir: ./from-yaml\n")
	envFile := writeFile(t, dir, ".env", "ATTENDASH_LOCALE=de\nATTENDASH_EXPORT_DIR=./from-dotenv\n")

	t.Setenv("ATTENDASH_LOCALE", "sv")

	cfg, err := LoadFiles(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "sv", cfg.Locale)
	assert.Equal(t, "./from-dotenv", cfg.ExportDir)
}

func TestLoad_DotenvDoesNotTouchProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ATTENDASH_SERVER_ADDRESS=0.0.0.0:9999\n")

	cfg, err := LoadFiles(filepath.Join(dir, "none.yaml"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.ServerAddress)

	_, set := os.LookupEnv("ATTENDASH_SERVER_ADDRESS")
	assert.False(t, set)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "storage_backend: postgres\n"},
		{"unknown log level", "log_level: loud\n"},
		{"unknown log output", "log_output: syslog\n"},
		{"zero pdf timeout", "pdf_timeout: 0s\n"},
		{"file output without path", "log_output: file\nlog_file: \"\"\n"},
		{"malformed yaml", "data_dir: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "config.yaml", tt.yaml)

			_, err := LoadFiles(path, "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("ATTENDASH_PDF_TIMEOUT", "soon")

	_, err := LoadFiles(filepath.Join(t.TempDir(), "none.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := LoadFiles(path, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Error(t, WriteDefault(path))
}

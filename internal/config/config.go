// =============================================================================
// Attendance Dashboard - Configuration Module
// =============================================================================
//
// Loads the application configuration. Sources are applied in order, each
// overriding the previous one:
//
//   1. Built-in defaults (Default)
//   2. The YAML config file, if it exists (config.yaml by default)
//   3. A .env file, if it exists
//   4. ATTENDASH_* environment variables
//
// The result is validated before it is returned.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// DefaultEnvFile is the dotenv file read next to the working directory.
const DefaultEnvFile = ".env"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// STORAGE SETTINGS
	// =========================================================================

	// DataDir holds the persisted snapshot.
	// Default: "./data"
	DataDir string `yaml:"data_dir" env:"ATTENDASH_DATA_DIR" validate:"required"`

	// StorageBackend selects the key-value store: "file" or "sqlite".
	// Default: "file"
	StorageBackend string `yaml:"storage_backend" env:"ATTENDASH_STORAGE_BACKEND" validate:"oneof=file sqlite"`

	// StorageKey is the key the record snapshot is saved under.
	// Default: "attendanceData_v1"
	StorageKey string `yaml:"storage_key" env:"ATTENDASH_STORAGE_KEY" validate:"required"`

	// =========================================================================
	// EXPORT SETTINGS
	// =========================================================================

	// ExportDir receives exports and import warning logs.
	// Default: "./exports"
	ExportDir string `yaml:"export_dir" env:"ATTENDASH_EXPORT_DIR" validate:"required"`

	// OutputNameFormat names export files. Placeholders: {timestamp},
	// {date}, {time}, {uuid}, {shortid}, {format}. The extension is added.
	// Default: "attendance_{timestamp}_{shortid}"
	OutputNameFormat string `yaml:"output_name_format" env:"ATTENDASH_OUTPUT_NAME_FORMAT" validate:"required"`

	// ExportRetention removes exports older than this before each export.
	// Zero keeps everything.
	ExportRetention time.Duration `yaml:"export_retention" env:"ATTENDASH_EXPORT_RETENTION" validate:"gte=0"`

	// ChromePath overrides the browser used for PDF export.
	ChromePath string `yaml:"chrome_path" env:"ATTENDASH_CHROME_PATH"`

	// PDFTimeout bounds one PDF render.
	// Default: 30s
	PDFTimeout time.Duration `yaml:"pdf_timeout" env:"ATTENDASH_PDF_TIMEOUT" validate:"gt=0"`

	// =========================================================================
	// DISPLAY SETTINGS
	// =========================================================================

	// Locale drives name collation, as a BCP 47 tag.
	// Default: "en"
	Locale string `yaml:"locale" env:"ATTENDASH_LOCALE" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"ATTENDASH_LOG_LEVEL" validate:"oneof=debug info warn warning error"`

	// LogOutput is "stdout", "file" or "both".
	// Default: "stdout"
	LogOutput string `yaml:"log_output" env:"ATTENDASH_LOG_OUTPUT" validate:"oneof=stdout file both"`

	// LogFile is used when LogOutput is "file" or "both".
	// Default: "./logs/attendash.log"
	LogFile string `yaml:"log_file" env:"ATTENDASH_LOG_FILE"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	// ServerAddress is the listen address for the dashboard API.
	// Default: "127.0.0.1:8080"
	ServerAddress string `yaml:"server_address" env:"ATTENDASH_SERVER_ADDRESS" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:          "./data",
		StorageBackend:   "file",
		StorageKey:       "attendanceData_v1",
		ExportDir:        "./exports",
		OutputNameFormat: "attendance_{timestamp}_{shortid}",
		PDFTimeout:       30 * time.Second,
		Locale:           "en",
		LogLevel:         "info",
		LogOutput:        "stdout",
		LogFile:          "./logs/attendash.log",
		ServerAddress:    "127.0.0.1:8080",
	}
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads configuration from path and DefaultEnvFile.
//
// PARAMETERS:
//   - configPath: The YAML file. A missing file is not an error; an empty
//     path means DefaultConfigPath.
//
// RETURNS:
//   - The validated configuration.
//   - An error if a file cannot be parsed or validation fails.
func Load(configPath string) (*Config, error) {
	return LoadFiles(configPath, DefaultEnvFile)
}

// LoadFiles is Load with an explicit dotenv file.
func LoadFiles(configPath, envFile string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg := Default()

	if err := loadYAML(configPath, cfg); err != nil {
		return nil, err
	}

	environment, err := environment(envFile)
	if err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML overlays the YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// environment merges the dotenv file under the process environment. The
// process environment wins; the process itself is not modified.
func environment(envFile string) (map[string]string, error) {
	merged := make(map[string]string)

	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		default:
			for k, v := range values {
				merged[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}

	return merged, nil
}

func (c *Config) normalize() {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogOutput = strings.ToLower(strings.TrimSpace(c.LogOutput))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field rule.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.LogOutput != "stdout" && c.LogFile == "" {
		return fmt.Errorf("LogFile is required when LogOutput is %q", c.LogOutput)
	}

	return nil
}

// =============================================================================
// WRITING
// =============================================================================

// WriteDefault writes the default configuration as YAML, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the slop configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the slop state directory
const ConfigDirName = ".slop"

// Config holds all slop configuration
type Config struct {
	Scan   ScanConfig   `yaml:"scan"`
	Output OutputConfig `yaml:"output"`
	Report ReportConfig `yaml:"report"`
}

// ScanConfig holds configuration for project scanning
type ScanConfig struct {
	// Exclude patterns, matched against relative paths and base names
	Exclude []string `yaml:"exclude"`
	// Workers caps scan parallelism; 0 uses all CPUs
	Workers int `yaml:"workers"`
	// ConfigFiles toggles the duplicate-key scan of config files
	ConfigFiles bool `yaml:"config_files"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	Format        string `yaml:"format"`
	ShowDiscarded bool   `yaml:"show_discarded"`
	MaxFindings   int    `yaml:"max_findings"`
}

// ReportConfig holds configuration for report gating in CI
type ReportConfig struct {
	// FailBand makes `slop report` exit non-zero when the density band
	// is this bad or worse; empty disables gating
	FailBand string `yaml:"fail_band"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .slop/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		// No config dir found, return defaults
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Merge with defaults
	merged := Merge(loaded, DefaultConfig())

	// Validate the merged config
	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .slop directory by walking up from startDir.
// Returns the path to the .slop directory if found.
func FindConfigDir(startDir string) (string, error) {
	// Get absolute path
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		// Move to parent directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, config not found
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .slop directory if it doesn't exist.
// Returns the path to the .slop directory.
func EnsureConfigDir(workDir string) (string, error) {
	// Get absolute path
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	// Check if it already exists
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	// Create the directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	// Validate output format
	if !IsValidFormat(cfg.Output.Format) {
		return fmt.Errorf("%w: format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}

	// Validate workers (should be non-negative)
	if cfg.Scan.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d",
			ErrInvalidConfig, cfg.Scan.Workers)
	}

	// Validate max_findings (should be positive)
	if cfg.Output.MaxFindings <= 0 {
		return fmt.Errorf("%w: max_findings must be positive, got %d",
			ErrInvalidConfig, cfg.Output.MaxFindings)
	}

	// Validate fail_band when set
	if cfg.Report.FailBand != "" && !IsValidBand(cfg.Report.FailBand) {
		return fmt.Errorf("%w: fail_band must be one of %v, got %q",
			ErrInvalidConfig, ValidBands, cfg.Report.FailBand)
	}

	return nil
}

// SaveDefault writes the default configuration to .slop/config.yaml in workDir.
// Creates the .slop directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	// Add header comment
	header := "# slop configuration\n# See https://github.com/slopdetect/slop for documentation\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}

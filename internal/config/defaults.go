package config

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Exclude: []string{
				"venv/**",
				".venv/**",
				"node_modules/**",
				"dist/**",
				"build/**",
				"**/__pycache__/**",
				"**/*.egg-info/**",
			},
			Workers:     0,
			ConfigFiles: true,
		},
		Output: OutputConfig{
			Format:        "table",
			ShowDiscarded: false,
			MaxFindings:   200,
		},
		Report: ReportConfig{
			FailBand: "",
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	// Merge Scan config
	result.Scan = mergeScanConfig(loaded.Scan, defaults.Scan)

	// Merge Output config
	result.Output = mergeOutputConfig(loaded.Output, defaults.Output)

	// Merge Report config
	result.Report = mergeReportConfig(loaded.Report, defaults.Report)

	return result
}

func mergeScanConfig(loaded, defaults ScanConfig) ScanConfig {
	result := ScanConfig{}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	// Workers: use loaded if non-zero
	if loaded.Workers != 0 {
		result.Workers = loaded.Workers
	} else {
		result.Workers = defaults.Workers
	}

	// ConfigFiles: use loaded value (bool can't distinguish unset from false)
	// Users who want false will set it explicitly
	result.ConfigFiles = loaded.ConfigFiles
	if !loaded.ConfigFiles && defaults.ConfigFiles {
		result.ConfigFiles = defaults.ConfigFiles
	}

	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := OutputConfig{}

	// Format: use loaded if non-empty
	if loaded.Format != "" {
		result.Format = loaded.Format
	} else {
		result.Format = defaults.Format
	}

	// ShowDiscarded: use loaded value (same bool handling)
	result.ShowDiscarded = loaded.ShowDiscarded

	// MaxFindings: use loaded if non-zero
	if loaded.MaxFindings != 0 {
		result.MaxFindings = loaded.MaxFindings
	} else {
		result.MaxFindings = defaults.MaxFindings
	}

	return result
}

func mergeReportConfig(loaded, defaults ReportConfig) ReportConfig {
	result := ReportConfig{}

	// FailBand: use loaded if non-empty
	if loaded.FailBand != "" {
		result.FailBand = loaded.FailBand
	} else {
		result.FailBand = defaults.FailBand
	}

	return result
}

// ValidFormats lists the valid values for output format
var ValidFormats = []string{"table", "yaml", "json"}

// IsValidFormat checks if the given format value is valid
func IsValidFormat(format string) bool {
	for _, valid := range ValidFormats {
		if format == valid {
			return true
		}
	}
	return false
}

// ValidBands lists the density bands usable as a report gate
var ValidBands = []string{"good", "needs-work", "heavy"}

// IsValidBand checks if the given band value is valid
func IsValidBand(band string) bool {
	for _, valid := range ValidBands {
		if band == valid {
			return true
		}
	}
	return false
}

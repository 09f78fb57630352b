package config

import "runtime"

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// the config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Languages: []string{"python"},
			Exclude: []string{
				"**/site-packages/**",
				"**/migrations/**",
			},
			MaxFileSize: 1_000_000,
		},
		Workers: WorkersConfig{
			Parse:        runtime.GOMAXPROCS(0),
			Repositories: 2,
		},
		Output: OutputConfig{
			Dir:      "out",
			Sink:     SinkJSONL,
			Database: "relmap.db",
		},
	}
}

// Merge fills unset fields of loaded from defaults.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Scan:    mergeScanConfig(loaded.Scan, defaults.Scan),
		Workers: mergeWorkersConfig(loaded.Workers, defaults.Workers),
		Output:  mergeOutputConfig(loaded.Output, defaults.Output),
	}
}

func mergeScanConfig(loaded, defaults ScanConfig) ScanConfig {
	result := ScanConfig{SkipTests: loaded.SkipTests}

	// Use loaded languages if provided, otherwise defaults
	if len(loaded.Languages) > 0 {
		result.Languages = loaded.Languages
	} else {
		result.Languages = defaults.Languages
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	if loaded.MaxFileSize != 0 {
		result.MaxFileSize = loaded.MaxFileSize
	} else {
		result.MaxFileSize = defaults.MaxFileSize
	}

	return result
}

func mergeWorkersConfig(loaded, defaults WorkersConfig) WorkersConfig {
	result := defaults
	if loaded.Parse != 0 {
		result.Parse = loaded.Parse
	}
	if loaded.Repositories != 0 {
		result.Repositories = loaded.Repositories
	}
	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := defaults
	if loaded.Dir != "" {
		result.Dir = loaded.Dir
	}
	if loaded.Sink != "" {
		result.Sink = loaded.Sink
	}
	if loaded.Database != "" {
		result.Database = loaded.Database
	}
	return result
}

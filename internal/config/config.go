// Package config loads relmap settings from .relmap.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/relmap/internal/lang"
)

// FileName is the name of the relmap configuration file.
const FileName = ".relmap.yaml"

// Sink names accepted by output.sink.
const (
	SinkJSONL  = "jsonl"
	SinkSQLite = "sqlite"
)

// ValidSinks lists the accepted output.sink values.
var ValidSinks = []string{SinkJSONL, SinkSQLite}

// Config holds all relmap configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Workers WorkersConfig `yaml:"workers"`
	Output  OutputConfig  `yaml:"output"`
}

// ScanConfig controls which files of a snapshot are extracted.
type ScanConfig struct {
	Languages   []string `yaml:"languages"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size"`
	SkipTests   bool     `yaml:"skip_tests"`
}

// WorkersConfig bounds concurrency.
type WorkersConfig struct {
	Parse        int `yaml:"parse"`
	Repositories int `yaml:"repositories"`
}

// OutputConfig selects where records go.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Sink     string `yaml:"sink"`
	Database string `yaml:"database"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads .relmap.yaml from workDir or the nearest parent that has one,
// falling back to defaults when there is none.
func Load(workDir string) (*Config, error) {
	path, err := Find(workDir)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads config from a specific path, merges it with defaults and
// validates the result. A missing file yields defaults.
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

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Find locates the config file by walking up from startDir.
func Find(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	current := absDir
	for {
		path := filepath.Join(current, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrConfigNotFound
		}
		current = parent
	}
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if _, err := lang.Lookup(cfg.Scan.Languages); err != nil {
		return fmt.Errorf("%w: scan.languages: %v", ErrInvalidConfig, err)
	}
	if len(cfg.Scan.Languages) == 0 {
		return fmt.Errorf("%w: scan.languages must not be empty", ErrInvalidConfig)
	}
	if cfg.Scan.MaxFileSize < 0 {
		return fmt.Errorf("%w: scan.max_file_size must be non-negative, got %d",
			ErrInvalidConfig, cfg.Scan.MaxFileSize)
	}
	if cfg.Workers.Parse < 0 || cfg.Workers.Repositories < 0 {
		return fmt.Errorf("%w: worker counts must be non-negative, got parse=%d repositories=%d",
			ErrInvalidConfig, cfg.Workers.Parse, cfg.Workers.Repositories)
	}
	if !slices.Contains(ValidSinks, cfg.Output.Sink) {
		return fmt.Errorf("%w: output.sink must be one of %v, got %q",
			ErrInvalidConfig, ValidSinks, cfg.Output.Sink)
	}
	if cfg.Output.Sink == SinkSQLite && cfg.Output.Database == "" {
		return fmt.Errorf("%w: output.database is required for the sqlite sink", ErrInvalidConfig)
	}
	return nil
}

// Marshal renders cfg as YAML with a short header.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	header := "# relmap configuration\n# Matching thresholds are fixed and cannot be set here.\n\n"
	return append([]byte(header), data...), nil
}

// SaveDefault writes the default configuration to dir/.relmap.yaml and
// returns its path. An existing file is never overwritten.
func SaveDefault(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

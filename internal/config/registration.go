package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults for fields left unset.
const (
	DefaultOverlapThreshold = 12
	DefaultWorkers          = 1
	DefaultLogLevel         = LogLevelOps
)

// Log levels, from least to most verbose.
const (
	LogLevelOps   = "ops"
	LogLevelDiag  = "diag"
	LogLevelTrace = "trace"
)

// maxFileSize caps config files (1MB).
const maxFileSize = 1 * 1024 * 1024

// RegistrationConfig holds the tunables of a reconstruction run. Fields are
// pointers so a partial file only overrides what it names; the Get* methods
// supply defaults for the rest.
type RegistrationConfig struct {
	OverlapThreshold *int    `json:"overlap_threshold,omitempty" yaml:"overlap_threshold,omitempty"`
	ReferenceScanner *int    `json:"reference_scanner,omitempty" yaml:"reference_scanner,omitempty"`
	Workers          *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	LogLevel         *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	// Database is the SQLite run store path; empty disables persistence.
	Database *string `json:"database,omitempty" yaml:"database,omitempty"`
}

// Int returns a pointer to v, for building overrides.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building overrides.
func String(v string) *string { return &v }

// EmptyRegistrationConfig returns a config with every field unset.
func EmptyRegistrationConfig() *RegistrationConfig {
	return &RegistrationConfig{}
}

// DefaultRegistrationConfig returns a config with every defaulted field set.
// ReferenceScanner and Database stay unset: their defaults depend on the
// input and the command line.
func DefaultRegistrationConfig() *RegistrationConfig {
	return &RegistrationConfig{
		OverlapThreshold: Int(DefaultOverlapThreshold),
		Workers:          Int(DefaultWorkers),
		LogLevel:         String(DefaultLogLevel),
	}
}

// LoadRegistrationConfig loads a config from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults.
func LoadRegistrationConfig(path string) (*RegistrationConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRegistrationConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RegistrationConfig) Validate() error {
	if c.OverlapThreshold != nil && *c.OverlapThreshold < 1 {
		return fmt.Errorf("overlap_threshold must be at least 1, got %d", *c.OverlapThreshold)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.LogLevel != nil {
		switch *c.LogLevel {
		case LogLevelOps, LogLevelDiag, LogLevelTrace:
		default:
			return fmt.Errorf("log_level must be one of %q, %q, %q, got %q", LogLevelOps, LogLevelDiag, LogLevelTrace, *c.LogLevel)
		}
	}
	return nil
}

// Merge copies every set field of o over c. A nil o is a no-op.
func (c *RegistrationConfig) Merge(o *RegistrationConfig) {
	if o == nil {
		return
	}
	if o.OverlapThreshold != nil {
		c.OverlapThreshold = Int(*o.OverlapThreshold)
	}
	if o.ReferenceScanner != nil {
		c.ReferenceScanner = Int(*o.ReferenceScanner)
	}
	if o.Workers != nil {
		c.Workers = Int(*o.Workers)
	}
	if o.LogLevel != nil {
		c.LogLevel = String(*o.LogLevel)
	}
	if o.Database != nil {
		c.Database = String(*o.Database)
	}
}

// GetOverlapThreshold returns the overlap_threshold value or the default.
func (c *RegistrationConfig) GetOverlapThreshold() int {
	if c.OverlapThreshold == nil {
		return DefaultOverlapThreshold
	}
	return *c.OverlapThreshold
}

// GetReferenceScanner returns the reference scanner ID and whether one was set.
func (c *RegistrationConfig) GetReferenceScanner() (int, bool) {
	if c.ReferenceScanner == nil {
		return 0, false
	}
	return *c.ReferenceScanner, true
}

// GetWorkers returns the workers value or the default.
func (c *RegistrationConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetLogLevel returns the log_level value or the default.
func (c *RegistrationConfig) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return DefaultLogLevel
	}
	return *c.LogLevel
}

// GetDatabase returns the database path, empty when persistence is off.
func (c *RegistrationConfig) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}

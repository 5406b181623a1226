// Package config holds the persistent settings of cmpf.
package config

import (
	"fmt"

	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Compare     CompareConfig     `yaml:"compare" mapstructure:"compare"`
	Scan        ScanConfig        `yaml:"scan" mapstructure:"scan"`
	Performance PerformanceConfig `yaml:"performance" mapstructure:"performance"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Sync        SyncConfig        `yaml:"sync" mapstructure:"sync"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	Mode      models.Mode          `yaml:"mode" mapstructure:"mode"`
	Algorithm models.Algorithm     `yaml:"algorithm" mapstructure:"algorithm"`
	Symlinks  models.SymlinkPolicy `yaml:"symlinks" mapstructure:"symlinks"`
	Sort      bool                 `yaml:"sort" mapstructure:"sort"`
	DiffCmd   string               `yaml:"diff_cmd" mapstructure:"diff_cmd"` // realtime mode only
}

// ScanConfig holds directory walk filters
type ScanConfig struct {
	Depth     int      `yaml:"depth" mapstructure:"depth"` // 0 = unlimited
	Recursive bool     `yaml:"recursive" mapstructure:"recursive"`
	Hidden    bool     `yaml:"hidden" mapstructure:"hidden"`
	Types     []string `yaml:"types" mapstructure:"types"`
	Ignore    []string `yaml:"ignore" mapstructure:"ignore"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	Workers        int   `yaml:"workers" mapstructure:"workers"`                 // 0 = one per CPU
	BandwidthLimit int64 `yaml:"bandwidth_limit" mapstructure:"bandwidth_limit"` // bytes per second, 0 = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format" mapstructure:"format"` // "txt" or "json"
	Folder   string `yaml:"folder" mapstructure:"folder"` // write reports here instead of stdout
	Color    bool   `yaml:"color" mapstructure:"color"`
	Progress bool   `yaml:"progress" mapstructure:"progress"`
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	File       string `yaml:"file" mapstructure:"file"` // empty disables logging
	Format     string `yaml:"format" mapstructure:"format"`
	Level      string `yaml:"level" mapstructure:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// SyncConfig holds sync settings
type SyncConfig struct {
	DeleteExtraneous bool `yaml:"delete_extraneous" mapstructure:"delete_extraneous"`
	NoDelete         bool `yaml:"no_delete" mapstructure:"no_delete"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			Mode:      models.ModeBatch,
			Algorithm: models.AlgoBLAKE3,
			Symlinks:  models.SymlinkIgnore,
			Sort:      true,
		},
		Scan: ScanConfig{
			Recursive: true,
		},
		Output: OutputConfig{
			Format:   "txt",
			Color:    true,
			Progress: true,
		},
		Logging: LoggingConfig{
			Format:     "json",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := models.ParseMode(string(c.Compare.Mode)); err != nil {
		return prefixed("compare", err)
	}
	if _, err := models.ParseAlgorithm(string(c.Compare.Algorithm)); err != nil {
		return prefixed("compare", err)
	}
	if _, err := models.ParseSymlinkPolicy(string(c.Compare.Symlinks)); err != nil {
		return prefixed("compare", err)
	}

	if c.Scan.Depth < 0 {
		return &models.ValidationError{Field: "scan.depth", Message: "must not be negative"}
	}

	if c.Performance.Workers < 0 {
		return &models.ValidationError{
			Field:   "performance.workers",
			Message: fmt.Sprintf("must be at least 1 (or 0 for one per CPU), got %d", c.Performance.Workers),
		}
	}
	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{Field: "performance.bandwidth_limit", Message: "must not be negative"}
	}

	validFormats := map[string]bool{"txt": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'txt' or 'json'",
		}
	}

	validLogFormats := map[string]bool{string(logging.FormatJSON): true, string(logging.FormatText): true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Sync.DeleteExtraneous && c.Sync.NoDelete {
		return &models.ValidationError{
			Field:   "sync.delete_extraneous",
			Message: "cannot be combined with sync.no_delete",
		}
	}

	return nil
}

func prefixed(section string, err error) error {
	if verr, ok := err.(*models.ValidationError); ok {
		return &models.ValidationError{Field: section + "." + verr.Field, Message: verr.Message}
	}
	return err
}

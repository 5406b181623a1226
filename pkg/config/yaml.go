package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. CMPF_COMPARE_ALGORITHM
const EnvPrefix = "CMPF"

// Load reads configuration from path, layered over the defaults and under
// CMPF_* environment variables. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment overrides apply to it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("compare.mode", string(d.Compare.Mode))
	v.SetDefault("compare.algorithm", string(d.Compare.Algorithm))
	v.SetDefault("compare.symlinks", string(d.Compare.Symlinks))
	v.SetDefault("compare.sort", d.Compare.Sort)
	v.SetDefault("compare.diff_cmd", d.Compare.DiffCmd)

	v.SetDefault("scan.depth", d.Scan.Depth)
	v.SetDefault("scan.recursive", d.Scan.Recursive)
	v.SetDefault("scan.hidden", d.Scan.Hidden)
	v.SetDefault("scan.types", d.Scan.Types)
	v.SetDefault("scan.ignore", d.Scan.Ignore)

	v.SetDefault("performance.workers", d.Performance.Workers)
	v.SetDefault("performance.bandwidth_limit", d.Performance.BandwidthLimit)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.folder", d.Output.Folder)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("output.progress", d.Output.Progress)
	v.SetDefault("output.verbose", d.Output.Verbose)

	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)

	v.SetDefault("sync.delete_extraneous", d.Sync.DeleteExtraneous)
	v.SetDefault("sync.no_delete", d.Sync.NoDelete)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".config", "cmpf", "config.yaml"), nil
}

// LoadDefault loads the configuration from the default location.
// A missing file yields the defaults with environment overrides applied.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Load("")
	}

	return Load(path)
}

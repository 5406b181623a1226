package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/internal/platform"
	"github.com/sdejongh/cmpf/pkg/collector"
	"github.com/sdejongh/cmpf/pkg/compare"
	"github.com/sdejongh/cmpf/pkg/config"
	"github.com/sdejongh/cmpf/pkg/hasher"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/output"
	"github.com/sdejongh/cmpf/pkg/pool"
)

// resolveRoots canonicalizes the folder arguments of a command
func resolveRoots(paths ...string) ([]string, error) {
	roots := make([]string, len(paths))
	for i, p := range paths {
		root, err := platform.CanonicalRoot(p)
		if err != nil {
			return nil, err
		}
		roots[i] = root
	}
	return roots, nil
}

// loadConfig loads configuration from file or returns default
func loadConfig(f *GlobalFlags) (*config.Config, error) {
	if f.ConfigFile != "" {
		return config.Load(f.ConfigFile)
	}
	return config.LoadDefault()
}

// prepareConfig loads the configuration and overlays the command-line flags
func prepareConfig(cmd *cobra.Command, f *GlobalFlags) (*config.Config, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cmd, f, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagsToConfig overrides config values with the flags set on the command line
func applyFlagsToConfig(cmd *cobra.Command, f *GlobalFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("depth") && changed("no-recursive") {
		return &models.ValidationError{Field: "depth", Message: "cannot be combined with --no-recursive"}
	}
	if changed("threads") && f.Threads < 1 {
		return &models.ValidationError{
			Field:   "threads",
			Message: fmt.Sprintf("must be at least 1, got %d", f.Threads),
		}
	}

	// Comparison
	if changed("mode") {
		cfg.Compare.Mode = models.Mode(strings.ToLower(f.Mode))
	}
	if changed("algo") {
		cfg.Compare.Algorithm = models.Algorithm(strings.ToLower(f.Algo))
	}
	if changed("symlinks") {
		cfg.Compare.Symlinks = models.SymlinkPolicy(strings.ToLower(f.Symlinks))
	}
	if changed("no-sort") {
		cfg.Compare.Sort = !f.NoSort
	}
	if changed("diff-cmd") {
		cfg.Compare.DiffCmd = f.DiffCmd
	}
	if changed("threads") {
		cfg.Performance.Workers = f.Threads
	}

	// Scan filters
	if changed("depth") {
		cfg.Scan.Depth = f.Depth
		cfg.Scan.Recursive = true
	}
	if changed("no-recursive") {
		cfg.Scan.Recursive = !f.NoRecursive
	}
	if changed("hidden") {
		cfg.Scan.Hidden = f.Hidden
	}
	if changed("type") {
		cfg.Scan.Types = f.Types
	}
	if changed("ignore") {
		cfg.Scan.Ignore = f.Ignore
	}

	// Output
	if changed("output-format") {
		format, err := output.ParseFormat(f.OutputFormat)
		if err != nil {
			return err
		}
		cfg.Output.Format = string(format)
	}
	if changed("output-folder") {
		cfg.Output.Folder = f.OutputFolder
	}
	if changed("verbose") {
		cfg.Output.Verbose = f.Verbose
	}
	if f.NoColor {
		cfg.Output.Color = false
	}
	if f.NoProgress {
		cfg.Output.Progress = false
	}

	// Logging
	if changed("log-file") {
		cfg.Logging.File = f.LogFile
	}
	if changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}

	return cfg.Validate()
}

// parseBandwidth parses a bandwidth limit such as "10M" or "512KiB" into bytes per second.
// An empty string means unlimited.
func parseBandwidth(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, &models.ValidationError{Field: "bandwidth", Message: err.Error()}
	}
	return int64(n), nil
}

// newPool creates the worker pool shared by every stage of one invocation
func newPool(cfg *config.Config) (*pool.Pool, error) {
	return pool.New(cfg.Performance.Workers)
}

// collectorOptions maps the scan settings onto walk options
func collectorOptions(cfg *config.Config) collector.Options {
	return collector.Options{
		MaxDepth:     cfg.Scan.Depth,
		NonRecursive: !cfg.Scan.Recursive,
		Hidden:       cfg.Scan.Hidden,
		Extensions:   cfg.Scan.Types,
		Ignore:       cfg.Scan.Ignore,
		Symlinks:     cfg.Compare.Symlinks,
		FoldCase:     platform.CaseInsensitive(),
	}
}

// newDiffer creates the comparison engine described by cfg
func newDiffer(cfg *config.Config, p *pool.Pool, logger logging.Logger) (*compare.Differ, error) {
	return compare.New(compare.Config{
		Mode:      cfg.Compare.Mode,
		Algorithm: cfg.Compare.Algorithm,
		Symlinks:  cfg.Compare.Symlinks,
		Sort:      cfg.Compare.Sort,
	}, hasher.NewWithPool(p), p, logger)
}

// textOptions decides verbosity and coloring for text written to f
func textOptions(cfg *config.Config, f *os.File) output.TextOptions {
	return output.TextOptions{
		Verbose: cfg.Output.Verbose,
		Color:   cfg.Output.Color && f != nil && output.IsTerminal(f),
	}
}

// createLogger creates a logger based on configuration. Without a log file,
// verbose runs log warnings to stderr and other runs discard logs.
func createLogger(cfg config.LoggingConfig, verbose bool) (logging.Logger, error) {
	if cfg.File == "" {
		if verbose {
			return logging.NewConsoleLogger(logging.WarnLevel), nil
		}
		return logging.NewNullLogger(), nil
	}

	format := logging.FormatText
	if cfg.Format == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Level),
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
}

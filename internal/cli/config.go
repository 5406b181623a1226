package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `View or create the cmpf configuration file.

Every setting can also be overridden with a CMPF_ environment variable,
e.g. CMPF_COMPARE_ALGORITHM=sha256.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := prepareConfig(cmd, &globalFlags)
			if err != nil {
				return err
			}

			showConfig(os.Stdout, cfg)
			return nil
		},
	}
}

// showConfig prints the effective settings
func showConfig(w io.Writer, cfg *config.Config) {
	depth := "unlimited"
	if !cfg.Scan.Recursive {
		depth = "1"
	} else if cfg.Scan.Depth > 0 {
		depth = fmt.Sprintf("%d", cfg.Scan.Depth)
	}
	workers := "one per CPU"
	if cfg.Performance.Workers > 0 {
		workers = fmt.Sprintf("%d", cfg.Performance.Workers)
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = "(disabled)"
	}

	fmt.Fprintf(w, "Mode: %s\n", cfg.Compare.Mode)
	fmt.Fprintf(w, "Algorithm: %s\n", cfg.Compare.Algorithm)
	fmt.Fprintf(w, "Symlinks: %s\n", cfg.Compare.Symlinks)
	fmt.Fprintf(w, "Sort Results: %t\n", cfg.Compare.Sort)
	fmt.Fprintf(w, "Depth: %s\n", depth)
	fmt.Fprintf(w, "Hidden Files: %t\n", cfg.Scan.Hidden)
	fmt.Fprintf(w, "Types: %s\n", strings.Join(cfg.Scan.Types, ", "))
	fmt.Fprintf(w, "Ignore: %s\n", strings.Join(cfg.Scan.Ignore, ", "))
	fmt.Fprintf(w, "Workers: %s\n", workers)
	fmt.Fprintf(w, "Bandwidth Limit: %d B/s\n", cfg.Performance.BandwidthLimit)
	fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
	fmt.Fprintf(w, "Log File: %s\n", logFile)
	fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string

	// Comparison
	Mode     string
	Algo     string
	Symlinks string
	NoSort   bool
	DiffCmd  string
	Threads  int

	// Scan filters
	Depth       int
	NoRecursive bool
	Hidden      bool
	Types       []string
	Ignore      []string

	// Output
	OutputFormat string
	OutputFolder string
	Verbose      bool
	NoColor      bool
	NoProgress   bool

	// Logging
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	addGlobalFlags(cmd, &globalFlags)
}

func addGlobalFlags(cmd *cobra.Command, f *GlobalFlags) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&f.ConfigFile, "config", "", "config file (default is $HOME/.config/cmpf/config.yaml)")

	flags.StringVarP(&f.Mode, "mode", "m", "batch", "comparison mode: realtime, batch, metadata")
	flags.StringVarP(&f.Algo, "algo", "a", "blake3", "hash algorithm: sha256, blake3, both")
	flags.StringVar(&f.Symlinks, "symlinks", "ignore", "symlink handling: ignore, follow, compare")
	flags.BoolVarP(&f.NoSort, "no-sort", "n", false, "do not sort results by path")
	flags.StringVar(&f.DiffCmd, "diff-cmd", "", "external diff command for differing files in realtime mode (e.g. \"diff -u\")")
	flags.IntVarP(&f.Threads, "threads", "j", 0, "number of worker threads (default: one per CPU)")

	flags.IntVar(&f.Depth, "depth", 0, "maximum recursion depth (0 = unlimited)")
	flags.BoolVar(&f.NoRecursive, "no-recursive", false, "only compare the top-level entries")
	flags.BoolVarP(&f.Hidden, "hidden", "H", false, "include hidden files and directories")
	flags.StringArrayVarP(&f.Types, "type", "t", nil, "only include files with this extension (repeatable)")
	flags.StringArrayVarP(&f.Ignore, "ignore", "i", nil, "glob pattern to ignore (repeatable)")

	flags.StringVarP(&f.OutputFormat, "output-format", "f", "txt", "output format: txt, json")
	flags.StringVarP(&f.OutputFolder, "output-folder", "o", "", "write the report into this folder instead of stdout")
	flags.BoolVarP(&f.Verbose, "verbose", "v", false, "show details for every result")
	flags.BoolVar(&f.NoColor, "no-color", false, "disable colored output")
	flags.BoolVar(&f.NoProgress, "no-progress", false, "disable the progress bar")

	flags.StringVar(&f.LogFile, "log-file", "", "write logs to file (enables logging)")
	flags.StringVar(&f.LogFormat, "log-format", "json", "log format: text, json")
	flags.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

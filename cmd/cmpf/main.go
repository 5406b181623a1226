package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/internal/cli"
	"github.com/sdejongh/cmpf/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(models.ExitError.Code())
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "cmpf [folder1 folder2]",
		Short: "Compare folders by content",
		Long: `cmpf compares directory trees by file content using SHA-256 and/or BLAKE3.
It can also record a folder in a snapshot for later verification, and make
one folder match another.

Running cmpf with two folders and no command is the same as cmpf compare.`,
		Version:       cli.VersionString(),
		Args:          cobra.MaximumNArgs(2),
		RunE:          cli.RunDefault,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(cli.NewCompareCommand())
	rootCmd.AddCommand(cli.NewSnapshotCommand())
	rootCmd.AddCommand(cli.NewVerifyCommand())
	rootCmd.AddCommand(cli.NewSyncCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	return rootCmd.Execute()
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/internal/platform"
	"github.com/sdejongh/cmpf/pkg/compare"
	"github.com/sdejongh/cmpf/pkg/hasher"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/output"
	"github.com/sdejongh/cmpf/pkg/storage"
	"github.com/sdejongh/cmpf/pkg/sync"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	DryRun           bool
	DeleteExtraneous bool
	NoDelete         bool
	Checksum         bool
	CreateDest       bool
	Bandwidth        string
}

var syncFlags SyncFlags

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Make a destination folder match a source folder",
		Long: `Copy new and changed files from source to destination, optionally
deleting destination files that do not exist in the source.

Files with the same size and modification time are considered unchanged;
use --checksum to compare content instead. Actions are applied in path
order and the first failure aborts the remaining ones.`,
		Args: cobra.ExactArgs(2),
		RunE: runSync,
	}

	addSyncFlags(cmd, &syncFlags)

	return cmd
}

func addSyncFlags(cmd *cobra.Command, f *SyncFlags) {
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "show the actions without applying them")
	cmd.Flags().BoolVar(&f.DeleteExtraneous, "delete-extraneous", false, "delete destination files that don't exist in source")
	cmd.Flags().BoolVar(&f.NoDelete, "no-delete", false, "never delete destination files")
	cmd.Flags().BoolVarP(&f.Checksum, "checksum", "c", false, "compare content even when size and modification time match")
	cmd.Flags().BoolVar(&f.CreateDest, "create-dest", false, "create destination directory if it doesn't exist")
	cmd.Flags().StringVarP(&f.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"512KiB\")")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(cmd, &globalFlags)
	if err != nil {
		return err
	}

	opts, err := syncOptions(cmd, &syncFlags, s)
	if err != nil {
		s.Close()
		return err
	}

	status, err := s.syncFolders(ctx, args[0], args[1], opts, syncFlags.CreateDest)
	if err != nil {
		s.Close()
		return err
	}

	s.exit(status)
	return nil
}

// syncOptions merges the sync flags over the configuration
func syncOptions(cmd *cobra.Command, f *SyncFlags, s *session) (sync.Options, error) {
	changed := cmd.Flags().Changed

	opts := sync.Options{
		DeleteExtraneous: s.cfg.Sync.DeleteExtraneous,
		NoDelete:         s.cfg.Sync.NoDelete,
		DryRun:           f.DryRun,
		Checksum:         f.Checksum,
		BandwidthLimit:   s.cfg.Performance.BandwidthLimit,
	}
	if changed("delete-extraneous") {
		opts.DeleteExtraneous = f.DeleteExtraneous
		if f.DeleteExtraneous && !changed("no-delete") {
			opts.NoDelete = false
		}
	}
	if changed("no-delete") {
		opts.NoDelete = f.NoDelete
		if f.NoDelete && !changed("delete-extraneous") {
			opts.DeleteExtraneous = false
		}
	}
	if changed("bandwidth") {
		limit, err := parseBandwidth(f.Bandwidth)
		if err != nil {
			return sync.Options{}, err
		}
		opts.BandwidthLimit = limit
	}

	if err := opts.Validate(); err != nil {
		return sync.Options{}, err
	}
	return opts, nil
}

// syncFolders makes dest match source and writes the action log.
// Configuration problems are reported before the destination is touched.
func (s *session) syncFolders(ctx context.Context, source, dest string, opts sync.Options, createDest bool) (models.ExitStatus, error) {
	if err := opts.Validate(); err != nil {
		return models.ExitError, err
	}

	if createDest && !opts.DryRun {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return models.ExitError, fmt.Errorf("failed to create destination directory: %w", err)
			}
		}
	}

	roots, err := resolveRoots(source, dest)
	if err != nil {
		return models.ExitError, err
	}
	if err := platform.CheckDisjoint(roots[0], roots[1]); err != nil {
		return models.ExitError, err
	}

	differ, err := compare.New(compare.Config{
		Mode:      models.ModeBatch,
		Algorithm: s.cfg.Compare.Algorithm,
		Symlinks:  s.cfg.Compare.Symlinks,
		Sort:      true,
	}, hasher.NewWithPool(s.pool), s.pool, s.logger)
	if err != nil {
		return models.ExitError, err
	}

	srcBackend, err := storage.NewLocal(roots[0])
	if err != nil {
		return models.ExitError, fmt.Errorf("failed to create source backend: %w", err)
	}
	defer srcBackend.Close()

	dstBackend, err := storage.NewLocal(roots[1])
	if err != nil {
		return models.ExitError, fmt.Errorf("failed to create destination backend: %w", err)
	}
	defer dstBackend.Close()

	engine, err := sync.NewEngine(srcBackend, dstBackend, differ, s.pool, opts, s.logger)
	if err != nil {
		return models.ExitError, err
	}

	both, err := s.collectBoth(ctx, roots[0], roots[1])
	if err != nil {
		return models.ExitError, err
	}

	diag := output.NewTextWriter(s.stderr, s.cfg.Compare.Algorithm, output.TextOptions{Color: s.text.Color})
	for _, e := range both.errs1 {
		diag.WalkError(e, "source")
	}
	for _, e := range both.errs2 {
		diag.WalkError(e, "destination")
	}

	jsonOut := s.outputFormat() == output.FormatJSON
	writer := output.NewSyncWriter(s.stdout, s.text.Color)
	var report sync.Reporter
	if !jsonOut {
		report = writer.Action
	}

	summary, runErr := engine.Run(ctx, both.inv1, both.inv2, both.errs1, report)
	summary.Errors += len(both.errs1) + len(both.errs2)

	if jsonOut {
		if err := output.WriteSyncJSON(s.stdout, summary); err != nil {
			return models.ExitError, err
		}
	} else {
		writer.Summary(summary)
	}

	if runErr != nil {
		return models.ExitError, runErr
	}
	return summary.ExitStatus(), nil
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/pkg/compare"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/output"
	"github.com/sdejongh/cmpf/pkg/snapshot"
)

// NewSnapshotCommand creates the snapshot command
func NewSnapshotCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "snapshot <folder>",
		Short: "Record the state of a folder",
		Long: `Hash every file of a folder and record sizes, modification times and
digests in a snapshot file that verify can later check the folder against.

The snapshot is printed as JSON unless --output is given. Output files
ending in .zst or .gz are compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := newSession(cmd, &globalFlags)
			if err != nil {
				return err
			}

			status, err := s.createSnapshot(ctx, args[0], out)
			if err != nil {
				s.Close()
				return err
			}

			s.exit(status)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "output", "", "write the snapshot to this file instead of stdout")

	return cmd
}

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <folder> <snapshot>",
		Short: "Check a folder against a snapshot",
		Long: `Walk a folder with the filters recorded in a snapshot and check every
file against the stored digests. The snapshot is side folder1 of the report
and the live folder is side folder2.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := newSession(cmd, &globalFlags)
			if err != nil {
				return err
			}

			status, err := s.verifySnapshot(ctx, args[0], args[1])
			if err != nil {
				s.Close()
				return err
			}

			s.exit(status)
			return nil
		},
	}
}

func (s *session) newSnapshotManager() *snapshot.Manager {
	m := snapshot.NewManager(nil, s.pool, s.logger)
	if s.progress {
		m.SetProgress(output.NewProgressBar(s.stderr))
	}
	return m
}

// createSnapshot records folder and writes the snapshot to path, or to stdout when path is empty
func (s *session) createSnapshot(ctx context.Context, folder, path string) (models.ExitStatus, error) {
	roots, err := resolveRoots(folder)
	if err != nil {
		return models.ExitError, err
	}

	snap, errs, err := s.newSnapshotManager().Create(ctx, roots[0], collectorOptions(s.cfg), s.cfg.Compare.Algorithm)
	if err != nil {
		return models.ExitError, err
	}

	diag := output.NewTextWriter(s.stderr, snap.Algo, output.TextOptions{Color: s.text.Color})
	for _, e := range errs {
		diag.WalkError(e, "folder")
	}

	if path == "" {
		if err := snapshot.Write(s.stdout, snap, snapshot.CompressionNone); err != nil {
			return models.ExitError, err
		}
	} else {
		if err := snapshot.Save(path, snap); err != nil {
			return models.ExitError, err
		}
		fmt.Fprintf(s.stderr, "Snapshot saved to %s (%d files)\n", path, len(snap.Files))
	}

	if len(errs) > 0 {
		return models.ExitError, nil
	}
	return models.ExitSuccess, nil
}

// verifySnapshot checks folder against the snapshot file at path and writes the report
func (s *session) verifySnapshot(ctx context.Context, folder, path string) (models.ExitStatus, error) {
	roots, err := resolveRoots(folder)
	if err != nil {
		return models.ExitError, err
	}

	snap, err := snapshot.Load(path)
	if err != nil {
		return models.ExitError, err
	}
	fmt.Fprintf(s.stderr, "Verifying against snapshot created at: %s\n", compare.FormatTime(snap.CreatedAt))

	results, summary, errs, err := s.newSnapshotManager().Verify(ctx, roots[0], snap)
	if err != nil {
		return models.ExitError, err
	}

	format := s.outputFormat()
	err = s.report(format, func(w io.Writer, text output.TextOptions) error {
		formatter, err := output.NewFormatter(format, w, snap.Algo, text)
		if err != nil {
			return err
		}
		for _, e := range errs {
			formatter.WalkError(e, "folder2")
		}
		for _, r := range results {
			formatter.Result(r)
		}
		return formatter.Complete(&output.Report{
			RunID:         uuid.NewString(),
			Mode:          models.ModeBatch,
			Algorithm:     snap.Algo,
			Workers:       s.pool.Workers(),
			Summary:       summary,
			Folder2Errors: errs,
			Results:       results,
		})
	})
	if err != nil {
		return models.ExitError, err
	}
	return summary.ExitStatus(), nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/output"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <folder1> <folder2>",
		Short: "Compare two folders",
		Long: `Compare two folders by content and report every path as MATCH, DIFF,
MISSING (only in folder1), EXTRA (only in folder2) or ERROR.

Exit status is 0 when the folders are identical, 1 when differences were
found and 2 when errors occurred.`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}
}

// RunDefault compares the two folders given to the root command without a subcommand
func RunDefault(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		cmd.Help()
		return fmt.Errorf("expected a command or two folders to compare")
	}
	return runCompare(cmd, args)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(cmd, &globalFlags)
	if err != nil {
		return err
	}

	status, err := s.compareFolders(ctx, args[0], args[1])
	if err != nil {
		s.Close()
		return err
	}

	s.exit(status)
	return nil
}

// compareFolders compares two folders and writes the report
func (s *session) compareFolders(ctx context.Context, folder1, folder2 string) (models.ExitStatus, error) {
	roots, err := resolveRoots(folder1, folder2)
	if err != nil {
		return models.ExitError, err
	}

	differ, err := newDiffer(s.cfg, s.pool, s.logger)
	if err != nil {
		return models.ExitError, err
	}
	mode := differ.Config().Mode
	if s.progress && mode != models.ModeRealtime {
		differ.SetProgress(output.NewProgressBar(s.stderr))
	}

	format := s.outputFormat()

	var tool *diffTool
	if mode == models.ModeRealtime {
		// diff output must not end up inside a JSON document
		diffOut := s.stdout
		if format == output.FormatJSON {
			diffOut = s.stderr
		}
		tool = newDiffTool(s.cfg.Compare.DiffCmd, diffOut, s.stderr, s.logger)
	}

	status := models.ExitError
	err = s.report(format, func(w io.Writer, text output.TextOptions) error {
		start := time.Now()

		both, err := s.collectBoth(ctx, roots[0], roots[1])
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(format, w, s.cfg.Compare.Algorithm, text)
		if err != nil {
			return err
		}
		for _, e := range both.errs1 {
			formatter.WalkError(e, "folder1")
		}
		for _, e := range both.errs2 {
			formatter.WalkError(e, "folder2")
		}

		emit := formatter.Result
		if tool != nil {
			emit = func(r models.ComparisonResult) {
				formatter.Result(r)
				if r.Status == models.StatusDiff {
					tool.Launch(ctx, filepath.Join(roots[0], r.Path), filepath.Join(roots[1], r.Path))
				}
			}
		}

		summary, err := differ.Compare(ctx, both.inv1, both.inv2, emit)
		if err != nil {
			return err
		}
		summary.AddWalkErrors(len(both.errs1) + len(both.errs2))
		summary.Elapsed = time.Since(start)

		if err := formatter.Complete(&output.Report{
			RunID:         uuid.NewString(),
			Mode:          mode,
			Algorithm:     s.cfg.Compare.Algorithm,
			Workers:       s.pool.Workers(),
			Summary:       summary,
			Folder1Errors: both.errs1,
			Folder2Errors: both.errs2,
		}); err != nil {
			return err
		}

		status = summary.ExitStatus()
		return nil
	})
	tool.Wait(ctx)
	if err != nil {
		return models.ExitError, err
	}
	return status, nil
}

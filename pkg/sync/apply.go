package sync

import (
	"context"
	"fmt"
	"path"

	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/ratelimit"
)

// apply executes actions in order and stops at the first mutation error
func (e *Engine) apply(ctx context.Context, log logging.Logger, actions []models.SyncAction, summary *models.SyncSummary, report Reporter) error {
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}

		if e.opts.DryRun {
			log.Debug(ctx, "Planned action", logging.Fields{"action": string(a.Kind), "path": a.Path})
			if report != nil {
				report(a, false)
			}
			continue
		}

		if err := e.applyOne(ctx, a); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrAborted, a.Kind, a.Path, err)
		}
		summary.Applied++
		log.Debug(ctx, "Applied action", logging.Fields{"action": string(a.Kind), "path": a.Path})
		if report != nil {
			report(a, true)
		}
	}
	return nil
}

func (e *Engine) applyOne(ctx context.Context, a models.SyncAction) error {
	switch a.Kind {
	case models.ActionCreate, models.ActionUpdate:
		if dir := path.Dir(a.Path); dir != "." {
			if err := e.dest.MkdirAll(ctx, dir); err != nil {
				return err
			}
		}
		if a.SymlinkTarget != "" {
			return e.dest.Symlink(ctx, a.Path, a.SymlinkTarget)
		}
		return e.copyFile(ctx, a.Path, a.Size)
	case models.ActionDelete:
		return e.dest.Delete(ctx, a.Path)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}

// copyFile copies a file from source to destination, keeping its
// modification time and permissions.
func (e *Engine) copyFile(ctx context.Context, relativePath string, size int64) error {
	sourceInfo, err := e.source.Stat(ctx, relativePath)
	if err != nil {
		return fmt.Errorf("failed to get source metadata: %w", err)
	}
	// the file may have changed since the walk
	size = sourceInfo.Size

	reader, err := e.source.Read(ctx, relativePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}
	defer reader.Close()

	limited := ratelimit.NewReader(ctx, reader, e.limiter)
	if err := e.dest.Write(ctx, relativePath, limited, size, sourceInfo); err != nil {
		return fmt.Errorf("failed to write destination file: %w", err)
	}

	return nil
}

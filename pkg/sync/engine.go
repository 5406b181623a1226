// Package sync brings a destination tree into agreement with a source tree.
package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/cmpf/internal/platform"
	"github.com/sdejongh/cmpf/pkg/compare"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/pool"
	"github.com/sdejongh/cmpf/pkg/ratelimit"
	"github.com/sdejongh/cmpf/pkg/storage"
)

// ErrAborted wraps the mutation error that stopped an apply
var ErrAborted = errors.New("sync aborted")

// Options controls action derivation and execution
type Options struct {
	// DeleteExtraneous removes destination-only files
	DeleteExtraneous bool
	// NoDelete forbids deletion; it conflicts with DeleteExtraneous
	NoDelete bool
	// DryRun plans actions without mutating the destination
	DryRun bool
	// Checksum disables the size and modification time shortcut
	Checksum bool
	// BandwidthLimit caps copy throughput in bytes per second (0 = unlimited)
	BandwidthLimit int64
}

// Validate checks for conflicting options
func (o Options) Validate() error {
	if o.DeleteExtraneous && o.NoDelete {
		return &models.ValidationError{
			Field:   "delete_extraneous",
			Message: "cannot be combined with no_delete",
		}
	}
	if o.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "bandwidth_limit",
			Message: fmt.Sprintf("must not be negative, got %d", o.BandwidthLimit),
		}
	}
	return nil
}

// Reporter is told about every action as it is applied, or would be under dry-run
type Reporter func(action models.SyncAction, applied bool)

// Engine plans and applies one-way sync actions
type Engine struct {
	source  storage.Backend
	dest    storage.Backend
	differ  *compare.Differ
	pool    *pool.Pool
	limiter *ratelimit.Limiter
	logger  logging.Logger
	opts    Options
}

// NewEngine validates opts and creates a sync engine
func NewEngine(
	source, dest storage.Backend,
	differ *compare.Differ,
	p *pool.Pool,
	opts Options,
	logger logging.Logger,
) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if source == nil || dest == nil || differ == nil {
		return nil, fmt.Errorf("sync engine requires source, destination and differ")
	}
	if p == nil {
		p = pool.Default()
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Engine{
		source:  source,
		dest:    dest,
		differ:  differ,
		pool:    p,
		limiter: ratelimit.NewLimiter(opts.BandwidthLimit),
		logger:  logger,
		opts:    opts,
	}, nil
}

// Options returns the engine options
func (e *Engine) Options() Options {
	return e.opts
}

// Run plans actions from the two inventories and applies them in path order.
// srcErrs are the walk errors of the source tree; destination files under a
// path that failed to read are never deleted. The returned summary is valid
// even when an error aborts the run.
func (e *Engine) Run(ctx context.Context, src, dst models.Inventory, srcErrs []models.ErrorEntry, report Reporter) (*models.SyncSummary, error) {
	start := time.Now()
	summary := &models.SyncSummary{
		RunID:  uuid.New().String(),
		DryRun: e.opts.DryRun,
	}

	log := e.logger.WithFields(logging.Fields{"run_id": summary.RunID})
	log.Info(ctx, "Starting sync", logging.Fields{
		"source":            e.source.Root(),
		"dest":              e.dest.Root(),
		"dry_run":           e.opts.DryRun,
		"delete_extraneous": e.opts.DeleteExtraneous,
	})

	actions, withheld, err := e.plan(ctx, src, dst, srcErrs)
	if err != nil {
		summary.Errors++
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	summary.Actions = actions
	summary.Withheld = withheld
	for _, a := range actions {
		summary.Count(a)
	}
	if withheld > 0 {
		log.Warn(ctx, "Kept destination files under unreadable source paths", logging.Fields{
			"withheld":      withheld,
			"source_errors": len(srcErrs),
		})
	}

	err = e.apply(ctx, log, actions, summary, report)
	summary.Elapsed = time.Since(start)
	if err != nil {
		summary.Errors++
		log.Error(ctx, "Sync aborted", err, logging.Fields{"applied": summary.Applied})
		return summary, err
	}

	log.Info(ctx, "Sync completed", logging.Fields{
		"created":  summary.Created,
		"updated":  summary.Updated,
		"deleted":  summary.Deleted,
		"applied":  summary.Applied,
		"duration": summary.Elapsed.String(),
	})
	return summary, nil
}

// Plan derives the sorted action list without touching either tree.
// Deletions under a path listed in srcErrs are left out.
func (e *Engine) Plan(ctx context.Context, src, dst models.Inventory, srcErrs []models.ErrorEntry) ([]models.SyncAction, error) {
	actions, _, err := e.plan(ctx, src, dst, srcErrs)
	return actions, err
}

func (e *Engine) plan(ctx context.Context, src, dst models.Inventory, srcErrs []models.ErrorEntry) ([]models.SyncAction, int, error) {
	plan := compare.PlanKeys(src, dst, true)

	actions := make([]models.SyncAction, 0, plan.Total())
	for _, key := range plan.Only1 {
		actions = append(actions, newAction(models.ActionCreate, src[key]))
	}

	withheld := 0
	if e.opts.DeleteExtraneous {
		guard := e.unreadable(srcErrs)
		for _, key := range plan.Only2 {
			if guard.covers(dst[key].RelPath) {
				withheld++
				continue
			}
			actions = append(actions, newAction(models.ActionDelete, dst[key]))
		}
	}

	same := make([]bool, len(plan.Common))
	err := e.pool.ForEach(ctx, len(plan.Common), func(_ context.Context, i int) error {
		key := plan.Common[i]
		same[i] = e.identical(src[key], dst[key])
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	for i, key := range plan.Common {
		if !same[i] {
			actions = append(actions, newAction(models.ActionUpdate, src[key]))
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Path < actions[j].Path
	})
	return actions, withheld, nil
}

// deleteGuard holds the normalized relative source paths that could not be read
type deleteGuard struct {
	all      bool
	prefixes []string
	foldCase bool
}

// unreadable maps source walk errors onto the source tree. An error that
// cannot be placed below the source root blocks every deletion.
func (e *Engine) unreadable(errs []models.ErrorEntry) deleteGuard {
	g := deleteGuard{foldCase: platform.CaseInsensitive()}
	for _, we := range errs {
		if we.Path == "" || we.Path == models.UnknownPath {
			g.all = true
			continue
		}
		rel, err := filepath.Rel(e.source.Root(), we.Path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			g.all = true
			continue
		}
		g.prefixes = append(g.prefixes, platform.NormalizeKey(filepath.ToSlash(rel), g.foldCase))
	}
	return g
}

// covers reports whether rel is, or lies below, an unreadable source path
func (g deleteGuard) covers(rel string) bool {
	if g.all {
		return true
	}
	key := platform.NormalizeKey(rel, g.foldCase)
	for _, p := range g.prefixes {
		if key == p || strings.HasPrefix(key, p+"/") {
			return true
		}
	}
	return false
}

// identical collapses a comparison to a binary signal. A hash error counts
// as a difference so the file is recopied.
func (e *Engine) identical(a, b models.FileEntry) bool {
	if !e.opts.Checksum && !a.IsSymlink && !b.IsSymlink &&
		a.Size == b.Size && a.HasModTime() && b.HasModTime() && a.ModTime.Equal(b.ModTime) {
		return true
	}
	return e.differ.ComparePair(a.RelPath, a, b).Status == models.StatusMatch
}

func newAction(kind models.ActionKind, entry models.FileEntry) models.SyncAction {
	return models.SyncAction{
		Path:          entry.RelPath,
		Kind:          kind,
		Size:          entry.Size,
		SymlinkTarget: entry.SymlinkTarget,
	}
}

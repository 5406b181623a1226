package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/cmpf/pkg/collector"
	"github.com/sdejongh/cmpf/pkg/compare"
	"github.com/sdejongh/cmpf/pkg/hasher"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/pool"
)

// Manager creates and verifies snapshots
type Manager struct {
	hasher   hasher.Hasher
	pool     *pool.Pool
	logger   logging.Logger
	progress compare.Progress
}

// NewManager creates a snapshot manager
func NewManager(h hasher.Hasher, p *pool.Pool, logger logging.Logger) *Manager {
	if p == nil {
		p = pool.Default()
	}
	if h == nil {
		h = hasher.NewWithPool(p)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Manager{hasher: h, pool: p, logger: logger, progress: compare.NopProgress{}}
}

// SetProgress installs a progress indicator for hashing
func (m *Manager) SetProgress(p compare.Progress) {
	if p == nil {
		p = compare.NopProgress{}
	}
	m.progress = p
}

// Create walks root with opts and hashes every file under algo.
// Files that cannot be hashed are left out and reported as errors.
func (m *Manager) Create(ctx context.Context, root string, opts collector.Options, algo models.Algorithm) (*Snapshot, []models.ErrorEntry, error) {
	if !algo.Valid() {
		return nil, nil, &models.ValidationError{Field: "algorithm", Message: fmt.Sprintf("invalid algorithm %q", algo)}
	}

	c, err := collector.New(opts, m.pool, m.logger)
	if err != nil {
		return nil, nil, err
	}
	inventory, walkErrors, err := c.Collect(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	keys := inventory.Keys()
	entries := make([]Entry, len(keys))
	hashErrs := make([]error, len(keys))

	m.progress.Start(len(keys))
	err = m.pool.ForEach(ctx, len(keys), func(_ context.Context, i int) error {
		defer m.progress.Increment()
		f := inventory[keys[i]]
		e := Entry{
			RelPath:       f.RelPath,
			Size:          f.Size,
			SymlinkTarget: f.SymlinkTarget,
		}
		if f.HasModTime() {
			t := f.ModTime.UTC()
			e.Modified = &t
		}
		if !f.IsSymlink {
			e.Hashes, hashErrs[i] = m.hasher.Hash(f.Path, algo)
		}
		entries[i] = e
		return nil
	})
	m.progress.Finish()
	if err != nil {
		return nil, nil, err
	}

	snap := &Snapshot{
		Version:   FormatVersion,
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		RootPath:  root,
		Algo:      algo,
		Scan:      ScanFromOptions(c.Options()),
		Files:     make([]Entry, 0, len(entries)),
	}
	for i, e := range entries {
		if hashErrs[i] != nil {
			walkErrors = append(walkErrors, models.ErrorEntry{Path: inventory[keys[i]].Path, Error: hashErrs[i].Error()})
			m.logger.Warn(ctx, "Hash failed", logging.Fields{"path": e.RelPath, "error": hashErrs[i].Error()})
			continue
		}
		snap.Files = append(snap.Files, e)
	}
	sort.Slice(snap.Files, func(i, j int) bool {
		return snap.Files[i].RelPath < snap.Files[j].RelPath
	})

	m.logger.Info(ctx, "Snapshot created", logging.Fields{
		"id":     snap.ID,
		"root":   root,
		"files":  len(snap.Files),
		"errors": len(walkErrors),
		"algo":   string(algo),
	})

	return snap, walkErrors, nil
}

// Verify walks root with the snapshot's recorded filters and checks every
// live file against the stored digests, always using the snapshot's algorithm.
// Results are sorted by path. Side 1 is the snapshot, side 2 the live tree.
func (m *Manager) Verify(ctx context.Context, root string, snap *Snapshot) ([]models.ComparisonResult, models.Summary, []models.ErrorEntry, error) {
	start := time.Now()
	var summary models.Summary

	if err := snap.Validate(); err != nil {
		return nil, summary, nil, err
	}

	c, err := collector.New(snap.Scan.Options(), m.pool, m.logger)
	if err != nil {
		return nil, summary, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	live, walkErrors, err := c.Collect(ctx, root)
	if err != nil {
		return nil, summary, nil, err
	}

	stored := snap.Entries()
	plan := compare.PlanKeys(stored, live, true)

	common := make([]models.ComparisonResult, len(plan.Common))
	m.progress.Start(len(plan.Common))
	err = m.pool.ForEach(ctx, len(plan.Common), func(_ context.Context, i int) error {
		defer m.progress.Increment()
		key := plan.Common[i]
		common[i] = m.verifyOne(stored[key], live[key], snap.Algo)
		return nil
	})
	m.progress.Finish()
	if err != nil {
		return nil, summary, nil, err
	}

	results := make([]models.ComparisonResult, 0, plan.Total())
	results = append(results, common...)
	for _, key := range plan.Only1 {
		e := stored[key]
		hashes := e.Hashes
		results = append(results, models.ComparisonResult{
			Path:     e.RelPath,
			Status:   models.StatusMissing,
			Hash1:    &hashes,
			Size1:    models.Int64(e.Size),
			Symlink1: e.SymlinkTarget,
		})
	}
	for _, key := range plan.Only2 {
		results = append(results, compare.Extra(live[key].RelPath, live[key]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	for _, r := range results {
		summary.Add(r)
	}
	summary.AddWalkErrors(len(walkErrors))
	summary.Elapsed = time.Since(start)

	m.logger.Info(ctx, "Snapshot verified", logging.Fields{
		"id":      snap.ID,
		"root":    root,
		"matches": summary.Matches,
		"diffs":   summary.Diffs,
		"missing": summary.Missing,
		"extra":   summary.Extra,
		"errors":  summary.Errors,
	})

	return results, summary, walkErrors, nil
}

// verifyOne compares a stored record with a live file. Size is not used as
// a shortcut: the stored digest is compared with a fresh one.
func (m *Manager) verifyOne(stored Entry, live models.FileEntry, algo models.Algorithm) models.ComparisonResult {
	hashes := stored.Hashes
	r := models.ComparisonResult{
		Path:     stored.RelPath,
		Size1:    models.Int64(stored.Size),
		Size2:    models.Int64(live.Size),
		Symlink1: stored.SymlinkTarget,
		Symlink2: live.SymlinkTarget,
	}
	if stored.Modified != nil {
		r.Modified1 = compare.FormatTime(*stored.Modified)
	}
	r.Modified2 = compare.FormatTime(live.ModTime)

	switch {
	case stored.SymlinkTarget != "" && live.IsSymlink:
		if stored.SymlinkTarget == live.SymlinkTarget {
			r.Status = models.StatusMatch
		} else {
			r.Status = models.StatusDiff
			r.Reason = models.ReasonLinkTarget
		}
		return r
	case stored.SymlinkTarget != "" || live.IsSymlink:
		r.Status = models.StatusDiff
		r.Reason = models.ReasonLinkType
		return r
	}

	current, err := m.hasher.Hash(live.Path, algo)
	if err != nil {
		r.Status = models.StatusError
		r.Reason = fmt.Sprintf("folder2: %v", err)
		return r
	}

	r.Hash1, r.Hash2 = &hashes, &current
	if hashes.Equal(current, algo) {
		r.Status = models.StatusMatch
	} else {
		r.Status = models.StatusDiff
		r.Reason = models.ReasonContent
	}
	return r
}

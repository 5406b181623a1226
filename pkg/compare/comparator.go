// Package compare reconciles two file inventories into classified results.
package compare

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sdejongh/cmpf/pkg/hasher"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/pool"
)

// TimeLayout is the format of timestamps carried in results
const TimeLayout = "2006-01-02 15:04:05"

// Config holds the comparison settings
type Config struct {
	Mode      models.Mode
	Algorithm models.Algorithm
	Symlinks  models.SymlinkPolicy
	// Sort orders results by relative path; otherwise results arrive in workload order
	Sort bool
}

// Differ classifies the union of two inventories
type Differ struct {
	cfg      Config
	hasher   hasher.Hasher
	pool     *pool.Pool
	logger   logging.Logger
	progress Progress
}

// New validates cfg and creates a differ
func New(cfg Config, h hasher.Hasher, p *pool.Pool, logger logging.Logger) (*Differ, error) {
	mode, err := models.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if !cfg.Algorithm.Valid() {
		return nil, &models.ValidationError{Field: "algorithm", Message: fmt.Sprintf("invalid algorithm %q", cfg.Algorithm)}
	}
	if cfg.Symlinks == "" {
		cfg.Symlinks = models.SymlinkIgnore
	}
	if p == nil {
		p = pool.Default()
	}
	if h == nil {
		h = hasher.NewWithPool(p)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Differ{
		cfg:      cfg,
		hasher:   h,
		pool:     p,
		logger:   logger,
		progress: NopProgress{},
	}, nil
}

// SetProgress installs a progress indicator for batch reconciliation
func (d *Differ) SetProgress(p Progress) {
	if p == nil {
		p = NopProgress{}
	}
	d.progress = p
}

// Config returns the differ configuration
func (d *Differ) Config() Config {
	return d.cfg
}

// ComparePair classifies a path present on both sides as MATCH, DIFF or ERROR.
// Each step short-circuits the following ones: symlink targets, symlink type,
// size, modification time (metadata mode only), then content hashes.
func (d *Differ) ComparePair(rel string, a, b models.FileEntry) models.ComparisonResult {
	r := models.ComparisonResult{Path: rel}

	if d.cfg.Symlinks == models.SymlinkCompare {
		switch {
		case a.IsSymlink && b.IsSymlink:
			r.Symlink1, r.Symlink2 = a.SymlinkTarget, b.SymlinkTarget
			if a.SymlinkTarget == b.SymlinkTarget {
				r.Status = models.StatusMatch
			} else {
				r.Status = models.StatusDiff
				r.Reason = models.ReasonLinkTarget
			}
			return r
		case a.IsSymlink != b.IsSymlink:
			r.Symlink1, r.Symlink2 = a.SymlinkTarget, b.SymlinkTarget
			r.Status = models.StatusDiff
			r.Reason = models.ReasonLinkType
			return r
		}
	}

	if a.Size != b.Size {
		r.Status = models.StatusDiff
		r.Reason = models.ReasonSize
		r.Size1, r.Size2 = models.Int64(a.Size), models.Int64(b.Size)
		r.Modified1, r.Modified2 = FormatTime(a.ModTime), FormatTime(b.ModTime)
		return r
	}

	if d.cfg.Mode == models.ModeMetadata {
		r.Size1, r.Size2 = models.Int64(a.Size), models.Int64(b.Size)
		r.Modified1, r.Modified2 = FormatTime(a.ModTime), FormatTime(b.ModTime)
		if a.ModTime.Equal(b.ModTime) {
			r.Status = models.StatusMatch
		} else {
			r.Status = models.StatusDiff
			r.Reason = models.ReasonModTime
		}
		return r
	}

	h1, h2, err := d.hashPair(a.Path, b.Path)
	if err != nil {
		r.Status = models.StatusError
		r.Reason = err.Error()
		return r
	}

	r.Hash1, r.Hash2 = &h1, &h2
	if h1.Equal(h2, d.cfg.Algorithm) {
		r.Status = models.StatusMatch
	} else {
		r.Status = models.StatusDiff
		r.Reason = models.ReasonContent
	}
	return r
}

// hashPair hashes both files concurrently
func (d *Differ) hashPair(path1, path2 string) (models.HashResult, models.HashResult, error) {
	var h1, h2 models.HashResult
	var err1, err2 error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		h1, err1 = d.hasher.Hash(path1, d.cfg.Algorithm)
	}()
	go func() {
		defer wg.Done()
		h2, err2 = d.hasher.Hash(path2, d.cfg.Algorithm)
	}()
	wg.Wait()

	if err1 != nil {
		return h1, h2, fmt.Errorf("folder1: %w", err1)
	}
	if err2 != nil {
		return h1, h2, fmt.Errorf("folder2: %w", err2)
	}
	return h1, h2, nil
}

// Compare reconciles side1 against side2 and passes every result to emit.
// In realtime mode results are emitted as they are produced; in batch and
// metadata modes they are emitted once all comparisons have finished.
func (d *Differ) Compare(ctx context.Context, side1, side2 models.Inventory, emit func(models.ComparisonResult)) (models.Summary, error) {
	start := time.Now()
	var summary models.Summary
	collect := func(r models.ComparisonResult) {
		summary.Add(r)
		if emit != nil {
			emit(r)
		}
	}

	d.logger.Info(ctx, "Comparing inventories", logging.Fields{
		"mode":      string(d.cfg.Mode),
		"algorithm": string(d.cfg.Algorithm),
		"side1":     len(side1),
		"side2":     len(side2),
	})

	var err error
	if d.cfg.Mode == models.ModeRealtime {
		err = d.compareRealtime(ctx, side1, side2, collect)
	} else {
		err = d.compareBatch(ctx, side1, side2, collect)
	}

	summary.Elapsed = time.Since(start)
	if err != nil {
		return summary, err
	}

	d.logger.Info(ctx, "Comparison completed", logging.Fields{
		"total":    summary.Total,
		"matches":  summary.Matches,
		"diffs":    summary.Diffs,
		"missing":  summary.Missing,
		"extra":    summary.Extra,
		"errors":   summary.Errors,
		"duration": summary.Elapsed.String(),
	})

	return summary, nil
}

// Results reconciles the inventories and returns every result
func (d *Differ) Results(ctx context.Context, side1, side2 models.Inventory) ([]models.ComparisonResult, models.Summary, error) {
	results := make([]models.ComparisonResult, 0, len(side1)+len(side2))
	summary, err := d.Compare(ctx, side1, side2, func(r models.ComparisonResult) {
		results = append(results, r)
	})
	return results, summary, err
}

// Missing builds the result for a path present only on side 1
func Missing(rel string, e models.FileEntry) models.ComparisonResult {
	return models.ComparisonResult{
		Path:      rel,
		Status:    models.StatusMissing,
		Size1:     models.Int64(e.Size),
		Modified1: FormatTime(e.ModTime),
		Symlink1:  e.SymlinkTarget,
	}
}

// Extra builds the result for a path present only on side 2
func Extra(rel string, e models.FileEntry) models.ComparisonResult {
	return models.ComparisonResult{
		Path:      rel,
		Status:    models.StatusExtra,
		Size2:     models.Int64(e.Size),
		Modified2: FormatTime(e.ModTime),
		Symlink2:  e.SymlinkTarget,
	}
}

// FormatTime renders t in local time, or "" when unknown
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}

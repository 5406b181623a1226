// Package collector walks a directory tree concurrently and produces a filtered
// inventory of files, tolerating per-entry I/O failures.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/sdejongh/cmpf/internal/platform"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/pool"
)

// Options configures a walk
type Options struct {
	// MaxDepth limits how deep entries are reported (1 = direct children). 0 is unbounded.
	MaxDepth int
	// NonRecursive is equivalent to MaxDepth 1
	NonRecursive bool
	// Hidden includes dotfiles and dot-directories
	Hidden bool
	// Extensions is a case-insensitive allow-list; empty allows all
	Extensions []string
	// Ignore holds glob patterns; matching entries and subtrees are skipped
	Ignore []string
	// Symlinks selects the symlink policy
	Symlinks models.SymlinkPolicy
	// FoldCase case-folds inventory keys
	FoldCase bool
}

// Collector produces file inventories
type Collector struct {
	opts   Options
	filter *Filter
	pool   *pool.Pool
	logger logging.Logger
}

// New validates opts and creates a collector.
// The walk uses as many concurrent directory readers as the pool has workers.
func New(opts Options, p *pool.Pool, logger logging.Logger) (*Collector, error) {
	if opts.MaxDepth < 0 {
		return nil, &models.ValidationError{Field: "depth", Message: "must not be negative"}
	}
	if opts.NonRecursive {
		opts.MaxDepth = 1
	}
	if opts.Symlinks == "" {
		opts.Symlinks = models.SymlinkIgnore
	}
	if _, err := models.ParseSymlinkPolicy(string(opts.Symlinks)); err != nil {
		return nil, err
	}

	filter, err := NewFilter(opts.Ignore, opts.Extensions)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = pool.Default()
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Collector{opts: opts, filter: filter, pool: p, logger: logger}, nil
}

// Options returns the effective options
func (c *Collector) Options() Options {
	return c.opts
}

// Stream is the output of one walk. Entries and Errors are closed when the
// walk ends; consumers must drain both.
type Stream struct {
	Entries <-chan models.FileEntry
	Errors  <-chan models.ErrorEntry
}

// Walk starts walking root and returns the unordered result streams
func (c *Collector) Walk(ctx context.Context, root string) *Stream {
	entries := make(chan models.FileEntry, 256)
	errs := make(chan models.ErrorEntry, 64)

	w := &walker{
		c:       c,
		ctx:     ctx,
		entries: entries,
		errs:    errs,
		sem:     make(chan struct{}, c.pool.Workers()),
	}

	var ancestors []string
	if c.opts.Symlinks == models.SymlinkFollow {
		if real, err := filepath.EvalSymlinks(root); err == nil {
			ancestors = []string{real}
		}
	}

	go func() {
		w.wg.Add(1)
		w.walkDir(root, "", 1, ancestors)
		w.wg.Wait()
		close(entries)
		close(errs)
	}()

	return &Stream{Entries: entries, Errors: errs}
}

// Collect walks root and gathers the full inventory keyed by normalized relative path
func (c *Collector) Collect(ctx context.Context, root string) (models.Inventory, []models.ErrorEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("root is not a directory: %s", root)
	}

	c.logger.Debug(ctx, "Collecting files", logging.Fields{
		"root":     root,
		"depth":    c.opts.MaxDepth,
		"symlinks": string(c.opts.Symlinks),
	})

	stream := c.Walk(ctx, root)
	inventory := make(models.Inventory)
	var walkErrors []models.ErrorEntry

	entries, errs := stream.Entries, stream.Errors
	for entries != nil || errs != nil {
		select {
		case e, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			key := platform.NormalizeKey(e.RelPath, c.opts.FoldCase)
			if prev, exists := inventory[key]; exists {
				keep, drop := prev, e
				if e.RelPath < prev.RelPath {
					keep, drop = e, prev
				}
				inventory[key] = keep
				walkErrors = append(walkErrors, models.ErrorEntry{
					Path:  drop.Path,
					Error: fmt.Sprintf("path collides with %s after normalization", keep.RelPath),
				})
				continue
			}
			inventory[key] = e
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			walkErrors = append(walkErrors, e)
		}
	}

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	c.logger.Info(ctx, "Collected files", logging.Fields{
		"root":   root,
		"files":  len(inventory),
		"errors": len(walkErrors),
	})

	return inventory, walkErrors, nil
}

type walker struct {
	c       *Collector
	ctx     context.Context
	entries chan<- models.FileEntry
	errs    chan<- models.ErrorEntry
	sem     chan struct{}
	wg      sync.WaitGroup
}

// walkDir reads one directory. depth is the depth of its children.
// ancestors holds resolved directory paths and is only tracked when following symlinks.
func (w *walker) walkDir(dir, rel string, depth int, ancestors []string) {
	defer w.wg.Done()

	if w.ctx.Err() != nil {
		return
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		w.fail(dir, err)
		// ReadDir may return the entries read before the error
	}

	for _, de := range dirEntries {
		if w.ctx.Err() != nil {
			return
		}
		w.visit(dir, rel, de, depth, ancestors)
	}
}

func (w *walker) visit(dir, rel string, de fs.DirEntry, depth int, ancestors []string) {
	opts := w.c.opts
	name := de.Name()
	abs := filepath.Join(dir, name)
	childRel := path.Join(rel, name)

	if !opts.Hidden && platform.IsHidden(name) {
		return
	}

	isLink := de.Type()&fs.ModeSymlink != 0
	isDir := de.IsDir()

	if w.c.filter.Ignored(childRel, isDir) {
		return
	}

	if isLink && opts.Symlinks == models.SymlinkFollow {
		target, err := os.Stat(abs)
		if err != nil {
			// a dangling link is filtered as a file
			if w.c.filter.AllowsType(name) {
				w.fail(abs, fmt.Errorf("broken symlink: %w", err))
			}
			return
		}
		isDir = target.IsDir()
		if isDir && w.c.filter.Ignored(childRel, true) {
			return
		}
	}

	if isDir {
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return
		}
		next := ancestors
		if opts.Symlinks == models.SymlinkFollow {
			real, err := filepath.EvalSymlinks(abs)
			if err != nil {
				w.fail(abs, err)
				return
			}
			for _, a := range ancestors {
				if a == real {
					w.fail(abs, fmt.Errorf("filesystem loop detected: %s", real))
					return
				}
			}
			next = append(append([]string(nil), ancestors...), real)
		}
		w.descend(abs, childRel, depth+1, next)
		return
	}

	if !w.c.filter.AllowsType(name) {
		return
	}

	switch opts.Symlinks {
	case models.SymlinkIgnore:
		if isLink || !de.Type().IsRegular() {
			return
		}
	case models.SymlinkFollow, models.SymlinkCompare:
		if !isLink && !de.Type().IsRegular() {
			return
		}
	}

	entry := models.FileEntry{Path: abs, RelPath: childRel}

	var info fs.FileInfo
	var err error
	switch {
	case isLink && opts.Symlinks == models.SymlinkCompare:
		info, err = os.Lstat(abs)
		if err == nil {
			entry.IsSymlink = true
			entry.SymlinkTarget, err = os.Readlink(abs)
		}
	case isLink:
		info, err = os.Stat(abs)
		if err == nil && !info.Mode().IsRegular() {
			return
		}
	default:
		info, err = de.Info()
	}
	if err != nil {
		w.fail(abs, fmt.Errorf("failed to read metadata: %w", err))
		return
	}

	entry.Size = info.Size()
	entry.ModTime = info.ModTime()

	select {
	case w.entries <- entry:
	case <-w.ctx.Done():
	}
}

// descend walks a subdirectory on a new goroutine when a walker slot is free,
// otherwise inline on the current one.
func (w *walker) descend(dir, rel string, depth int, ancestors []string) {
	w.wg.Add(1)
	select {
	case w.sem <- struct{}{}:
		go func() {
			defer func() { <-w.sem }()
			w.walkDir(dir, rel, depth, ancestors)
		}()
	default:
		w.walkDir(dir, rel, depth, ancestors)
	}
}

func (w *walker) fail(p string, err error) {
	if p == "" {
		p = models.UnknownPath
	}
	w.c.logger.Warn(w.ctx, "Walk error", logging.Fields{"path": p, "error": err.Error()})
	select {
	case w.errs <- models.ErrorEntry{Path: p, Error: err.Error()}:
	case <-w.ctx.Done():
	}
}

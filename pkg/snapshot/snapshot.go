// Package snapshot records a tree's file hashes and verifies a tree against them.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/sdejongh/cmpf/internal/platform"
	"github.com/sdejongh/cmpf/pkg/collector"
	"github.com/sdejongh/cmpf/pkg/models"
)

// FormatVersion is the snapshot file format written by this package
const FormatVersion = 1

var (
	// ErrCorrupt is returned for snapshot content that cannot be decoded or is inconsistent
	ErrCorrupt = errors.New("corrupt snapshot")
	// ErrUnsupportedVersion is returned for snapshots written by a newer format
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Snapshot is a persisted, timestamped inventory of one tree
type Snapshot struct {
	Version   int              `json:"version"`
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	RootPath  string           `json:"root_path"`
	Algo      models.Algorithm `json:"algo"`
	Scan      Scan             `json:"scan"`
	Files     []Entry          `json:"files"`
}

// Entry is the record of one file
type Entry struct {
	RelPath       string            `json:"rel_path"`
	Size          int64             `json:"size"`
	Modified      *time.Time        `json:"modified,omitempty"`
	Hashes        models.HashResult `json:"hashes"`
	SymlinkTarget string            `json:"symlink_target,omitempty"`
}

// Scan records the walk filters used at creation, so verification sees the
// same file set.
type Scan struct {
	MaxDepth   int                  `json:"max_depth,omitempty"`
	Hidden     bool                 `json:"hidden"`
	Extensions []string             `json:"extensions,omitempty"`
	Ignore     []string             `json:"ignore,omitempty"`
	Symlinks   models.SymlinkPolicy `json:"symlinks"`
	FoldCase   bool                 `json:"fold_case,omitempty"`
}

// ScanFromOptions captures collector options
func ScanFromOptions(opts collector.Options) Scan {
	depth := opts.MaxDepth
	if opts.NonRecursive {
		depth = 1
	}
	symlinks := opts.Symlinks
	if symlinks == "" {
		symlinks = models.SymlinkIgnore
	}
	return Scan{
		MaxDepth:   depth,
		Hidden:     opts.Hidden,
		Extensions: opts.Extensions,
		Ignore:     opts.Ignore,
		Symlinks:   symlinks,
		FoldCase:   opts.FoldCase,
	}
}

// Options converts the recorded filters back into collector options
func (s Scan) Options() collector.Options {
	return collector.Options{
		MaxDepth:   s.MaxDepth,
		Hidden:     s.Hidden,
		Extensions: s.Extensions,
		Ignore:     s.Ignore,
		Symlinks:   s.Symlinks,
		FoldCase:   s.FoldCase,
	}
}

// Entries indexes the snapshot files by normalized relative path
func (s *Snapshot) Entries() map[string]Entry {
	m := make(map[string]Entry, len(s.Files))
	for _, e := range s.Files {
		m[platform.NormalizeKey(e.RelPath, s.Scan.FoldCase)] = e
	}
	return m
}

// Validate checks internal consistency of a decoded snapshot
func (s *Snapshot) Validate() error {
	if s.Version < 1 {
		return fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if s.Version > FormatVersion {
		return fmt.Errorf("%w: version %d is newer than supported version %d", ErrUnsupportedVersion, s.Version, FormatVersion)
	}
	if !s.Algo.Valid() {
		return fmt.Errorf("%w: invalid algorithm %q", ErrCorrupt, s.Algo)
	}
	if _, err := models.ParseSymlinkPolicy(string(s.Scan.Symlinks)); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	seen := make(map[string]struct{}, len(s.Files))
	for _, e := range s.Files {
		if e.RelPath == "" {
			return fmt.Errorf("%w: entry without path", ErrCorrupt)
		}
		key := platform.NormalizeKey(e.RelPath, s.Scan.FoldCase)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate entry %s", ErrCorrupt, e.RelPath)
		}
		seen[key] = struct{}{}

		if e.SymlinkTarget == "" && !e.Hashes.Populated(s.Algo) {
			return fmt.Errorf("%w: %s has no %s digest", ErrCorrupt, e.RelPath, s.Algo)
		}
	}
	return nil
}

package models

import (
	"sort"
	"time"
)

// FileEntry represents one discovered filesystem object
type FileEntry struct {
	// Path is the absolute path on the filesystem
	Path string

	// RelPath is the path relative to the walked root, slash separated
	RelPath string

	// Size in bytes (for symlinks under SymlinkCompare, the size of the link itself)
	Size int64

	// ModTime is the last modification time, zero when unavailable
	ModTime time.Time

	// IsSymlink is set when the entry is reported as a link under SymlinkCompare
	IsSymlink bool

	// SymlinkTarget is the raw link target, only set when IsSymlink is true
	SymlinkTarget string
}

// HasModTime reports whether a modification time was recorded
func (e FileEntry) HasModTime() bool {
	return !e.ModTime.IsZero()
}

// ErrorEntry is a non-fatal filesystem error captured during a walk
type ErrorEntry struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// UnknownPath is used when the failing entry cannot be identified
const UnknownPath = "unknown"

// Inventory is a set of file entries keyed by normalized relative path
type Inventory map[string]FileEntry

// Keys returns the inventory keys in sorted order
func (inv Inventory) Keys() []string {
	keys := make([]string, 0, len(inv))
	for k := range inv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TotalSize returns the sum of all entry sizes
func (inv Inventory) TotalSize() int64 {
	var total int64
	for _, e := range inv {
		total += e.Size
	}
	return total
}

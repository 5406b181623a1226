package models

import (
	"fmt"
	"strings"
)

// Mode defines how two inventories are reconciled
type Mode string

const (
	// ModeRealtime reconciles path by path while iterating the first inventory
	ModeRealtime Mode = "realtime"
	// ModeBatch materializes both inventories and fans comparisons out to workers
	ModeBatch Mode = "batch"
	// ModeMetadata is batch reconciliation using size and modification time only
	ModeMetadata Mode = "metadata"
)

// ParseMode parses a comparison mode name
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(s))
	switch m {
	case ModeRealtime, ModeBatch, ModeMetadata:
		return m, nil
	}
	return "", &ValidationError{
		Field:   "mode",
		Message: fmt.Sprintf("invalid mode %q (valid: realtime, batch, metadata)", s),
	}
}

// SymlinkPolicy defines how symbolic links are treated during a walk
type SymlinkPolicy string

const (
	// SymlinkIgnore skips symlinks entirely
	SymlinkIgnore SymlinkPolicy = "ignore"
	// SymlinkFollow traverses symlinks as if they were their targets
	SymlinkFollow SymlinkPolicy = "follow"
	// SymlinkCompare reports symlinks as entries carrying their target
	SymlinkCompare SymlinkPolicy = "compare"
)

// ParseSymlinkPolicy parses a symlink policy name
func ParseSymlinkPolicy(s string) (SymlinkPolicy, error) {
	p := SymlinkPolicy(strings.ToLower(s))
	switch p {
	case SymlinkIgnore, SymlinkFollow, SymlinkCompare:
		return p, nil
	}
	return "", &ValidationError{
		Field:   "symlinks",
		Message: fmt.Sprintf("invalid symlink policy %q (valid: ignore, follow, compare)", s),
	}
}

// ValidationError represents a configuration error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

package models

import "time"

// ActionKind is the kind of mutation a sync applies to the destination
type ActionKind string

const (
	// ActionCreate copies a source-only file to the destination
	ActionCreate ActionKind = "CREATE"
	// ActionUpdate overwrites a differing destination file
	ActionUpdate ActionKind = "UPDATE"
	// ActionDelete removes a destination-only file
	ActionDelete ActionKind = "DELETE"
)

// SyncAction is one planned mutation
type SyncAction struct {
	Path          string     `json:"path"`
	Kind          ActionKind `json:"action"`
	Size          int64      `json:"size"`
	SymlinkTarget string     `json:"symlink_target,omitempty"`
}

// SyncSummary reports the outcome of one sync invocation
type SyncSummary struct {
	RunID    string        `json:"run_id"`
	DryRun   bool          `json:"dry_run"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Deleted  int           `json:"deleted"`
	Applied  int           `json:"applied"`
	Errors   int           `json:"errors"`
	// Withheld counts destination-only files kept because their source
	// location could not be read
	Withheld int           `json:"withheld"`
	Actions  []SyncAction  `json:"actions"`
	Elapsed  time.Duration `json:"-"`
}

// Count records a planned action in the per-kind counters
func (s *SyncSummary) Count(a SyncAction) {
	switch a.Kind {
	case ActionCreate:
		s.Created++
	case ActionUpdate:
		s.Updated++
	case ActionDelete:
		s.Deleted++
	}
}

// Total returns the number of planned actions
func (s SyncSummary) Total() int {
	return s.Created + s.Updated + s.Deleted
}

// ExitStatus returns the three-way outcome of the sync
func (s SyncSummary) ExitStatus() ExitStatus {
	if s.Errors > 0 {
		return ExitError
	}
	if s.Total() > 0 {
		return ExitDiff
	}
	return ExitSuccess
}

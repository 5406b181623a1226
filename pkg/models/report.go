package models

import (
	"time"
)

// Summary aggregates the results of one comparison or verification
type Summary struct {
	Total   int           `json:"total_files_checked"`
	Matches int           `json:"matches"`
	Diffs   int           `json:"differences"`
	Missing int           `json:"missing_in_folder2"`
	Extra   int           `json:"extra_in_folder2"`
	Errors  int           `json:"errors"`
	Elapsed time.Duration `json:"-"`
}

// Add counts one result
func (s *Summary) Add(r ComparisonResult) {
	s.Total++
	switch r.Status {
	case StatusMatch:
		s.Matches++
	case StatusDiff:
		s.Diffs++
	case StatusMissing:
		s.Missing++
	case StatusExtra:
		s.Extra++
	case StatusError:
		s.Errors++
	}
}

// AddWalkErrors counts walk errors, which are not part of Total
func (s *Summary) AddWalkErrors(n int) {
	s.Errors += n
}

// ExitStatus returns the three-way outcome of the run
func (s Summary) ExitStatus() ExitStatus {
	if s.Errors > 0 {
		return ExitError
	}
	if s.Diffs+s.Missing+s.Extra > 0 {
		return ExitDiff
	}
	return ExitSuccess
}

// ExitStatus is the process outcome of an operation
type ExitStatus int

const (
	// ExitSuccess means identical trees and no errors
	ExitSuccess ExitStatus = 0
	// ExitDiff means differences were found or sync actions were applied
	ExitDiff ExitStatus = 1
	// ExitError means at least one error was recorded
	ExitError ExitStatus = 2
)

// Code returns the process exit code
func (e ExitStatus) Code() int {
	return int(e)
}

func (e ExitStatus) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitDiff:
		return "differences"
	case ExitError:
		return "error"
	default:
		return "unknown"
	}
}

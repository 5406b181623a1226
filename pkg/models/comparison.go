package models

// Status classifies one reconciled path
type Status string

const (
	// StatusMatch indicates identical content on both sides
	StatusMatch Status = "MATCH"
	// StatusDiff indicates the path exists on both sides with different content
	StatusDiff Status = "DIFF"
	// StatusMissing indicates the path exists only on side 1
	StatusMissing Status = "MISSING"
	// StatusExtra indicates the path exists only on side 2
	StatusExtra Status = "EXTRA"
	// StatusError indicates the comparison could not be completed
	StatusError Status = "ERROR"
)

// ComparisonResult is the outcome for one relative path.
// Fields irrelevant to Status are left empty.
type ComparisonResult struct {
	Path      string      `json:"file"`
	Status    Status      `json:"status"`
	Hash1     *HashResult `json:"hash1,omitempty"`
	Hash2     *HashResult `json:"hash2,omitempty"`
	Size1     *int64      `json:"size1,omitempty"`
	Size2     *int64      `json:"size2,omitempty"`
	Modified1 string      `json:"modified1,omitempty"`
	Modified2 string      `json:"modified2,omitempty"`
	Symlink1  string      `json:"symlink1,omitempty"`
	Symlink2  string      `json:"symlink2,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Difference reasons recorded in ComparisonResult.Reason
const (
	ReasonSize       = "size"
	ReasonContent    = "content"
	ReasonModTime    = "modtime"
	ReasonLinkTarget = "symlink target"
	ReasonLinkType   = "symlink type mismatch"
)

// Swap returns the result as seen with both sides exchanged
func (r ComparisonResult) Swap() ComparisonResult {
	s := r
	s.Hash1, s.Hash2 = r.Hash2, r.Hash1
	s.Size1, s.Size2 = r.Size2, r.Size1
	s.Modified1, s.Modified2 = r.Modified2, r.Modified1
	s.Symlink1, s.Symlink2 = r.Symlink2, r.Symlink1
	switch r.Status {
	case StatusMissing:
		s.Status = StatusExtra
	case StatusExtra:
		s.Status = StatusMissing
	}
	return s
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}

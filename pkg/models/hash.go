package models

import (
	"fmt"
	"strings"
)

// Algorithm selects which digests are computed
type Algorithm string

const (
	// AlgoSHA256 computes only the SHA-256 digest
	AlgoSHA256 Algorithm = "sha256"
	// AlgoBLAKE3 computes only the BLAKE3 digest
	AlgoBLAKE3 Algorithm = "blake3"
	// AlgoBoth computes both digests in a single pass
	AlgoBoth Algorithm = "both"
)

// ParseAlgorithm parses an algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(s))
	if !a.Valid() {
		return "", &ValidationError{
			Field:   "algorithm",
			Message: fmt.Sprintf("invalid algorithm %q (valid: sha256, blake3, both)", s),
		}
	}
	return a, nil
}

// Valid reports whether a is a known algorithm selection
func (a Algorithm) Valid() bool {
	switch a {
	case AlgoSHA256, AlgoBLAKE3, AlgoBoth:
		return true
	}
	return false
}

// UsesSHA256 reports whether the SHA-256 slot is active
func (a Algorithm) UsesSHA256() bool {
	return a == AlgoSHA256 || a == AlgoBoth
}

// UsesBLAKE3 reports whether the BLAKE3 slot is active
func (a Algorithm) UsesBLAKE3() bool {
	return a == AlgoBLAKE3 || a == AlgoBoth
}

// HashResult holds hex digests, one slot per active algorithm.
// A slot is populated if and only if its algorithm was requested.
type HashResult struct {
	SHA256 string `json:"sha256,omitempty"`
	BLAKE3 string `json:"blake3,omitempty"`
}

// Equal compares the slots active under algo.
// It panics if an active slot is empty on either side.
func (h HashResult) Equal(other HashResult, algo Algorithm) bool {
	switch algo {
	case AlgoSHA256:
		mustHave("sha256", h.SHA256, other.SHA256)
		return h.SHA256 == other.SHA256
	case AlgoBLAKE3:
		mustHave("blake3", h.BLAKE3, other.BLAKE3)
		return h.BLAKE3 == other.BLAKE3
	case AlgoBoth:
		mustHave("sha256", h.SHA256, other.SHA256)
		mustHave("blake3", h.BLAKE3, other.BLAKE3)
		return h.SHA256 == other.SHA256 && h.BLAKE3 == other.BLAKE3
	default:
		panic(fmt.Sprintf("models: unknown algorithm %q", algo))
	}
}

// Populated reports whether exactly the slots selected by algo are set
func (h HashResult) Populated(algo Algorithm) bool {
	return (h.SHA256 != "") == algo.UsesSHA256() && (h.BLAKE3 != "") == algo.UsesBLAKE3()
}

func mustHave(slot, a, b string) {
	if a == "" || b == "" {
		panic("models: comparing unpopulated " + slot + " digest")
	}
}

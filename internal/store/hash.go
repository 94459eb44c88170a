package store

import (
	"crypto/sha256"
	"fmt"
)

// HashSource computes SHA-256 of the analyzed source text. Combined with
// family, focus, and anchor it identifies a run for cache lookups: the same
// code analyzed twice yields the same hash, an edited file does not.
func HashSource(sourceText string) string {
	h := sha256.Sum256([]byte(sourceText))
	return fmt.Sprintf("%x", h)
}

package expertise

import (
	"crypto/sha256"
	"encoding/hex"
)

// IDPrefix is prepended to every record ID.
const IDPrefix = "mx-"

// idHashLength is the number of hex characters kept from the digest.
const idHashLength = 6

// GenerateID derives a record's ID from its type and natural key.
// The same logical record always yields the same ID, so renaming a named
// record changes its ID.
func GenerateID(r Record) string {
	sum := sha256.Sum256([]byte(string(r.Type()) + ":" + r.Key()))
	return IDPrefix + hex.EncodeToString(sum[:])[:idHashLength]
}

// EnsureID assigns a generated ID if the record has none.
func EnsureID(r Record) {
	if m := r.Base(); m.ID == "" {
		m.ID = GenerateID(r)
	}
}

// FindDuplicate returns the index of the first record with the same type and
// natural key as r.
func FindDuplicate(existing []Record, r Record) (int, bool) {
	for i, candidate := range existing {
		if candidate.Type() == r.Type() && candidate.Key() == r.Key() {
			return i, true
		}
	}
	return -1, false
}

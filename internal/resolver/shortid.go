package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/mulch/pkg/expertise"
)

// maxListedMatches caps the candidate list printed for an ambiguous ID.
const maxListedMatches = 10

// ResolveRecordID resolves a record identifier within records.
// Returns the index and record if exactly one match is found.
//
// Accepted forms:
// 1. Full ID ("mx-abc123") - exact match
// 2. Bare hash ("abc123") - the "mx-" prefix is implied
// 3. Prefix of either form ("abc", "mx-ab") - must match exactly one record
//
// An exact match always wins, even when the same text is a prefix of another ID.
func ResolveRecordID(records []expertise.Record, id string) (int, expertise.Record, error) {
	full := expertise.IDPrefix + strings.TrimPrefix(id, expertise.IDPrefix)

	for i, r := range records {
		if r.Base().ID == full {
			return i, r, nil
		}
	}

	var matches []int
	for i, r := range records {
		if rid := r.Base().ID; rid != "" && strings.HasPrefix(rid, full) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 0:
		return -1, nil, &NotFoundError{ShortID: id}
	case 1:
		return matches[0], records[matches[0]], nil
	default:
		ids := make([]string, len(matches))
		for i, idx := range matches {
			ids[i] = records[idx].Base().ID
		}
		return -1, nil, &AmbiguousError{ShortID: id, Matches: ids}
	}
}

// NotFoundError indicates no record matched the identifier.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several records matched the identifier.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous identifier '%s' matches %d records: %s",
		e.ShortID, len(e.Matches), strings.Join(e.Matches, ", "))
}

// Count returns the number of colliding records.
func (e *AmbiguousError) Count() int {
	return len(e.Matches)
}

// FormatAmbiguousError creates a user-friendly message for an ambiguous identifier.
// Lists the matching IDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous identifier '%s' matches %d records:\n", err.ShortID, err.Count())

	shown := err.Matches
	if len(shown) > maxListedMatches {
		shown = shown[:maxListedMatches]
	}
	for _, id := range shown {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if extra := len(err.Matches) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "  ...and %d more\n", extra)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the record.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}

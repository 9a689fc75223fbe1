package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/dyluth/mulch/pkg/expertise"
)

// Criteria defines filtering criteria for records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	Type           expertise.Type           // Exact record type, empty = no filter
	Classification expertise.Classification // Exact classification, empty = no filter
	File           string                   // Case-insensitive substring of any file path, empty = no filter
	OutcomeStatus  expertise.OutcomeStatus  // Record has at least one outcome with this status
	Tag            string                   // Case-insensitive exact tag, empty = no filter
	Since          time.Time                // recorded_at at or after, zero = no filter
}

// Matches returns true if the record matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(r expertise.Record) bool {
	m := r.Base()

	if c.Type != "" && r.Type() != c.Type {
		return false
	}
	if c.Classification != "" && m.Classification != c.Classification {
		return false
	}

	if c.File != "" {
		needle := strings.ToLower(c.File)
		if !slices.ContainsFunc(r.Files(), func(f string) bool {
			return strings.Contains(strings.ToLower(f), needle)
		}) {
			return false
		}
	}

	if c.OutcomeStatus != "" && !slices.ContainsFunc(m.Outcomes, func(o expertise.Outcome) bool {
		return o.Status == c.OutcomeStatus
	}) {
		return false
	}

	if c.Tag != "" && !slices.ContainsFunc(m.Tags, func(tag string) bool {
		return strings.EqualFold(tag, c.Tag)
	}) {
		return false
	}

	// Records with unparseable timestamps never pass a time filter.
	if !c.Since.IsZero() {
		recorded, err := time.Parse(time.RFC3339, m.RecordedAt)
		if err != nil || recorded.Before(c.Since) {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.Type != "" ||
		c.Classification != "" ||
		c.File != "" ||
		c.OutcomeStatus != "" ||
		c.Tag != "" ||
		!c.Since.IsZero()
}

// Validate checks the enum-valued criteria.
func (c *Criteria) Validate() error {
	if c.Type != "" {
		if err := c.Type.Validate(); err != nil {
			return err
		}
	}
	if c.Classification != "" {
		if err := c.Classification.Validate(); err != nil {
			return err
		}
	}
	if c.OutcomeStatus != "" {
		if err := c.OutcomeStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the records matching c, preserving order.
func (c *Criteria) Apply(records []expertise.Record) []expertise.Record {
	if !c.HasFilters() {
		return records
	}
	var out []expertise.Record
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

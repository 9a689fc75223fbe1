// Package health computes record staleness and per-domain health metrics.
package health

import (
	"math"
	"time"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/pkg/expertise"
)

// DomainHealth summarizes one domain.
type DomainHealth struct {
	Count                      int
	Utilization                int // percent of governance max_entries
	StaleCount                 int
	TypeDistribution           map[expertise.Type]int
	ClassificationDistribution map[expertise.Classification]int
	Oldest                     string // recorded_at, empty when no records
	Newest                     string
}

// ParseTime parses a recorded_at timestamp.
func ParseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsStale reports whether r has outlived its classification's shelf life.
// Foundational records never go stale. Age is counted in whole days; a
// record with an unparseable timestamp is never stale.
func IsStale(r expertise.Record, now time.Time, shelfLife config.ShelfLife) bool {
	var limit int
	switch r.Base().Classification {
	case expertise.ClassificationTactical:
		limit = shelfLife.Tactical
	case expertise.ClassificationObservational:
		limit = shelfLife.Observational
	default:
		return false
	}

	recorded, ok := ParseTime(r.Base().RecordedAt)
	if !ok {
		return false
	}
	ageDays := int(now.Sub(recorded) / (24 * time.Hour))
	return ageDays > limit
}

// Calculate computes health metrics for a domain's records.
func Calculate(records []expertise.Record, maxEntries int, shelfLife config.ShelfLife, now time.Time) DomainHealth {
	h := DomainHealth{
		Count:                      len(records),
		TypeDistribution:           make(map[expertise.Type]int),
		ClassificationDistribution: make(map[expertise.Classification]int),
	}

	for _, r := range records {
		m := r.Base()
		h.TypeDistribution[r.Type()]++
		h.ClassificationDistribution[m.Classification]++
		if IsStale(r, now, shelfLife) {
			h.StaleCount++
		}
		// recorded_at is ISO-8601, so string order is time order.
		if h.Oldest == "" || m.RecordedAt < h.Oldest {
			h.Oldest = m.RecordedAt
		}
		if m.RecordedAt > h.Newest {
			h.Newest = m.RecordedAt
		}
	}

	if maxEntries > 0 {
		h.Utilization = int(math.Round(float64(len(records)) / float64(maxEntries) * 100))
	}
	return h
}

// Partition splits records into fresh and stale, preserving order.
func Partition(records []expertise.Record, now time.Time, shelfLife config.ShelfLife) (fresh, stale []expertise.Record) {
	for _, r := range records {
		if IsStale(r, now, shelfLife) {
			stale = append(stale, r)
		} else {
			fresh = append(fresh, r)
		}
	}
	return fresh, stale
}

// GovernanceLevel classifies a domain's size against the configured thresholds.
type GovernanceLevel int

const (
	GovernanceOK GovernanceLevel = iota
	GovernanceApproaching
	GovernanceWarn
	GovernanceOverLimit
)

// Level returns the governance level for a record count.
func Level(count int, g config.Governance) GovernanceLevel {
	switch {
	case count >= g.HardLimit:
		return GovernanceOverLimit
	case count >= g.WarnEntries:
		return GovernanceWarn
	case count >= g.MaxEntries:
		return GovernanceApproaching
	default:
		return GovernanceOK
	}
}

// String returns the note shown next to a domain in status output.
func (l GovernanceLevel) String() string {
	switch l {
	case GovernanceOverLimit:
		return "OVER HARD LIMIT - must decompose"
	case GovernanceWarn:
		return "consider splitting domain"
	case GovernanceApproaching:
		return "approaching limit"
	default:
		return ""
	}
}

// Package scoring derives confirmation scores from a record's outcome history.
package scoring

import (
	"sort"

	"github.com/dyluth/mulch/pkg/expertise"
)

// DefaultBoostFactor is the weight applied per confirmation point by Boost.
const DefaultBoostFactor = 0.1

// Counts tallies a record's outcomes by status.
type Counts struct {
	Success int
	Failure int
	Partial int
}

// Total returns the number of recorded applications.
func (c Counts) Total() int {
	return c.Success + c.Failure + c.Partial
}

// CountOutcomes tallies the outcomes of r.
func CountOutcomes(r expertise.Record) Counts {
	var c Counts
	for _, o := range r.Base().Outcomes {
		switch o.Status {
		case expertise.OutcomeSuccess:
			c.Success++
		case expertise.OutcomeFailure:
			c.Failure++
		case expertise.OutcomePartial:
			c.Partial++
		}
	}
	return c
}

// ConfirmationScore returns successCount + 0.5*partialCount, or 0 when the
// record has no outcomes.
func ConfirmationScore(r expertise.Record) float64 {
	c := CountOutcomes(r)
	return float64(c.Success) + 0.5*float64(c.Partial)
}

// SuccessRate returns the confirmation score divided by the number of
// outcomes, in [0, 1]. Zero when there are no outcomes.
func SuccessRate(r expertise.Record) float64 {
	total := len(r.Base().Outcomes)
	if total == 0 {
		return 0
	}
	return ConfirmationScore(r) / float64(total)
}

// Boost scales base by (1 + factor*score). Records without confirmation
// history are returned unchanged.
func Boost(base float64, r expertise.Record, factor float64) float64 {
	score := ConfirmationScore(r)
	if score == 0 {
		return base
	}
	return base * (1 + factor*score)
}

// SortByScore orders records by confirmation score, highest first.
// Ties keep their existing relative order.
func SortByScore(records []expertise.Record) {
	scores := make(map[expertise.Record]float64, len(records))
	for _, r := range records {
		scores[r] = ConfirmationScore(r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return scores[records[i]] > scores[records[j]]
	})
}

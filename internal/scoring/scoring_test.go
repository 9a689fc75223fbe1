package scoring

import (
	"testing"

	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOutcomes(content string, statuses ...expertise.OutcomeStatus) expertise.Record {
	rec := &expertise.Convention{
		Content: content,
		Meta: expertise.Meta{
			Classification: expertise.ClassificationTactical,
			RecordedAt:     "2024-01-01T00:00:00.000Z",
		},
	}
	for _, s := range statuses {
		rec.AddOutcome(expertise.Outcome{Status: s})
	}
	return rec
}

func TestConfirmationScore(t *testing.T) {
	mixed := withOutcomes("mixed", expertise.OutcomeSuccess, expertise.OutcomePartial, expertise.OutcomeFailure)

	assert.Equal(t, 1.5, ConfirmationScore(mixed))
	assert.Equal(t, 0.5, SuccessRate(mixed))

	counts := CountOutcomes(mixed)
	assert.Equal(t, Counts{Success: 1, Failure: 1, Partial: 1}, counts)
	assert.Equal(t, 3, counts.Total())

	none := withOutcomes("none")
	assert.Equal(t, 0.0, ConfirmationScore(none))
	assert.Equal(t, 0.0, SuccessRate(none))
}

func TestBoost(t *testing.T) {
	t.Run("no history leaves score unchanged", func(t *testing.T) {
		assert.Equal(t, 10.0, Boost(10, withOutcomes("none"), DefaultBoostFactor))
	})

	t.Run("only failures leave score unchanged", func(t *testing.T) {
		rec := withOutcomes("failed", expertise.OutcomeFailure, expertise.OutcomeFailure)
		assert.Equal(t, 10.0, Boost(10, rec, DefaultBoostFactor))
	})

	t.Run("confirmed records are boosted", func(t *testing.T) {
		rec := withOutcomes("good", expertise.OutcomeSuccess, expertise.OutcomeSuccess)
		assert.InDelta(t, 12.0, Boost(10, rec, DefaultBoostFactor), 1e-9)
	})
}

func TestSortByScore(t *testing.T) {
	a := withOutcomes("a")
	b := withOutcomes("b", expertise.OutcomeSuccess)
	c := withOutcomes("c")
	d := withOutcomes("d", expertise.OutcomeSuccess, expertise.OutcomePartial)
	e := withOutcomes("e", expertise.OutcomePartial, expertise.OutcomePartial)

	records := []expertise.Record{a, b, c, d, e}
	SortByScore(records)

	require.Len(t, records, 5)
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key()
	}
	// b and e tie at 1.0, a and c tie at 0; ties keep input order.
	assert.Equal(t, []string{"d", "b", "e", "a", "c"}, keys)
}

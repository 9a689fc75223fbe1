package resolver

import (
	"fmt"
	"testing"

	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordWithID(id string) expertise.Record {
	return &expertise.Convention{
		Content: "content for " + id,
		Meta: expertise.Meta{
			ID:             id,
			Classification: expertise.ClassificationFoundational,
			RecordedAt:     "2024-01-01T00:00:00.000Z",
		},
	}
}

func TestResolveRecordID(t *testing.T) {
	records := []expertise.Record{
		recordWithID("mx-abc123"),
		recordWithID("mx-abc456"),
		recordWithID("mx-ffe001"),
	}

	tests := []struct {
		name      string
		id        string
		wantIndex int
	}{
		{name: "full id", id: "mx-abc123", wantIndex: 0},
		{name: "bare hash", id: "abc456", wantIndex: 1},
		{name: "unique bare prefix", id: "ff", wantIndex: 2},
		{name: "unique prefixed prefix", id: "mx-abc4", wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, rec, err := ResolveRecordID(records, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Same(t, records[tt.wantIndex], rec)
		})
	}

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, _, err := ResolveRecordID(records, "abc")
		require.Error(t, err)
		assert.True(t, IsAmbiguousError(err))

		var ambiguous *AmbiguousError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, 2, ambiguous.Count())
		assert.Equal(t, []string{"mx-abc123", "mx-abc456"}, ambiguous.Matches)
		assert.Contains(t, err.Error(), "mx-abc123, mx-abc456")
	})

	t.Run("not found", func(t *testing.T) {
		_, rec, err := ResolveRecordID(records, "xyz")
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.True(t, IsNotFoundError(err))
		assert.Contains(t, err.Error(), "xyz")
	})

	t.Run("exact match wins over longer ids", func(t *testing.T) {
		withLonger := []expertise.Record{recordWithID("mx-abc1234"), recordWithID("mx-abc123")}
		idx, _, err := ResolveRecordID(withLonger, "abc123")
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("records without ids never match", func(t *testing.T) {
		_, _, err := ResolveRecordID([]expertise.Record{recordWithID("")}, "mx-")
		assert.True(t, IsNotFoundError(err))
	})
}

func TestFormatAmbiguousError(t *testing.T) {
	t.Run("lists all matches", func(t *testing.T) {
		msg := FormatAmbiguousError(&AmbiguousError{ShortID: "abc", Matches: []string{"mx-abc123", "mx-abc456"}})
		assert.Contains(t, msg, "matches 2 records")
		assert.Contains(t, msg, "  mx-abc123\n")
		assert.Contains(t, msg, "  mx-abc456\n")
		assert.NotContains(t, msg, "more")
		assert.Contains(t, msg, "longer prefix")
	})

	t.Run("truncates after ten", func(t *testing.T) {
		var ids []string
		for i := 0; i < 13; i++ {
			ids = append(ids, fmt.Sprintf("mx-a%05d", i))
		}
		msg := FormatAmbiguousError(&AmbiguousError{ShortID: "a", Matches: ids})
		assert.Contains(t, msg, "mx-a00009")
		assert.NotContains(t, msg, "mx-a00010")
		assert.Contains(t, msg, "...and 3 more")
	})
}

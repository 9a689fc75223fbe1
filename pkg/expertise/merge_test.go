package expertise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	existingPattern := &Pattern{Name: "retry", Description: "old", Meta: testMeta()}
	existingPattern.ID = "mx-custom"
	existingConvention := &Convention{Content: "tabs", Meta: testMeta()}
	existing := []Record{existingPattern, existingConvention}

	t.Run("named duplicate is replaced in place and keeps its ID", func(t *testing.T) {
		updated := &Pattern{Name: "retry", Description: "new", Meta: testMeta()}
		result := Merge(existing, []Record{updated}, false)

		require.Len(t, result.Records, 2)
		assert.Equal(t, []Action{ActionUpdated}, result.Actions)
		assert.Equal(t, []int{0}, result.Indexes)
		assert.Same(t, updated, result.Records[0])
		assert.Equal(t, "mx-custom", updated.ID)
		assert.True(t, result.Changed())
	})

	t.Run("content duplicate is skipped", func(t *testing.T) {
		result := Merge(existing, []Record{&Convention{Content: "tabs", Meta: testMeta()}}, false)
		assert.Equal(t, []Action{ActionSkipped}, result.Actions)
		assert.Equal(t, []int{-1}, result.Indexes)
		assert.Len(t, result.Records, 2)
		assert.False(t, result.Changed())
	})

	t.Run("force appends duplicates", func(t *testing.T) {
		result := Merge(existing, []Record{&Convention{Content: "tabs", Meta: testMeta()}}, true)
		assert.Equal(t, []Action{ActionCreated}, result.Actions)
		assert.Len(t, result.Records, 3)
	})

	t.Run("duplicates within the batch", func(t *testing.T) {
		incoming := []Record{
			&Convention{Content: "spaces", Meta: testMeta()},
			&Convention{Content: "spaces", Meta: testMeta()},
			&Guide{Name: "deploy", Description: "v1", Meta: testMeta()},
			&Guide{Name: "deploy", Description: "v2", Meta: testMeta()},
		}
		result := Merge(nil, incoming, false)

		assert.Equal(t, []Action{ActionCreated, ActionSkipped, ActionCreated, ActionUpdated}, result.Actions)
		assert.Equal(t, 2, result.Count(ActionCreated))
		require.Len(t, result.Records, 2)
		assert.Equal(t, "v2", result.Records[1].(*Guide).Description)
	})

	t.Run("existing slice is not modified", func(t *testing.T) {
		before := []Record{existingPattern}
		Merge(before, []Record{&Pattern{Name: "retry", Description: "other", Meta: testMeta()}}, false)
		assert.Same(t, existingPattern, before[0])
	})
}

package filter

import (
	"testing"
	"time"

	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/stretchr/testify/assert"
)

func testRecords() []expertise.Record {
	conv := &expertise.Convention{Content: "a", Meta: expertise.Meta{
		Classification: expertise.ClassificationFoundational,
		RecordedAt:     "2024-01-01T00:00:00Z",
		Tags:           []string{"Style"},
	}}
	pat := &expertise.Pattern{Name: "b", Description: "d", FileList: []string{"src/Main.go"}, Meta: expertise.Meta{
		Classification: expertise.ClassificationTactical,
		RecordedAt:     "2024-05-01T00:00:00Z",
		Outcomes:       []expertise.Outcome{{Status: expertise.OutcomeFailure}, {Status: expertise.OutcomeSuccess}},
	}}
	conv2 := &expertise.Convention{Content: "c", Meta: expertise.Meta{
		Classification: expertise.ClassificationTactical,
		RecordedAt:     "not a time",
	}}
	return []expertise.Record{conv, pat, conv2}
}

func keys(records []expertise.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Key())
	}
	return out
}

func TestCriteria_Matches(t *testing.T) {
	records := testRecords()

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{name: "no filters", criteria: Criteria{}, want: []string{"a", "b", "c"}},
		{name: "type", criteria: Criteria{Type: expertise.TypeConvention}, want: []string{"a", "c"}},
		{name: "classification", criteria: Criteria{Classification: expertise.ClassificationTactical}, want: []string{"b", "c"}},
		{name: "file substring ignores case", criteria: Criteria{File: "main.GO"}, want: []string{"b"}},
		{name: "outcome status", criteria: Criteria{OutcomeStatus: expertise.OutcomeSuccess}, want: []string{"b"}},
		{name: "outcome status absent", criteria: Criteria{OutcomeStatus: expertise.OutcomePartial}, want: nil},
		{name: "tag ignores case", criteria: Criteria{Tag: "style"}, want: []string{"a"}},
		{name: "since", criteria: Criteria{Since: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, want: []string{"b"}},
		{name: "combined", criteria: Criteria{Type: expertise.TypeConvention, Classification: expertise.ClassificationTactical}, want: []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(tt.criteria.Apply(records)))
		})
	}
}

func TestCriteria_HasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{Tag: "x"}).HasFilters())
	assert.True(t, (&Criteria{Since: time.Now()}).HasFilters())
}

func TestCriteria_Validate(t *testing.T) {
	assert.NoError(t, (&Criteria{}).Validate())
	assert.NoError(t, (&Criteria{Type: expertise.TypeGuide, OutcomeStatus: expertise.OutcomePartial}).Validate())
	assert.Error(t, (&Criteria{Type: "note"}).Validate())
	assert.Error(t, (&Criteria{Classification: "eternal"}).Validate())
	assert.Error(t, (&Criteria{OutcomeStatus: "meh"}).Validate())
}

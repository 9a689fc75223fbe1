package budget

import (
	"strings"
	"testing"

	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRender charges every record the same 10 tokens.
func fixedRender(expertise.Record, string) string {
	return strings.Repeat("x", 40)
}

func convention(content string, cls expertise.Classification, at string) *expertise.Convention {
	return &expertise.Convention{Content: content, Meta: expertise.Meta{Classification: cls, RecordedAt: at}}
}

func failure(desc string, cls expertise.Classification, at string) *expertise.Failure {
	return &expertise.Failure{Description: desc, Resolution: "r", Meta: expertise.Meta{Classification: cls, RecordedAt: at}}
}

func keys(group expertise.DomainRecords) []string {
	out := make([]string, len(group.Records))
	for i, r := range group.Records {
		out[i] = r.Key()
	}
	return out
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
}

func TestApply_Greedy(t *testing.T) {
	old := convention("old rule", expertise.ClassificationFoundational, "2020-01-01T00:00:00Z")
	recent := failure("new failure", expertise.ClassificationTactical, "2024-06-01T00:00:00Z")
	domains := []expertise.DomainRecords{{Domain: "core", Records: []expertise.Record{old, recent}}}

	result := Apply(domains, 10, fixedRender)
	assert.Equal(t, 1, result.DroppedCount)
	assert.True(t, result.Truncated())
	require.Len(t, result.Kept, 1)
	assert.Equal(t, []string{"old rule"}, keys(result.Kept[0]))
	assert.Equal(t, []string{"core"}, result.AffectedDomains)

	t.Run("double budget keeps both in order", func(t *testing.T) {
		result := Apply(domains, 20, fixedRender)
		assert.Equal(t, 0, result.DroppedCount)
		assert.False(t, result.Truncated())
		assert.Empty(t, result.AffectedDomains)
		require.Len(t, result.Kept, 1)
		assert.Equal(t, []string{"old rule", "new failure"}, keys(result.Kept[0]))
	})
}

func TestApply_StopsAtFirstMiss(t *testing.T) {
	big := convention("big", expertise.ClassificationFoundational, "2024-01-01T00:00:00Z")
	small := failure("small", expertise.ClassificationTactical, "2024-01-01T00:00:00Z")
	domains := []expertise.DomainRecords{{Domain: "core", Records: []expertise.Record{small, big}}}

	render := func(r expertise.Record, _ string) string {
		if r.Key() == "big" {
			return strings.Repeat("x", 400)
		}
		return "x"
	}

	result := Apply(domains, 50, render)
	assert.Equal(t, 2, result.DroppedCount, "a lower-priority record that would fit is still dropped")
	assert.Empty(t, result.Kept)
	assert.Equal(t, []string{"core"}, result.AffectedDomains)
}

func TestApply_Priority(t *testing.T) {
	records := []expertise.Record{
		&expertise.Reference{Name: "ref", Description: "d", Meta: expertise.Meta{Classification: expertise.ClassificationFoundational, RecordedAt: "2024-01-01T00:00:00Z"}},
		convention("observational", expertise.ClassificationObservational, "2024-01-01T00:00:00Z"),
		convention("tactical-old", expertise.ClassificationTactical, "2023-01-01T00:00:00Z"),
		convention("tactical-new", expertise.ClassificationTactical, "2024-01-01T00:00:00Z"),
		convention("tactical-bad-time", expertise.ClassificationTactical, "yesterday"),
		&expertise.Decision{Title: "decision", Rationale: "r", Meta: expertise.Meta{Classification: expertise.ClassificationObservational, RecordedAt: "2024-01-01T00:00:00Z"}},
	}
	confirmed := convention("tactical-confirmed", expertise.ClassificationTactical, "2020-01-01T00:00:00Z")
	confirmed.AddOutcome(expertise.Outcome{Status: expertise.OutcomeSuccess})
	records = append(records, confirmed)

	var order []string
	render := func(r expertise.Record, _ string) string {
		order = append(order, r.Key())
		return "x"
	}

	Apply([]expertise.DomainRecords{{Domain: "core", Records: records}}, 1000, render)

	assert.Equal(t, []string{
		"tactical-confirmed",
		"tactical-new",
		"tactical-old",
		"tactical-bad-time",
		"observational",
		"decision",
		"ref",
	}, order)
}

func TestApply_DomainGrouping(t *testing.T) {
	a1 := convention("a1", expertise.ClassificationTactical, "2024-01-01T00:00:00Z")
	a2 := convention("a2", expertise.ClassificationFoundational, "2024-01-01T00:00:00Z")
	b1 := failure("b1", expertise.ClassificationTactical, "2024-01-01T00:00:00Z")
	c1 := convention("c1", expertise.ClassificationFoundational, "2024-02-01T00:00:00Z")

	domains := []expertise.DomainRecords{
		{Domain: "alpha", Records: []expertise.Record{a1, a2}},
		{Domain: "beta", Records: []expertise.Record{b1}},
		{Domain: "gamma", Records: []expertise.Record{c1}},
		{Domain: "empty"},
	}

	// c1, a2, a1 fit; b1 does not.
	result := Apply(domains, 30, fixedRender)

	assert.Equal(t, 1, result.DroppedCount)
	assert.Equal(t, []string{"beta"}, result.AffectedDomains)
	require.Len(t, result.Kept, 2)
	assert.Equal(t, "alpha", result.Kept[0].Domain)
	assert.Equal(t, []string{"a1", "a2"}, keys(result.Kept[0]), "intra-domain order is preserved")
	assert.Equal(t, "gamma", result.Kept[1].Domain)
}

func TestApply_RenderReceivesDomain(t *testing.T) {
	domains := []expertise.DomainRecords{
		{Domain: "alpha", Records: []expertise.Record{convention("a", expertise.ClassificationTactical, "2024-01-01T00:00:00Z")}},
	}
	var seen []string
	Apply(domains, 100, func(_ expertise.Record, domain string) string {
		seen = append(seen, domain)
		return ""
	})
	assert.Equal(t, []string{"alpha"}, seen)
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, "... and 1 more record across 1 domain (use --budget <n> to show more)", FormatSummary(1, 1))
	assert.Equal(t, "... and 5 more records across 2 domains (use --budget <n> to show more)", FormatSummary(5, 2))
	assert.Equal(t, "... and 3 more records (use --budget <n> to show more)", FormatSummary(3, 0))
}

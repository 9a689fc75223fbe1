// Package budget trims a multi-domain record set to fit a token budget.
package budget

import (
	"fmt"
	"sort"
	"time"

	"github.com/dyluth/mulch/internal/scoring"
	"github.com/dyluth/mulch/pkg/expertise"
)

// DefaultBudget is the token budget applied when none is given.
const DefaultBudget = 4000

// typePriority lists record types from most to least important.
var typePriority = []expertise.Type{
	expertise.TypeConvention,
	expertise.TypeDecision,
	expertise.TypePattern,
	expertise.TypeGuide,
	expertise.TypeFailure,
	expertise.TypeReference,
}

var classificationPriority = []expertise.Classification{
	expertise.ClassificationFoundational,
	expertise.ClassificationTactical,
	expertise.ClassificationObservational,
}

// RenderFunc produces the exact text a record will be charged for.
type RenderFunc func(r expertise.Record, domain string) string

// Result is the outcome of applying a budget.
type Result struct {
	// Kept holds the surviving records grouped by domain, in their input
	// domain and record order. Domains with nothing kept are omitted.
	Kept []expertise.DomainRecords

	// DroppedCount is the number of records that did not fit.
	DroppedCount int

	// AffectedDomains lists, in input order, every domain that lost at
	// least one record.
	AffectedDomains []string
}

// Truncated reports whether any record was dropped.
func (r Result) Truncated() bool {
	return r.DroppedCount > 0
}

// EstimateTokens approximates the token count of text as ceil(len/4).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type entry struct {
	domain   int
	index    int
	record   expertise.Record
	typeRank int
	clsRank  int
	score    float64
	time     time.Time
	hasTime  bool
}

func rank[T comparable](order []T, v T) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return len(order)
}

func newEntry(domain, index int, r expertise.Record) entry {
	e := entry{
		domain:   domain,
		index:    index,
		record:   r,
		typeRank: rank(typePriority, r.Type()),
		clsRank:  rank(classificationPriority, r.Base().Classification),
		score:    scoring.ConfirmationScore(r),
	}
	if ts, err := time.Parse(time.RFC3339, r.Base().RecordedAt); err == nil {
		e.time, e.hasTime = ts, true
	}
	return e
}

// before reports whether a has higher priority than b.
func before(a, b entry) bool {
	if a.typeRank != b.typeRank {
		return a.typeRank < b.typeRank
	}
	if a.clsRank != b.clsRank {
		return a.clsRank < b.clsRank
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if a.hasTime != b.hasTime {
		return a.hasTime
	}
	return a.time.After(b.time)
}

// Apply selects the highest-priority records that fit within limit tokens.
//
// Records from all domains are ordered by type, classification, confirmation
// score (descending) and recency (newest first, unparseable timestamps last),
// then accepted greedily. The first record that does not fit ends selection:
// it and every record after it are dropped, even if a later one would fit.
func Apply(domains []expertise.DomainRecords, limit int, render RenderFunc) Result {
	var entries []entry
	for d, group := range domains {
		for i, r := range group.Records {
			entries = append(entries, newEntry(d, i, r))
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return before(entries[i], entries[j])
	})

	kept := make([][]bool, len(domains))
	for d, group := range domains {
		kept[d] = make([]bool, len(group.Records))
	}

	used, accepted := 0, 0
	for _, e := range entries {
		cost := EstimateTokens(render(e.record, domains[e.domain].Domain))
		if used+cost > limit {
			break
		}
		used += cost
		accepted++
		kept[e.domain][e.index] = true
	}

	result := Result{DroppedCount: len(entries) - accepted}
	for d, group := range domains {
		var records []expertise.Record
		for i, r := range group.Records {
			if kept[d][i] {
				records = append(records, r)
			}
		}
		if len(records) < len(group.Records) {
			result.AffectedDomains = append(result.AffectedDomains, group.Domain)
		}
		if len(records) > 0 {
			result.Kept = append(result.Kept, expertise.DomainRecords{Domain: group.Domain, Records: records})
		}
	}
	return result
}

// FormatSummary renders the truncation notice shown after budgeted output.
func FormatSummary(dropped, domains int) string {
	domainPart := ""
	if domains > 0 {
		domainPart = fmt.Sprintf(" across %d %s", domains, plural(domains, "domain", "domains"))
	}
	return fmt.Sprintf("... and %d more %s%s (use --budget <n> to show more)",
		dropped, plural(dropped, "record", "records"), domainPart)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

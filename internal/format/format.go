// Package format renders expertise records for humans and agents.
//
// Every renderer returns a string; callers decide where it goes. Relative
// times are computed against an explicit now so output is reproducible.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/pkg/expertise"
)

const (
	summaryLength = 60
	compactLength = 100
)

// Section is one domain's worth of records to render.
type Section struct {
	Domain  string
	Records []expertise.Record

	// Updated is the store file's modification time. Zero omits it.
	Updated time.Time
}

// TimeAgo formats the distance between t and now as "just now", "5m ago",
// "3h ago" or "2d ago".
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// TimeAgoString is TimeAgo for a recorded_at timestamp. Unparseable input
// yields "unknown".
func TimeAgoString(ts string, now time.Time) string {
	t, ok := health.ParseTime(ts)
	if !ok {
		return "unknown"
	}
	return TimeAgo(t, now)
}

// truncate shortens text to max runes. It prefers to cut after the first
// sentence that ends inside the limit; otherwise it appends "...".
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	for i := 0; i < max; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				return string(runes[:i+1])
			}
		}
	}
	return string(runes[:max]) + "..."
}

// RecordSummary returns a one-line label for r: the name or title of named
// records, or the shortened content of convention and failure records.
func RecordSummary(r expertise.Record) string {
	switch v := r.(type) {
	case *expertise.Convention:
		return truncate(v.Content, summaryLength)
	case *expertise.Failure:
		return truncate(v.Description, summaryLength)
	default:
		return r.Key()
	}
}

func evidence(r expertise.Record) string {
	ev := r.Base().Evidence
	if ev == nil {
		return ""
	}
	var parts []string
	if ev.Commit != "" {
		parts = append(parts, "commit: "+ev.Commit)
	}
	if ev.Date != "" {
		parts = append(parts, "date: "+ev.Date)
	}
	if ev.Issue != "" {
		parts = append(parts, "issue: "+ev.Issue)
	}
	if ev.File != "" {
		parts = append(parts, "file: "+ev.File)
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func formatDuration(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// outcome summarizes the latest outcome, e.g. " [✓ 12ms @ci (2x)]".
func outcome(r expertise.Record) string {
	outcomes := r.Base().Outcomes
	if len(outcomes) == 0 {
		return ""
	}
	latest := outcomes[len(outcomes)-1]

	symbol := "✓"
	switch latest.Status {
	case expertise.OutcomePartial:
		symbol = "~"
	case expertise.OutcomeFailure:
		symbol = "✗"
	}

	parts := []string{symbol}
	if latest.Duration != nil {
		parts = append(parts, formatDuration(*latest.Duration)+"ms")
	}
	if latest.Agent != "" {
		parts = append(parts, "@"+latest.Agent)
	}
	if len(outcomes) > 1 {
		parts = append(parts, fmt.Sprintf("(%dx)", len(outcomes)))
	}
	return " [" + strings.Join(parts, " ") + "]"
}

func links(r expertise.Record) string {
	m := r.Base()
	var parts []string
	if len(m.RelatesTo) > 0 {
		parts = append(parts, "relates to: "+strings.Join(m.RelatesTo, ", "))
	}
	if len(m.Supersedes) > 0 {
		parts = append(parts, "supersedes: "+strings.Join(m.Supersedes, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, "; ") + "]"
}

// meta renders the trailing annotations of a markdown line. Without full
// only links are shown.
func meta(r expertise.Record, full bool) string {
	if !full {
		return links(r)
	}
	m := r.Base()
	parts := []string{fmt.Sprintf("(%s)%s", m.Classification, evidence(r))}
	if len(m.Tags) > 0 {
		parts = append(parts, "[tags: "+strings.Join(m.Tags, ", ")+"]")
	}
	return " " + strings.Join(parts, " ") + links(r)
}

func idTag(r expertise.Record) string {
	if id := r.Base().ID; id != "" {
		return "[" + id + "] "
	}
	return ""
}

func fileList(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return " (" + strings.Join(files, ", ") + ")"
}

// CompactLine renders r as a single bullet used by compact prime output.
func CompactLine(r expertise.Record) string {
	var id string
	if rid := r.Base().ID; rid != "" {
		id = " (" + rid + ")"
	}
	tail := id + outcome(r) + links(r)

	switch v := r.(type) {
	case *expertise.Convention:
		return "- [convention] " + truncate(v.Content, compactLength) + tail
	case *expertise.Pattern:
		return fmt.Sprintf("- [pattern] %s: %s%s%s", v.Name, truncate(v.Description, compactLength), fileList(v.FileList), tail)
	case *expertise.Failure:
		return fmt.Sprintf("- [failure] %s → %s%s", truncate(v.Description, compactLength), truncate(v.Resolution, compactLength), tail)
	case *expertise.Decision:
		return fmt.Sprintf("- [decision] %s: %s%s", v.Title, truncate(v.Rationale, compactLength), tail)
	case *expertise.Reference:
		detail := ": " + truncate(v.Description, compactLength)
		if len(v.FileList) > 0 {
			detail = ": " + strings.Join(v.FileList, ", ")
		}
		return "- [reference] " + v.Name + detail + tail
	case *expertise.Guide:
		return fmt.Sprintf("- [guide] %s: %s%s", v.Name, truncate(v.Description, compactLength), tail)
	}
	return ""
}

// EstimateText is the text a record is charged for when fitting prime
// output into a token budget.
func EstimateText(r expertise.Record, _ string) string {
	switch v := r.(type) {
	case *expertise.Convention:
		return "[convention] " + v.Content
	case *expertise.Pattern:
		return fmt.Sprintf("[pattern] %s: %s%s", v.Name, v.Description, fileList(v.FileList))
	case *expertise.Failure:
		return fmt.Sprintf("[failure] %s -> %s", v.Description, v.Resolution)
	case *expertise.Decision:
		return fmt.Sprintf("[decision] %s: %s", v.Title, v.Rationale)
	case *expertise.Reference:
		detail := ": " + v.Description
		if len(v.FileList) > 0 {
			detail = ": " + strings.Join(v.FileList, ", ")
		}
		return "[reference] " + v.Name + detail
	case *expertise.Guide:
		return fmt.Sprintf("[guide] %s: %s", v.Name, v.Description)
	}
	return ""
}

// byType groups records by type, preserving order within each group.
func byType(records []expertise.Record) map[expertise.Type][]expertise.Record {
	groups := make(map[expertise.Type][]expertise.Record)
	for _, r := range records {
		groups[r.Type()] = append(groups[r.Type()], r)
	}
	return groups
}

// sectionTitles names each type's group heading.
var sectionTitles = map[expertise.Type]string{
	expertise.TypeConvention: "Conventions",
	expertise.TypePattern:    "Patterns",
	expertise.TypeFailure:    "Known Failures",
	expertise.TypeDecision:   "Decisions",
	expertise.TypeReference:  "References",
	expertise.TypeGuide:      "Guides",
}

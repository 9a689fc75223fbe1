// Package markers manages a marker-delimited mulch section inside a
// markdown document such as a project README.
package markers

import (
	"regexp"
	"strings"
)

const (
	Start = "<!-- mulch:start -->"
	End   = "<!-- mulch:end -->"
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// Has reports whether content contains a mulch section.
func Has(content string) bool {
	return strings.Contains(content, Start)
}

func bounds(content string) (start, end int, ok bool) {
	start = strings.Index(content, Start)
	end = strings.Index(content, End)
	if start < 0 || end < start {
		return 0, 0, false
	}
	return start, end + len(End), true
}

// Wrap surrounds snippet with the start and end markers.
func Wrap(snippet string) string {
	return Start + "\n" + snippet + End
}

// Replace swaps the marker-bounded section (markers included) for section.
// The boolean is false when content has no complete section.
func Replace(content, section string) (string, bool) {
	start, end, ok := bounds(content)
	if !ok {
		return content, false
	}
	return content[:start] + section + content[end:], true
}

// Remove deletes the marker-bounded section and collapses the blank lines
// left behind. Content without a section is returned unchanged.
func Remove(content string) string {
	start, end, ok := bounds(content)
	if !ok {
		return content
	}
	combined := extraBlankLines.ReplaceAllString(content[:start]+content[end:], "\n\n")
	return strings.TrimSpace(combined) + "\n"
}

// Upsert replaces an existing section with the wrapped snippet or appends
// one after a blank line.
func Upsert(content, snippet string) string {
	wrapped := Wrap(snippet)
	if updated, ok := Replace(content, wrapped); ok {
		return updated
	}
	if strings.TrimSpace(content) == "" {
		return wrapped + "\n"
	}
	return strings.TrimRight(content, " \t\r\n") + "\n\n" + wrapped + "\n"
}

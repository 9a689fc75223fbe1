package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/mulch/pkg/expertise"
)

func header(s Section, now time.Time) string {
	var updated string
	if !s.Updated.IsZero() {
		updated = ", updated " + TimeAgo(s.Updated, now)
	}
	return fmt.Sprintf("## %s (%d records%s)", s.Domain, len(s.Records), updated)
}

func markdownLine(r expertise.Record, full bool) string {
	id := idTag(r)
	switch v := r.(type) {
	case *expertise.Convention:
		return "- " + id + v.Content + meta(r, full)
	case *expertise.Pattern:
		return fmt.Sprintf("- %s**%s**: %s%s%s", id, v.Name, v.Description, fileList(v.FileList), meta(r, full))
	case *expertise.Failure:
		return fmt.Sprintf("- %s%s%s\n  → %s", id, v.Description, meta(r, full), v.Resolution)
	case *expertise.Decision:
		return fmt.Sprintf("- %s**%s**: %s%s", id, v.Title, v.Rationale, meta(r, full))
	case *expertise.Reference:
		return fmt.Sprintf("- %s**%s**: %s%s%s", id, v.Name, v.Description, fileList(v.FileList), meta(r, full))
	case *expertise.Guide:
		return fmt.Sprintf("- %s**%s**: %s%s", id, v.Name, v.Description, meta(r, full))
	}
	return ""
}

// Markdown renders a domain grouped by record type. With full, each line
// also carries classification, evidence and tags.
func Markdown(s Section, full bool, now time.Time) string {
	groups := byType(s.Records)

	var sections []string
	for _, t := range expertise.Types {
		records := groups[t]
		if len(records) == 0 {
			continue
		}
		lines := []string{"### " + sectionTitles[t]}
		for _, r := range records {
			lines = append(lines, markdownLine(r, full))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return header(s, now) + "\n\n" + strings.Join(sections, "\n\n")
}

// Compact renders a domain as one line per record, in stored order.
func Compact(s Section, now time.Time) string {
	lines := []string{header(s, now)}
	for _, r := range s.Records {
		lines = append(lines, CompactLine(r))
	}
	return strings.Join(lines, "\n")
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

func xmlList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = xmlEscape(item)
	}
	return strings.Join(escaped, ", ")
}

// XML renders a domain as a <domain> element with one child per record.
func XML(s Section, now time.Time) string {
	var updated string
	if !s.Updated.IsZero() {
		updated = fmt.Sprintf(" updated=%q", TimeAgo(s.Updated, now))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<domain name=\"%s\" entries=\"%d\"%s>\n", xmlEscape(s.Domain), len(s.Records), updated)

	for _, r := range s.Records {
		m := r.Base()
		var idAttr string
		if m.ID != "" {
			idAttr = fmt.Sprintf(" id=\"%s\"", xmlEscape(m.ID))
		}
		fmt.Fprintf(&b, "  <%s%s classification=\"%s\">\n", r.Type(), idAttr, m.Classification)

		element := func(name, value string) {
			fmt.Fprintf(&b, "    <%s>%s</%s>\n", name, xmlEscape(value), name)
		}
		switch v := r.(type) {
		case *expertise.Convention:
			fmt.Fprintf(&b, "    %s\n", xmlEscape(v.Content))
		case *expertise.Pattern:
			element("name", v.Name)
			element("description", v.Description)
		case *expertise.Failure:
			element("description", v.Description)
			element("resolution", v.Resolution)
		case *expertise.Decision:
			element("title", v.Title)
			element("rationale", v.Rationale)
		case *expertise.Reference:
			element("name", v.Name)
			element("description", v.Description)
		case *expertise.Guide:
			element("name", v.Name)
			element("description", v.Description)
		}
		if files := r.Files(); len(files) > 0 {
			fmt.Fprintf(&b, "    <files>%s</files>\n", xmlList(files))
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, "    <tags>%s</tags>\n", xmlList(m.Tags))
		}
		if len(m.RelatesTo) > 0 {
			fmt.Fprintf(&b, "    <relates_to>%s</relates_to>\n", strings.Join(m.RelatesTo, ", "))
		}
		if len(m.Supersedes) > 0 {
			fmt.Fprintf(&b, "    <supersedes>%s</supersedes>\n", strings.Join(m.Supersedes, ", "))
		}
		for _, o := range m.Outcomes {
			var attrs string
			if o.Duration != nil {
				attrs += fmt.Sprintf(" duration=\"%s\"", formatDuration(*o.Duration))
			}
			if o.Agent != "" {
				attrs += fmt.Sprintf(" agent=\"%s\"", xmlEscape(o.Agent))
			}
			fmt.Fprintf(&b, "    <outcome status=\"%s\"%s>%s</outcome>\n", o.Status, attrs, xmlEscape(o.TestResults))
		}
		fmt.Fprintf(&b, "  </%s>\n", r.Type())
	}

	b.WriteString("</domain>")
	return b.String()
}

func plainLines(r expertise.Record) []string {
	id := idTag(r)
	switch v := r.(type) {
	case *expertise.Convention:
		return []string{"  - " + id + v.Content + links(r)}
	case *expertise.Pattern:
		return []string{fmt.Sprintf("  - %s%s: %s%s%s", id, v.Name, v.Description, fileList(v.FileList), links(r))}
	case *expertise.Failure:
		return []string{
			fmt.Sprintf("  - %s%s%s", id, v.Description, links(r)),
			"    Fix: " + v.Resolution,
		}
	case *expertise.Decision:
		return []string{fmt.Sprintf("  - %s%s: %s%s", id, v.Title, v.Rationale, links(r))}
	case *expertise.Reference:
		return []string{fmt.Sprintf("  - %s%s: %s%s%s", id, v.Name, v.Description, fileList(v.FileList), links(r))}
	case *expertise.Guide:
		return []string{fmt.Sprintf("  - %s%s: %s%s", id, v.Name, v.Description, links(r))}
	}
	return nil
}

// Plain renders a domain as indented plain text without markup.
func Plain(s Section, now time.Time) string {
	var updated string
	if !s.Updated.IsZero() {
		updated = fmt.Sprintf(" (updated %s)", TimeAgo(s.Updated, now))
	}
	lines := []string{fmt.Sprintf("[%s] %d records%s", s.Domain, len(s.Records), updated), ""}

	groups := byType(s.Records)
	for _, t := range expertise.Types {
		records := groups[t]
		if len(records) == 0 {
			continue
		}
		lines = append(lines, sectionTitles[t]+":")
		for _, r := range records {
			lines = append(lines, plainLines(r)...)
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), " \n\t")
}

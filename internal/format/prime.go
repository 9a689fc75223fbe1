package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dyluth/mulch/pkg/expertise"
)

// Style selects the prime output flavor.
type Style string

const (
	StyleMarkdown Style = "markdown"
	StyleXML      Style = "xml"
	StylePlain    Style = "plain"
)

// ParseStyle validates a --format value.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleMarkdown, StyleXML, StylePlain:
		return Style(s), nil
	case "":
		return StyleMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected markdown, xml or plain)", s)
	}
}

const emptyMarkdown = "No expertise recorded yet. Use `mulch add <domain>` to create a domain, then `mulch record` to add records."

const primeRules = `> **Context Recovery**: Run ` + "`mulch prime`" + ` after compaction, clear, or new session

## Rules

- **Record learnings**: When you discover a pattern, fix a bug, or make a design decision, record it with ` + "`mulch record`" + `
- **Check expertise first**: Before implementing, check if relevant expertise exists with ` + "`mulch search`" + ` or ` + "`mulch prime --context`" + `
- **Targeted priming**: Use ` + "`mulch prime --files src/foo.go`" + ` to load only records relevant to specific files
- **Do NOT** store expertise in code comments, markdown files, or memory tools; use ` + "`mulch record`" + `
- Run ` + "`mulch doctor`" + ` if you are unsure whether records are healthy`

const primeGuide = "## Recording New Learnings\n" +
	"\n" +
	"When you discover a pattern, convention, failure, or make an architectural decision:\n" +
	"\n" +
	"```bash\n" +
	"mulch record <domain> --type convention \"description\"\n" +
	"mulch record <domain> --type failure --description \"...\" --resolution \"...\"\n" +
	"mulch record <domain> --type decision --title \"...\" --rationale \"...\"\n" +
	"mulch record <domain> --type pattern --name \"...\" --description \"...\" --files \"...\"\n" +
	"mulch record <domain> --type reference --name \"...\" --description \"...\" --files \"...\"\n" +
	"mulch record <domain> --type guide --name \"...\" --description \"...\"\n" +
	"```\n" +
	"\n" +
	"**Link evidence** to records when available:\n" +
	"\n" +
	"```bash\n" +
	"mulch record <domain> --type pattern --name \"...\" --description \"...\" --evidence-commit abc123\n" +
	"mulch record <domain> --type decision --title \"...\" --rationale \"...\" --evidence-bead beads-xxx\n" +
	"```\n" +
	"\n" +
	"**Batch record** multiple records at once:\n" +
	"\n" +
	"```bash\n" +
	"mulch record <domain> --batch records.json  # from file\n" +
	"echo '[{\"type\":\"convention\",\"content\":\"...\"}]' | mulch record <domain> --stdin  # from stdin\n" +
	"```\n" +
	"\n" +
	"## Searching Expertise\n" +
	"\n" +
	"Use `mulch search` to find relevant records across all domains. Results are ranked by relevance (BM25):\n" +
	"\n" +
	"```bash\n" +
	"mulch search \"file locking\"              # multi-word queries ranked by relevance\n" +
	"mulch search \"atomic\" --domain cli        # limit to a specific domain\n" +
	"mulch search \"ESM\" --type convention      # filter by record type\n" +
	"mulch search \"concurrency\" --tag safety   # filter by tag\n" +
	"```\n" +
	"\n" +
	"Search before implementing: existing expertise may already cover your use case.\n" +
	"\n" +
	"## Domain Maintenance\n" +
	"\n" +
	"When a domain grows large, compact it to keep expertise focused:\n" +
	"\n" +
	"```bash\n" +
	"mulch compact --auto --dry-run     # preview what would be merged\n" +
	"mulch compact --auto               # merge same-type record groups\n" +
	"```\n" +
	"\n" +
	"Use `mulch diff` to review what expertise changed:\n" +
	"\n" +
	"```bash\n" +
	"mulch diff HEAD~3                  # see record changes over last 3 commits\n" +
	"```\n" +
	"\n" +
	"## Session End\n" +
	"\n" +
	"**IMPORTANT**: Before ending your session, record what you learned and sync:\n" +
	"\n" +
	"```\n" +
	"[ ] mulch learn          # see what files changed, decide what to record\n" +
	"[ ] mulch record ...     # record learnings (see above)\n" +
	"[ ] mulch sync           # validate, stage, and commit .mulch/ changes\n" +
	"```\n" +
	"\n" +
	"Do NOT skip this. Unrecorded learnings are lost for the next session."

// PrimeMarkdown wraps rendered domain sections in the full agent briefing.
func PrimeMarkdown(sections []string) string {
	body := emptyMarkdown
	if len(sections) > 0 {
		body = strings.Join(sections, "\n\n")
	}
	return "# Project Expertise (via Mulch)\n\n" + primeRules + "\n\n" + body + "\n\n\n" + primeGuide
}

// PrimeCompact wraps compact domain sections with a short quick reference.
func PrimeCompact(sections []string) string {
	body := emptyMarkdown
	if len(sections) > 0 {
		body = strings.Join(sections, "\n\n")
	}
	return strings.Join([]string{
		"# Project Expertise (via Mulch)",
		"",
		body,
		"",
		"## Quick Reference",
		"",
		"- `mulch search \"query\"` - find relevant records before implementing",
		"- `mulch prime --files src/foo.go` - load records for specific files",
		"- `mulch prime --context` - load records for git-changed files",
		"- `mulch record <domain> --type <type> --description \"...\"`",
		"  - Types: `convention`, `pattern`, `failure`, `decision`, `reference`, `guide`",
		"  - Evidence: `--evidence-commit <sha>`, `--evidence-bead <id>`",
		"- `mulch doctor` - check record health",
	}, "\n")
}

// PrimeXML wraps XML domain elements in an <expertise> root.
func PrimeXML(sections []string) string {
	body := "  <empty>No expertise recorded yet. Use mulch add and mulch record to get started.</empty>"
	if len(sections) > 0 {
		body = strings.Join(sections, "\n")
	}
	return "<expertise>\n" + body + "\n</expertise>"
}

// PrimePlain wraps plain domain sections under an underlined title.
func PrimePlain(sections []string) string {
	body := "No expertise recorded yet. Use `mulch add <domain>` and `mulch record` to get started."
	if len(sections) > 0 {
		body = strings.Join(sections, "\n\n")
	}
	return "Project Expertise (via Mulch)\n" +
		"============================\n\n" + body
}

// Prime picks the wrapper for style. Compact applies to markdown only.
func Prime(style Style, compact bool, sections []string) string {
	switch style {
	case StyleXML:
		return PrimeXML(sections)
	case StylePlain:
		return PrimePlain(sections)
	}
	if compact {
		return PrimeCompact(sections)
	}
	return PrimeMarkdown(sections)
}

// SessionEndReminder is appended to every human prime output.
func SessionEndReminder(style Style) string {
	switch style {
	case StyleXML:
		return strings.Join([]string{
			`<session_close_protocol priority="critical">`,
			`  <instruction>Before saying done or complete, you MUST run this checklist:</instruction>`,
			`  <checklist>`,
			`    <step>mulch learn: see what files changed, decide what to record</step>`,
			`    <step>mulch record &lt;domain&gt; --type &lt;type&gt; --description &quot;...&quot;</step>`,
			`    <step>mulch sync: validate, stage, and commit .mulch/ changes</step>`,
			`  </checklist>`,
			`  <warning>NEVER skip this. Unrecorded learnings are lost for the next session.</warning>`,
			`</session_close_protocol>`,
		}, "\n")
	case StylePlain:
		return strings.Join([]string{
			"=== SESSION CLOSE PROTOCOL (CRITICAL) ===",
			"",
			`Before saying "done" or "complete", you MUST run this checklist:`,
			"",
			"[ ] 1. mulch learn              (see what files changed, decide what to record)",
			`[ ] 2. mulch record <domain> --type <type> --description "..."`,
			"[ ] 3. mulch sync               (validate, stage, and commit .mulch/ changes)",
			"",
			"NEVER skip this. Unrecorded learnings are lost for the next session.",
		}, "\n")
	default:
		return strings.Join([]string{
			"# 🚨 SESSION CLOSE PROTOCOL 🚨",
			"",
			`**CRITICAL**: Before saying "done" or "complete", you MUST run this checklist:`,
			"",
			"```",
			"[ ] 1. mulch learn              # see what files changed, decide what to record",
			`[ ] 2. mulch record <domain> --type <type> --description "..."`,
			"[ ] 3. mulch sync               # validate, stage, and commit .mulch/ changes",
			"```",
			"",
			"**NEVER skip this.** Unrecorded learnings are lost for the next session.",
		}, "\n")
	}
}

// MachineDomain is one domain in machine-readable prime output.
type MachineDomain struct {
	Domain     string             `json:"domain"`
	EntryCount int                `json:"entry_count"`
	Records    []expertise.Record `json:"records"`
}

// MachineOutput is the JSON document emitted by `prime --json`.
type MachineOutput struct {
	Type    string          `json:"type"`
	Domains []MachineDomain `json:"domains"`
}

// Machine converts loaded domains into the JSON prime document. No budget
// applies to machine output.
func Machine(domains []expertise.DomainRecords) MachineOutput {
	out := MachineOutput{Type: "expertise", Domains: make([]MachineDomain, 0, len(domains))}
	for _, d := range domains {
		records := d.Records
		if records == nil {
			records = []expertise.Record{}
		}
		out.Domains = append(out.Domains, MachineDomain{Domain: d.Domain, EntryCount: len(records), Records: records})
	}
	return out
}

// MarshalMachine encodes Machine(domains) as compact JSON.
func MarshalMachine(domains []expertise.DomainRecords) ([]byte, error) {
	data, err := json.Marshal(Machine(domains))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prime output: %w", err)
	}
	return data, nil
}

package commands

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dyluth/mulch/internal/budget"
	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/git"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

// contextBase is the revision --context compares the work tree against.
const contextBase = "HEAD~1"

var (
	primeFull          bool
	primeMCP           bool
	primeFormat        string
	primeContext       bool
	primeFiles         string
	primeExport        string
	primeBudget        int
	primeNoLimit       bool
	primeDomain        string
	primeExcludeDomain string
)

var primeCmd = &cobra.Command{
	Use:   "prime [domains...]",
	Short: "Print expertise for an agent session",
	Long: `Print the project's expertise, ready to be loaded into an agent's context.

By default every domain is included and the output is trimmed to a token
budget (about 4000 tokens): conventions and foundational records win over
the rest, and better-confirmed, more recent records win ties. Use --budget
to change the limit or --no-limit to disable it.

Targeting:
  --files a.go,b.go   only records tied to these files (plus records tied to none)
  --context           the same, using files changed since HEAD~1 in git
  --domain/--exclude-domain narrow the domain list (comma-separated)

Output:
  --format markdown|xml|plain   markdown is compact unless --full is given
  --json / --mcp                machine-readable records, never budgeted
  --export FILE                 write to a file instead of stdout`,
	Example: `  mulch prime
  mulch prime api --full
  mulch prime --files internal/retry.go --format xml
  mulch prime --json`,
	RunE: runPrime,
}

func init() {
	f := primeCmd.Flags()
	f.BoolVar(&primeFull, "full", false, "Full markdown with classification, evidence and tags")
	f.BoolVar(&primeMCP, "mcp", false, "Machine-readable JSON output (same as --json)")
	f.StringVar(&primeFormat, "format", string(format.StyleMarkdown), "Output format: markdown, xml, plain")
	f.BoolVar(&primeContext, "context", false, "Only records relevant to files changed in git")
	f.StringVar(&primeFiles, "files", "", "Only records relevant to these files (comma or space separated)")
	f.StringVar(&primeExport, "export", "", "Write output to a file")
	f.IntVar(&primeBudget, "budget", budget.DefaultBudget, "Token budget for human output")
	f.BoolVar(&primeNoLimit, "no-limit", false, "Disable the token budget")
	f.StringVar(&primeDomain, "domain", "", "Comma-separated domains to include")
	f.StringVar(&primeExcludeDomain, "exclude-domain", "", "Comma-separated domains to exclude")
	rootCmd.AddCommand(primeCmd)
}

// primeDomains merges positional and --domain selections, then drops
// exclusions. Every named domain must be registered.
func primeDomains(rt *runtime, args []string) ([]string, error) {
	var requested []string
	for _, d := range append(slices.Clone(args), splitList(primeDomain)...) {
		if !slices.Contains(requested, d) {
			requested = append(requested, d)
		}
	}
	excluded := splitList(primeExcludeDomain)
	for _, d := range append(slices.Clone(requested), excluded...) {
		if err := rt.cfg.EnsureDomain(d); err != nil {
			return nil, err
		}
	}

	if len(requested) == 0 {
		requested = rt.cfg.Domains
	}
	var targets []string
	for _, d := range requested {
		if !slices.Contains(excluded, d) {
			targets = append(targets, d)
		}
	}
	return targets, nil
}

// parseFilePaths splits a --files value on commas and whitespace.
func parseFilePaths(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func runPrime(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("prime", err)
	}
	style, err := format.ParseStyle(primeFormat)
	if err != nil {
		return usageError("prime", "invalid format", err.Error())
	}
	targets, err := primeDomains(rt, args)
	if err != nil {
		return fail("prime", err)
	}

	var files []string
	switch {
	case primeContext:
		checker := git.NewChecker(rt.root)
		isRepo, err := checker.IsGitRepository()
		if err != nil {
			return fail("prime", err)
		}
		if !isRepo {
			return usageError("prime", "not a git repository", "Not in a git repository. --context requires git.")
		}
		files, err = checker.ChangedFiles(contextBase)
		if err != nil {
			return fail("prime", err)
		}
		if len(files) == 0 {
			if jsonOutput {
				return printer.JSONError("prime", fmt.Errorf("no changed files found"))
			}
			printer.Println("No changed files found. Nothing to filter by.")
			return nil
		}
	case primeFiles != "":
		files = parseFilePaths(primeFiles)
	}

	loaded, err := rt.loadDomains(targets)
	if err != nil {
		return fail("prime", err)
	}
	if len(files) > 0 {
		var kept []expertise.DomainRecords
		for _, d := range loaded {
			if records := git.FilterByContext(d.Records, files); len(records) > 0 {
				kept = append(kept, expertise.DomainRecords{Domain: d.Domain, Records: records})
			}
		}
		loaded = kept
	}

	var output string
	if jsonOutput || primeMCP {
		data, err := format.MarshalMachine(loaded)
		if err != nil {
			return fail("prime", err)
		}
		output = string(data)
	} else {
		output = renderPrime(rt, loaded, style)
	}

	if primeExport != "" {
		if err := os.WriteFile(primeExport, []byte(output+"\n"), 0644); err != nil {
			return fail("prime", fmt.Errorf("failed to write to %s: %w", primeExport, err))
		}
		if !jsonOutput {
			printer.Success("Exported to %s\n", primeExport)
		}
		return nil
	}
	printer.Println(output)
	return nil
}

// renderPrime builds the human briefing: budgeted domain sections, the
// truncation notice and the session close reminder.
func renderPrime(rt *runtime, loaded []expertise.DomainRecords, style format.Style) string {
	kept := loaded
	var summary string
	if !primeNoLimit {
		result := budget.Apply(loaded, primeBudget, format.EstimateText)
		kept = result.Kept
		if result.Truncated() {
			summary = budget.FormatSummary(result.DroppedCount, len(result.AffectedDomains))
			rt.logger.Info("prime output truncated", "dropped", result.DroppedCount, "budget", primeBudget)
		}
	}

	full := primeFull || style != format.StyleMarkdown
	at := now()
	sections := make([]string, 0, len(kept))
	for _, d := range kept {
		s := format.Section{Domain: d.Domain, Records: d.Records, Updated: rt.modTime(d.Domain)}
		switch {
		case !full:
			sections = append(sections, format.Compact(s, at))
		case style == format.StyleXML:
			sections = append(sections, format.XML(s, at))
		case style == format.StylePlain:
			sections = append(sections, format.Plain(s, at))
		default:
			sections = append(sections, format.Markdown(s, primeFull, at))
		}
	}

	out := format.Prime(style, !full, sections)
	if summary != "" {
		out += "\n\n" + summary
	}
	return out + "\n\n" + format.SessionEndReminder(style)
}

package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var diffSince string

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show records added or removed since a git revision",
	Long: `Compare every domain file with its content at a git revision and list
the records that were added or removed. Records are matched by ID, so an
edited record shows up as neither.`,
	Example: `  mulch diff
  mulch diff --since main --json`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffSince, "since", "HEAD~1", "Git revision to compare against")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("diff", err)
	}
	checker, err := requireGit("diff", rt)
	if err != nil {
		return err
	}

	var added, removed []domainRecord
	for _, domain := range rt.cfg.Domains {
		current, err := rt.readDomain(domain)
		if err != nil {
			return fail("diff", err)
		}
		var previous []expertise.Record
		data, found, err := checker.ShowFile(diffSince, domainPath(domain))
		if err != nil {
			return fail("diff", err)
		}
		if found {
			result := expertise.Parse(data)
			previous = result.Records
		}
		plus, minus := expertise.Diff(previous, current)
		for _, r := range plus {
			added = append(added, domainRecord{Domain: domain, Record: r})
		}
		for _, r := range minus {
			removed = append(removed, domainRecord{Domain: domain, Record: r})
		}
	}

	if jsonOutput {
		return printer.JSONSuccess("diff", map[string]any{
			"since":   diffSince,
			"added":   nonNil(added),
			"removed": nonNil(removed),
		})
	}

	printer.Println(fmt.Sprintf("Expertise diff since %s:", diffSince))
	printer.Println()
	if len(added) == 0 && len(removed) == 0 {
		printer.Println("No changes.")
		return nil
	}
	if len(added) > 0 {
		printer.Success("Added (%d):\n", len(added))
		for _, e := range added {
			printer.Println(fmt.Sprintf("  + [%s] %s %s: %s", e.Domain, e.Record.Base().ID, e.Record.Type(), format.RecordSummary(e.Record)))
		}
	}
	if len(removed) > 0 {
		if len(added) > 0 {
			printer.Println()
		}
		printer.Warning("Removed (%d):\n", len(removed))
		for _, e := range removed {
			printer.Println(fmt.Sprintf("  - [%s] %s %s: %s", e.Domain, e.Record.Base().ID, e.Record.Type(), format.RecordSummary(e.Record)))
		}
	}
	return nil
}

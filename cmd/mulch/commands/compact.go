package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var (
	compactAuto   bool
	compactDryRun bool
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Remove duplicate records, keeping the newest",
	Long: `Find records that share a type and natural key (content, name, title or
description) and keep only the most recently recorded one.

Without --auto the duplicates are listed but nothing is written. Each
domain is rewritten under its own lock.`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

func init() {
	compactCmd.Flags().BoolVar(&compactAuto, "auto", false, "Remove the duplicates")
	compactCmd.Flags().BoolVar(&compactDryRun, "dry-run", false, "List duplicates without removing them")
	rootCmd.AddCommand(compactCmd)
}

type compactResult struct {
	Domain  string             `json:"domain"`
	Merged  int                `json:"merged"`
	Removed []expertise.Record `json:"removed"`
}

func runCompact(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("compact", err)
	}
	apply := compactAuto && !compactDryRun

	var (
		results []compactResult
		total   int
	)
	for _, domain := range rt.cfg.Domains {
		var removed []expertise.Record
		if apply {
			err := rt.store.Mutate(rt.ctx, domain, func(records []expertise.Record) ([]expertise.Record, bool, error) {
				var kept []expertise.Record
				kept, removed = expertise.Compact(records)
				return kept, len(removed) > 0, nil
			})
			if err != nil {
				return fail("compact", err)
			}
		} else {
			records, err := rt.readDomain(domain)
			if err != nil {
				return fail("compact", err)
			}
			_, removed = expertise.Compact(records)
		}
		if len(removed) == 0 {
			continue
		}
		total += len(removed)
		results = append(results, compactResult{Domain: domain, Merged: len(removed), Removed: removed})
		rt.logger.Info("compacted domain", "domain", domain, "removed", len(removed), "applied", apply)
	}

	if jsonOutput {
		return printer.JSONSuccess("compact", map[string]any{
			"dry_run":      !apply,
			"total_merged": total,
			"domains":      nonNil(results),
		})
	}

	if total == 0 {
		printer.Success("No duplicate records found to compact.\n")
		return nil
	}
	for _, r := range results {
		if apply {
			printer.Println(fmt.Sprintf("  %s: compacted %d duplicate record(s)", r.Domain, r.Merged))
			continue
		}
		printer.Println(fmt.Sprintf("  %s: %d duplicate record(s) could be compacted", r.Domain, r.Merged))
		for _, rec := range r.Removed {
			printer.Dim("    %s %s (%s)\n", rec.Base().ID, rec.Type(), format.RecordSummary(rec))
		}
	}
	printer.Println()
	if apply {
		printer.Success("Compacted %d record(s) total.\n", total)
		return nil
	}
	printer.Warning("Dry run complete. Run with --auto to apply.\n")
	return nil
}

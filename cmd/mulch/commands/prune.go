package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove records past their shelf life",
	Long: `Remove stale records from every domain.

Tactical and observational records go stale once they are older than the
shelf life configured for their classification. Foundational records never
go stale. Each domain is rewritten under its own lock.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "List stale records without removing them")
	rootCmd.AddCommand(pruneCmd)
}

type pruneResult struct {
	Domain  string             `json:"domain"`
	Pruned  int                `json:"pruned"`
	Records []expertise.Record `json:"records,omitempty"`
}

func runPrune(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("prune", err)
	}
	at := now()
	shelfLife := rt.cfg.ClassificationDefaults.ShelfLife

	var (
		results []pruneResult
		total   int
	)
	for _, domain := range rt.cfg.Domains {
		var stale []expertise.Record
		if pruneDryRun {
			records, err := rt.readDomain(domain)
			if err != nil {
				return fail("prune", err)
			}
			_, stale = health.Partition(records, at, shelfLife)
		} else {
			err := rt.store.Mutate(rt.ctx, domain, func(records []expertise.Record) ([]expertise.Record, bool, error) {
				var fresh []expertise.Record
				fresh, stale = health.Partition(records, at, shelfLife)
				return fresh, len(stale) > 0, nil
			})
			if err != nil {
				return fail("prune", err)
			}
		}
		if len(stale) == 0 {
			continue
		}
		total += len(stale)
		results = append(results, pruneResult{Domain: domain, Pruned: len(stale), Records: stale})
		rt.logger.Info("pruned stale records", "domain", domain, "count", len(stale), "dry_run", pruneDryRun)
	}

	if jsonOutput {
		return printer.JSONSuccess("prune", map[string]any{
			"dryRun":      pruneDryRun,
			"totalPruned": total,
			"results":     nonNil(results),
		})
	}

	if total == 0 {
		printer.Println("No stale records found.")
		return nil
	}
	for _, r := range results {
		if pruneDryRun {
			printer.Println(fmt.Sprintf("  %s: %d stale record(s) would be pruned", r.Domain, r.Pruned))
			for _, rec := range r.Records {
				printer.Dim("    %s %s (%s)\n", rec.Base().ID, rec.Type(), format.RecordSummary(rec))
			}
			continue
		}
		printer.Println(fmt.Sprintf("  %s: pruned %d stale record(s)", r.Domain, r.Pruned))
	}
	printer.Println()
	if pruneDryRun {
		printer.Info("Would prune %d stale record(s). Run without --dry-run to apply.\n", total)
		return nil
	}
	printer.Success("Pruned %d stale record(s).\n", total)
	return nil
}

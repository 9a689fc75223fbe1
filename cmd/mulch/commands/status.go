package commands

import (
	"time"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var statusPlain bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record counts and health per domain",
	Long: `Show each domain's record count, stale record count, last update and
governance state.

Governance compares the record count against the thresholds in
mulch.config.yaml: max_entries (approaching limit), warn_entries (consider
splitting the domain) and hard_limit (must decompose).`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusPlain, "plain", false, "Plain list instead of a table")
	rootCmd.AddCommand(statusCmd)
}

// latestRecorded returns the newest parseable recorded_at, or the zero time.
func latestRecorded(records []expertise.Record) time.Time {
	var latest time.Time
	for _, r := range records {
		if t, ok := health.ParseTime(r.Base().RecordedAt); ok && t.After(latest) {
			latest = t
		}
	}
	return latest
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("status", err)
	}
	loaded, err := rt.loadDomains(rt.cfg.Domains)
	if err != nil {
		return fail("status", err)
	}

	at := now()
	stats := make([]format.DomainStat, 0, len(loaded))
	for _, d := range loaded {
		_, stale := health.Partition(d.Records, at, rt.cfg.ClassificationDefaults.ShelfLife)
		stats = append(stats, format.DomainStat{
			Domain:     d.Domain,
			Count:      d.Count(),
			StaleCount: len(stale),
			Updated:    latestRecorded(d.Records),
		})
	}

	if jsonOutput {
		return printer.JSONSuccess("status", map[string]any{"domains": stats})
	}
	if statusPlain {
		printer.Println(format.Status(stats, rt.cfg.Governance, at))
		return nil
	}
	if err := format.StatusTable(printer.Stdout(), stats, rt.cfg.Governance, at); err != nil {
		return fail("status", err)
	}
	return nil
}

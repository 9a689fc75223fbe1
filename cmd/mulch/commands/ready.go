package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/timespec"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var (
	readyLimit  int
	readyDomain string
	readySince  string
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List the most recently recorded records",
	Long: `List the newest records across all domains (or one with --domain),
newest first.`,
	Example: `  mulch ready
  mulch ready --since 24h --limit 20`,
	Args: cobra.NoArgs,
	RunE: runReady,
}

func init() {
	readyCmd.Flags().IntVar(&readyLimit, "limit", 10, "Maximum number of records to show")
	readyCmd.Flags().StringVar(&readyDomain, "domain", "", "Only this domain")
	readyCmd.Flags().StringVar(&readySince, "since", "", "Only records newer than this duration (e.g. 24h, 7d, 2w)")
	rootCmd.AddCommand(readyCmd)
}

// domainRecord is a record together with the domain it came from.
type domainRecord struct {
	Domain string           `json:"domain"`
	Record expertise.Record `json:"record"`
}

// recentRecords flattens domains newest first. Records whose timestamp does
// not parse sort last and are excluded by a cutoff.
func recentRecords(loaded []expertise.DomainRecords, cutoff time.Time, limit int) []domainRecord {
	type entry struct {
		domainRecord
		at time.Time
		ok bool
	}
	var entries []entry
	for _, d := range loaded {
		for _, r := range d.Records {
			at, ok := health.ParseTime(r.Base().RecordedAt)
			if !cutoff.IsZero() && (!ok || at.Before(cutoff)) {
				continue
			}
			entries = append(entries, entry{domainRecord{d.Domain, r}, at, ok})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ok != entries[j].ok {
			return entries[i].ok
		}
		return entries[i].at.After(entries[j].at)
	})

	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domainRecord, len(entries))
	for i, e := range entries {
		out[i] = e.domainRecord
	}
	return out
}

func runReady(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("ready", err)
	}

	at := now()
	var cutoff time.Time
	if readySince != "" {
		d, err := timespec.ParseDuration(readySince)
		if err != nil {
			return usageError("ready", "invalid duration", err.Error())
		}
		cutoff = at.Add(-d)
	}

	domains := rt.cfg.Domains
	if readyDomain != "" {
		domains = []string{readyDomain}
	}
	loaded, err := rt.loadDomains(domains)
	if err != nil {
		return fail("ready", err)
	}
	recent := recentRecords(loaded, cutoff, readyLimit)

	if jsonOutput {
		return printer.JSONSuccess("ready", map[string]any{
			"count":   len(recent),
			"records": nonNil(recent),
		})
	}
	if len(recent) == 0 {
		printer.Println("No recent records found.")
		return nil
	}
	printer.Println(fmt.Sprintf("Recent records (%d):", len(recent)))
	printer.Println()
	for _, e := range recent {
		printer.Println(fmt.Sprintf("  [%s] %s %s - %s (%s)",
			e.Domain, e.Record.Base().ID, e.Record.Type(), format.RecordSummary(e.Record),
			format.TimeAgoString(e.Record.Base().RecordedAt, at)))
	}
	return nil
}

package commands

import (
	"slices"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/resolver"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <domain> <id>",
	Short: "Delete a record",
	Long: `Delete one record from a domain.

The record is identified by its full ID (mx-abc123), its bare hash (abc123)
or any unique prefix of either.`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	domain, id := args[0], args[1]

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("delete", err)
	}
	if err := rt.cfg.EnsureDomain(domain); err != nil {
		return fail("delete", err)
	}

	// Resolution happens under the lock so the index cannot go stale.
	var deleted expertise.Record
	err = rt.store.Mutate(rt.ctx, domain, func(records []expertise.Record) ([]expertise.Record, bool, error) {
		index, record, err := resolver.ResolveRecordID(records, id)
		if err != nil {
			return nil, false, err
		}
		deleted = record
		return slices.Delete(records, index, index+1), true, nil
	})
	if err != nil {
		return fail("delete", err)
	}
	rt.logger.Info("deleted record", "domain", domain, "id", deleted.Base().ID)

	if jsonOutput {
		return printer.JSONSuccess("delete", map[string]any{
			"domain": domain,
			"id":     deleted.Base().ID,
		})
	}
	printer.Success("Deleted record %s (%q) from %q.\n", deleted.Base().ID, format.RecordSummary(deleted), domain)
	return nil
}

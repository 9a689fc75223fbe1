package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove <domain>",
	Short: "Remove an expertise domain",
	Long: `Unregister a domain and delete its JSONL file.

A domain that still holds records is only removed with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Remove the domain even if it has records")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	domain := args[0]

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("remove", err)
	}
	if err := rt.cfg.EnsureDomain(domain); err != nil {
		return fail("remove", err)
	}

	var nonEmpty *domainNotEmptyError
	err = rt.store.WithLock(rt.ctx, domain, func() error {
		if !removeForce {
			result, err := rt.store.Read(domain)
			if err != nil {
				return err
			}
			if n := len(result.Records) + len(result.Invalid); n > 0 {
				return &domainNotEmptyError{records: len(result.Records), invalid: len(result.Invalid)}
			}
		}
		if err := rt.cfg.RemoveDomain(domain); err != nil {
			return err
		}
		if err := config.Save(rt.root, rt.cfg); err != nil {
			return err
		}
		return rt.store.Remove(domain)
	})
	if errors.As(err, &nonEmpty) {
		return usageError("remove",
			"domain is not empty",
			fmt.Sprintf("Domain %q has %s. Use --force to remove.", domain, nonEmpty),
			fmt.Sprintf("Remove it anyway:\n  mulch remove %s --force", domain),
		)
	}
	if err != nil {
		return fail("remove", err)
	}
	rt.logger.Info("removed domain", "domain", domain)

	if jsonOutput {
		return printer.JSONSuccess("remove", map[string]any{"domain": domain})
	}
	printer.Success("Removed domain %q.\n", domain)
	return nil
}

// domainNotEmptyError stops remove from deleting a domain that still holds
// lines, decodable or not.
type domainNotEmptyError struct {
	records int
	invalid int
}

func (e *domainNotEmptyError) Error() string {
	if e.invalid == 0 {
		return fmt.Sprintf("%d record(s)", e.records)
	}
	return fmt.Sprintf("%d record(s) and %d invalid line(s)", e.records, e.invalid)
}

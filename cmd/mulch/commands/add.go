package commands

import (
	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add an expertise domain",
	Long: `Register a new expertise domain and create its empty JSONL file.

Domain names start with a letter or digit and may contain letters, digits,
'-' and '_'.`,
	Example: `  mulch add api
  mulch add build-system`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	domain := args[0]

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("add", err)
	}
	if err := rt.cfg.AddDomain(domain); err != nil {
		return fail("add", err)
	}
	if err := config.Save(rt.root, rt.cfg); err != nil {
		return fail("add", err)
	}
	if !rt.store.Exists(domain) {
		if err := rt.store.Create(domain); err != nil {
			return fail("add", err)
		}
	}
	rt.logger.Info("added domain", "domain", domain)

	if jsonOutput {
		return printer.JSONSuccess("add", map[string]any{"domain": domain})
	}
	printer.Success("Added domain %q.\n", domain)
	return nil
}

package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/scaffold"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .mulch/ in the current project",
	Long: `Initialize a mulch workspace in the project root.

Creates:
  • .mulch/mulch.config.yaml - Domains, governance limits and shelf lives
  • .mulch/expertise/        - One JSONL file per domain
  • .mulch/README.md         - A short guide for humans browsing the repo

Also appends a union merge rule for the expertise files to .gitattributes so
concurrent branches that record expertise merge without conflicts.

Running init again is safe: existing files are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return fail("init", err)
	}

	result, err := scaffold.Initialize(root)
	if err != nil {
		return fail("init", fmt.Errorf("initialization failed: %w", err))
	}

	if jsonOutput {
		return printer.JSONSuccess("init", map[string]any{
			"created": nonNil(result.Created),
			"updated": nonNil(result.Updated),
		})
	}

	if len(result.Created) == 0 && len(result.Updated) == 0 {
		printer.Info("Mulch is already initialized in %s\n", root)
		return nil
	}
	printer.Success("Initialized .mulch/ directory.\n")
	for _, path := range result.Created {
		printer.Dim("  created %s\n", path)
	}
	for _, path := range result.Updated {
		printer.Dim("  updated %s\n", path)
	}
	printer.Println()
	printer.Step("Next: add a domain with 'mulch add <domain>'\n")
	return nil
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

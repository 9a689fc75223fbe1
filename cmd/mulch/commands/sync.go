package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

var (
	syncMessage    string
	syncNoValidate bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Validate and commit .mulch/ changes",
	Long: `Validate every domain file, stage .mulch/ and commit it on its own.
Other staged changes are left out of the commit.`,
	Example: `  mulch sync
  mulch sync --message "docs: record retry conventions"`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncMessage, "message", "m", "chore: sync mulch expertise", "Commit message")
	syncCmd.Flags().BoolVar(&syncNoValidate, "no-validate", false, "Commit without validating first")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("sync", err)
	}
	checker, err := requireGit("sync", rt)
	if err != nil {
		return err
	}

	if !syncNoValidate {
		_, problems, err := scanInvalid(rt)
		if err != nil {
			return fail("sync", err)
		}
		if len(problems) > 0 {
			if !jsonOutput {
				for _, p := range problems {
					printer.Warning("%s:%d - %s\n", p.Domain, p.Line, p.Message)
				}
			}
			return usageError("sync", "validation failed", "Validation failed. Fix errors or use --no-validate.",
				"Drop invalid lines with:\n  mulch doctor --fix")
		}
	}

	path := config.MulchDir + "/"
	if err := checker.Add(path); err != nil {
		return fail("sync", err)
	}
	staged, err := checker.StagedFiles(path)
	if err != nil {
		return fail("sync", err)
	}
	if len(staged) == 0 {
		if jsonOutput {
			return printer.JSONSuccess("sync", map[string]any{"action": "nothing_to_commit"})
		}
		printer.Println(fmt.Sprintf("No %s changes to commit.", path))
		return nil
	}
	if err := checker.Commit(syncMessage, path); err != nil {
		return fail("sync", err)
	}
	rt.logger.Info("committed expertise", "files", len(staged))

	if jsonOutput {
		return printer.JSONSuccess("sync", map[string]any{
			"action":  "committed",
			"message": syncMessage,
			"files":   staged,
		})
	}
	printer.Success("Committed %s changes: %s\n", path, syncMessage)
	return nil
}

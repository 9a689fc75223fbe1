package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/mulch/internal/markers"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

// onboardTargets maps --target values to project-relative documents.
var onboardTargets = map[string]string{
	"readme":  "README.md",
	"agents":  "AGENTS.md",
	"claude":  "CLAUDE.md",
	"copilot": filepath.Join(".github", "copilot-instructions.md"),
}

var (
	onboardTarget string
	onboardUpdate bool
	onboardCheck  bool
	onboardRemove bool
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Add a mulch section to a project document",
	Long: `Write a marker-delimited section describing the project's expertise into
a document agents and humans read: README.md by default, or AGENTS.md,
CLAUDE.md or .github/copilot-instructions.md with --target.

An existing section is left alone unless --update is given. --check
reports whether the section is present and current without writing, and
--remove deletes it.`,
	Example: `  mulch onboard
  mulch onboard --target agents --update
  mulch onboard --check`,
	Args: cobra.NoArgs,
	RunE: runOnboard,
}

func init() {
	onboardCmd.Flags().StringVar(&onboardTarget, "target", "readme", "Document to write: readme, agents, claude, copilot")
	onboardCmd.Flags().BoolVar(&onboardUpdate, "update", false, "Replace an existing section")
	onboardCmd.Flags().BoolVar(&onboardCheck, "check", false, "Report whether the section is present and current")
	onboardCmd.Flags().BoolVar(&onboardRemove, "remove", false, "Remove the section")
	onboardCmd.MarkFlagsMutuallyExclusive("update", "check", "remove")
	rootCmd.AddCommand(onboardCmd)
}

// onboardSection renders the section body for the current domains.
func onboardSection(rt *runtime) (string, error) {
	var b strings.Builder
	b.WriteString("## Project Expertise (Mulch)\n\n")
	b.WriteString("This project records structured expertise for coding agents in `.mulch/`.\n\n")
	b.WriteString("### Quick Start\n\n")
	b.WriteString("```bash\n")
	b.WriteString("mulch prime          # Load expertise at session start\n")
	b.WriteString("mulch search \"query\" # Find relevant records\n")
	b.WriteString("mulch record <domain> --type <type> --description \"...\"\n")
	b.WriteString("mulch sync           # Commit changes\n")
	b.WriteString("```\n")

	if len(rt.cfg.Domains) > 0 {
		loaded, err := rt.loadDomains(rt.cfg.Domains)
		if err != nil {
			return "", err
		}
		b.WriteString("\n### Domains\n\n")
		for _, d := range loaded {
			fmt.Fprintf(&b, "- **%s**: %d record(s)\n", d.Domain, d.Count())
		}
	}
	return b.String(), nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("onboard", err)
	}
	name, ok := onboardTargets[onboardTarget]
	if !ok {
		return usageError("onboard", "invalid target",
			fmt.Sprintf("Unknown target %q. Use one of: readme, agents, claude, copilot.", onboardTarget))
	}
	path := filepath.Join(rt.root, name)

	var content string
	exists := true
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		exists = false
	case err != nil:
		return fail("onboard", fmt.Errorf("failed to read %s: %w", name, err))
	default:
		content = string(data)
	}

	section, err := onboardSection(rt)
	if err != nil {
		return fail("onboard", err)
	}
	wrapped := markers.Wrap(section)

	done := func(action, message string, extra map[string]any) error {
		if jsonOutput {
			fields := map[string]any{"action": action, "file": name}
			for k, v := range extra {
				fields[k] = v
			}
			return printer.JSONSuccess("onboard", fields)
		}
		printer.Success("%s\n", message)
		return nil
	}

	write := func(updated string) error {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fail("onboard", fmt.Errorf("failed to create directory for %s: %w", name, err))
		}
		if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
			return fail("onboard", fmt.Errorf("failed to write %s: %w", name, err))
		}
		rt.logger.Debug("wrote onboarding section", "file", path)
		return nil
	}

	switch {
	case onboardCheck:
		present := markers.Has(content)
		current := present && strings.Contains(content, wrapped)
		if jsonOutput {
			return printer.JSONSuccess("onboard", map[string]any{
				"action":  "check",
				"file":    name,
				"present": present,
				"current": current,
			})
		}
		switch {
		case current:
			printer.Success("Mulch section in %s is up to date.\n", name)
		case present:
			printer.Warning("Mulch section in %s is out of date. Run with --update to refresh it.\n", name)
		default:
			printer.Warning("No mulch section in %s. Run 'mulch onboard' to add one.\n", name)
		}
		return nil

	case onboardRemove:
		if !markers.Has(content) {
			return done("not_found", fmt.Sprintf("No mulch section found in %s.", name), nil)
		}
		if err := write(markers.Remove(content)); err != nil {
			return err
		}
		return done("removed", fmt.Sprintf("Removed mulch section from %s.", name), nil)

	case markers.Has(content):
		if !onboardUpdate {
			if jsonOutput {
				return done("already_exists", "", nil)
			}
			printer.Println(fmt.Sprintf("Mulch section already exists in %s. Use --update to replace it.", name))
			return nil
		}
		updated, _ := markers.Replace(content, wrapped)
		if err := write(updated); err != nil {
			return err
		}
		return done("updated", fmt.Sprintf("Updated mulch section in %s.", name), nil)

	case !exists && onboardTarget == "readme":
		if err := write("# Project\n\n" + wrapped + "\n"); err != nil {
			return err
		}
	default:
		if err := write(markers.Upsert(content, section)); err != nil {
			return err
		}
	}
	return done("created", fmt.Sprintf("Added mulch section to %s.", name), nil)
}

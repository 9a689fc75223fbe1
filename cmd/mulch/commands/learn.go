package commands

import (
	"fmt"
	"strings"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/git"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

const (
	learnFilesPerDomain = 5
	learnUnmatchedShown = 10
)

var learnSince string

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Suggest domains to record in from recent git changes",
	Long: `Look at the files changed since a git revision and suggest which domains
should receive new records.

A changed file is matched to a domain when one of the domain's records
names it, or else when the domain name appears in its path. Files under
.mulch/ are ignored.`,
	Example: `  mulch learn
  mulch learn --since main`,
	Args: cobra.NoArgs,
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&learnSince, "since", "HEAD", "Git revision to compare against")
	rootCmd.AddCommand(learnCmd)
}

type learnSuggestion struct {
	Domain string   `json:"domain"`
	Files  []string `json:"files"`
}

// requireGit returns a checker for the workspace, failing outside a repository.
func requireGit(command string, rt *runtime) (*git.Checker, error) {
	checker := git.NewChecker(rt.root)
	isRepo, err := checker.IsGitRepository()
	if err != nil {
		return nil, fail(command, err)
	}
	if !isRepo {
		return nil, usageError(command, "not a git repository",
			fmt.Sprintf("Not in a git repository. %s requires git.", command),
			"Initialize one with:\n  git init")
	}
	return checker, nil
}

func runLearn(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("learn", err)
	}
	checker, err := requireGit("learn", rt)
	if err != nil {
		return err
	}

	changed, err := checker.ChangedFiles(learnSince)
	if err != nil {
		return fail("learn", err)
	}
	var files []string
	for _, f := range changed {
		if !strings.HasPrefix(f, config.MulchDir+"/") {
			files = append(files, f)
		}
	}

	loaded, err := rt.loadDomains(rt.cfg.Domains)
	if err != nil {
		return fail("learn", err)
	}

	var (
		suggestions []learnSuggestion
		unmatched   []string
	)
	byDomain := make(map[string][]string)
	for _, file := range files {
		matched := ""
		for _, d := range loaded {
			for _, r := range d.Records {
				if git.FileMatchesAny(file, r.Files()) {
					matched = d.Domain
					break
				}
			}
			if matched != "" {
				break
			}
		}
		if matched == "" {
			for _, d := range rt.cfg.Domains {
				if strings.Contains(strings.ToLower(file), strings.ToLower(d)) {
					matched = d
					break
				}
			}
		}
		if matched == "" {
			unmatched = append(unmatched, file)
			continue
		}
		byDomain[matched] = append(byDomain[matched], file)
	}
	for _, d := range rt.cfg.Domains {
		if fs, ok := byDomain[d]; ok {
			suggestions = append(suggestions, learnSuggestion{Domain: d, Files: fs})
		}
	}
	rt.logger.Debug("matched changed files", "changed", len(files), "domains", len(suggestions), "unmatched", len(unmatched))

	if jsonOutput {
		return printer.JSONSuccess("learn", map[string]any{
			"changed_files": nonNil(files),
			"suggestions":   nonNil(suggestions),
			"unmatched":     nonNil(unmatched),
		})
	}

	printer.Println(fmt.Sprintf("Changed files since %s: %d", learnSince, len(files)))
	if len(files) == 0 {
		printer.Println("Nothing to learn from.")
		return nil
	}
	if len(suggestions) > 0 {
		printer.Println()
		printer.Println("Suggested domains to record in:")
		for _, s := range suggestions {
			printer.Info("  %s (%d file(s))\n", s.Domain, len(s.Files))
			for i, f := range s.Files {
				if i == learnFilesPerDomain {
					printer.Dim("    ... and %d more\n", len(s.Files)-learnFilesPerDomain)
					break
				}
				printer.Dim("    %s\n", f)
			}
		}
	}
	if len(unmatched) > 0 {
		printer.Println()
		printer.Warning("%d file(s) match no domain:\n", len(unmatched))
		for i, f := range unmatched {
			if i == learnUnmatchedShown {
				printer.Dim("    ... and %d more\n", len(unmatched)-learnUnmatchedShown)
				break
			}
			printer.Dim("    %s\n", f)
		}
	}
	printer.Println()
	printer.Step("Record what you learned:\n  mulch record <domain> --type <type> ...\n")
	return nil
}

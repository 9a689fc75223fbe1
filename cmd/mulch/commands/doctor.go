package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/internal/logging"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/scaffold"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the .mulch/ directory for problems",
	Long: `Check the workspace for structural problems:

  • the config file is readable and valid
  • every registered domain has a file
  • every stored line is a valid record
  • no .jsonl file belongs to an unregistered domain
  • .gitattributes carries the union merge rule
  • no domain is over its governance hard limit

With --fix, missing files are created, invalid lines are dropped, orphan
files are deleted and the merge rule is added. Exits non-zero while any
issue remains.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt to repair the issues found")
	rootCmd.AddCommand(doctorCmd)
}

// doctorIssue is one finding. Fixed is set when --fix repaired it.
type doctorIssue struct {
	Check   string `json:"check"`
	Domain  string `json:"domain,omitempty"`
	Line    int    `json:"line,omitempty"`
	File    string `json:"file,omitempty"`
	Message string `json:"error"`
	Fixed   bool   `json:"fixed"`
}

type doctor struct {
	ctx    context.Context
	root   string
	issues []doctorIssue
}

func (d *doctor) report(issue doctorIssue) *doctorIssue {
	d.issues = append(d.issues, issue)
	if !jsonOutput {
		label := issue.Domain
		if label == "" {
			label = issue.Check
		}
		printer.Warning("%s: %s\n", label, issue.Message)
	}
	return &d.issues[len(d.issues)-1]
}

func (d *doctor) fixed(issue *doctorIssue, format string, a ...any) {
	issue.Fixed = true
	if !jsonOutput {
		printer.Success("  Fixed: %s\n", fmt.Sprintf(format, a...))
	}
}

func (d *doctor) ok(format string, a ...any) {
	if !jsonOutput {
		printer.Success(format, a...)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return fail("doctor", err)
	}
	if err := config.EnsureInitialized(root); err != nil {
		return fail("doctor", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d := &doctor{ctx: ctx, root: root}

	cfg, err := config.Load(root)
	if err != nil {
		d.report(doctorIssue{Check: "config", Message: fmt.Sprintf("Config unreadable: %v", err)})
	} else {
		d.ok("Config: OK\n")
		if err := d.checkDomains(cfg); err != nil {
			return fail("doctor", err)
		}
		if err := d.checkStructure(cfg); err != nil {
			return fail("doctor", err)
		}
	}

	remaining, repaired := 0, 0
	for _, issue := range d.issues {
		if issue.Fixed {
			repaired++
		} else {
			remaining++
		}
	}

	if jsonOutput {
		if err := printer.JSON(map[string]any{
			"success": remaining == 0,
			"command": "doctor",
			"issues":  nonNil(d.issues),
			"fixed":   repaired,
		}); err != nil {
			return err
		}
		if remaining > 0 {
			return &printer.ReportedError{Err: fmt.Errorf("%d issue(s) remain", remaining)}
		}
		return nil
	}

	printer.Println()
	switch {
	case len(d.issues) == 0:
		printer.Success("No issues found.\n")
		return nil
	case doctorFix:
		printer.Info("Found %d issue(s), fixed %d.\n", len(d.issues), repaired)
	default:
		printer.Info("Found %d issue(s). Run with --fix to attempt repairs.\n", len(d.issues))
	}
	if remaining > 0 {
		return &printer.ReportedError{Err: errors.New("doctor found issues")}
	}
	return nil
}

// checkDomains parses every registered domain file and applies governance.
func (d *doctor) checkDomains(cfg *config.Config) error {
	store := expertise.NewStore(config.ExpertisePath(d.root), expertise.WithLogger(logging.FromContext(d.ctx)))

	for _, domain := range cfg.Domains {
		if !store.Exists(domain) {
			// Reported by checkStructure.
			continue
		}
		result, err := store.Read(domain)
		if err != nil {
			return err
		}
		for _, bad := range result.Invalid {
			d.report(doctorIssue{Check: "parse", Domain: domain, Line: bad.Line, Message: fmt.Sprintf("line %d: %v", bad.Line, bad.Err)})
		}
		if len(result.Invalid) == 0 {
			d.ok("%s: %d records OK\n", domain, len(result.Records))
		} else if doctorFix {
			if err := dropInvalidLines(d.ctx, store, domain); err != nil {
				return err
			}
			for i := len(d.issues) - len(result.Invalid); i < len(d.issues); i++ {
				d.issues[i].Fixed = true
			}
			if !jsonOutput {
				printer.Success("  Fixed: removed %d bad line(s)\n", len(result.Invalid))
			}
		}

		if level := health.Level(len(result.Records), cfg.Governance); level == health.GovernanceOverLimit {
			d.report(doctorIssue{
				Check:   "governance",
				Domain:  domain,
				Message: fmt.Sprintf("%d records: %s", len(result.Records), level),
			})
		}
	}
	return nil
}

// dropInvalidLines rewrites a domain with only its decodable records.
func dropInvalidLines(ctx context.Context, store *expertise.Store, domain string) error {
	return store.WithLock(ctx, domain, func() error {
		result, err := store.Read(domain)
		if err != nil {
			return err
		}
		return store.Rewrite(domain, result.Records)
	})
}

// checkStructure reports missing files, orphan files and the merge rule.
func (d *doctor) checkStructure(cfg *config.Config) error {
	issues, err := scaffold.Inspect(d.root, cfg)
	if err != nil {
		return err
	}
	for _, found := range issues {
		switch found.Kind {
		case scaffold.IssueMissingFile:
			issue := d.report(doctorIssue{Check: "domain_file", Domain: found.Domain, File: found.Path, Message: found.Message})
			if doctorFix {
				if err := expertise.CreateFile(found.Path); err != nil {
					return err
				}
				d.fixed(issue, "created %s", found.Path)
			}
		case scaffold.IssueOrphanFile:
			issue := d.report(doctorIssue{Check: "orphan", File: found.Path, Message: found.Message})
			if doctorFix {
				if err := os.Remove(found.Path); err != nil {
					return fmt.Errorf("failed to remove %s: %w", found.Path, err)
				}
				d.fixed(issue, "removed %s", found.Path)
			}
		case scaffold.IssueNoGitattribs:
			issue := d.report(doctorIssue{Check: "gitattributes", File: found.Path, Message: found.Message})
			if doctorFix {
				if _, err := scaffold.Initialize(d.root); err != nil {
					return err
				}
				d.fixed(issue, "added %q", scaffold.GitattributesLine)
			}
		}
	}
	return nil
}

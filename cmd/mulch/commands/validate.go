package commands

import (
	"fmt"

	"github.com/dyluth/mulch/internal/printer"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every stored record against the schema",
	Long: `Re-read every domain file line by line and report the lines that are not
valid records, with their line numbers. Exits non-zero when any line fails.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// lineProblem is one invalid stored line.
type lineProblem struct {
	Domain  string `json:"domain"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// scanInvalid reads every domain and returns the total number of valid
// records and every line that failed to decode.
func scanInvalid(rt *runtime) (int, []lineProblem, error) {
	loaded, err := rt.store.LoadDomains(rt.ctx, rt.cfg.Domains)
	if err != nil {
		return 0, nil, err
	}
	var (
		total    int
		problems []lineProblem
	)
	for _, d := range loaded {
		total += d.Count()
		for _, bad := range d.Invalid {
			problems = append(problems, lineProblem{Domain: d.Domain, Line: bad.Line, Message: bad.Err.Error()})
		}
	}
	return total, problems, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("validate", err)
	}
	total, problems, err := scanInvalid(rt)
	if err != nil {
		return fail("validate", err)
	}
	valid := len(problems) == 0

	if jsonOutput {
		if err := printer.JSON(map[string]any{
			"success":      valid,
			"command":      "validate",
			"valid":        valid,
			"totalRecords": total,
			"totalErrors":  len(problems),
			"errors":       nonNil(problems),
		}); err != nil {
			return err
		}
		if !valid {
			return &printer.ReportedError{Err: fmt.Errorf("%d invalid line(s)", len(problems))}
		}
		return nil
	}

	for _, p := range problems {
		printer.Println(fmt.Sprintf("%s:%d - Schema validation failed: %s", p.Domain, p.Line, p.Message))
	}
	if valid {
		printer.Success("%d records validated, 0 errors found\n", total)
		return nil
	}
	return printer.Error(
		"validation failed",
		fmt.Sprintf("%d records validated, %d errors found", total, len(problems)),
		[]string{"Drop invalid lines with:\n  mulch doctor --fix"},
	)
}

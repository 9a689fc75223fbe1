package commands

import (
	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/resolver"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var (
	editClassification string
	editContent        string
	editFieldFlags     recordFields
	editOutcome        outcomeFlags
)

var editCmd = &cobra.Command{
	Use:   "edit <domain> <id>",
	Short: "Edit an existing record",
	Long: `Update fields of an existing record in place.

The record is identified by its full ID (mx-abc123), its bare hash (abc123)
or any unique prefix of either. Only the flags you pass are changed; the
record keeps its ID. --outcome-status appends a new outcome to the record's
history rather than replacing it.`,
	Example: `  mulch edit api mx-3f2a1c --classification foundational
  mulch edit api 3f2a --outcome-status success --outcome-agent reviewer`,
	Args: cobra.ExactArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editClassification, "classification", "", "New classification: foundational, tactical, observational")
	editCmd.Flags().StringVar(&editContent, "content", "", "New content (convention)")
	addRecordFieldFlags(editCmd, &editFieldFlags)
	addOutcomeFlags(editCmd, &editOutcome)
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	domain, id := args[0], args[1]

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("edit", err)
	}
	if err := rt.cfg.EnsureDomain(domain); err != nil {
		return fail("edit", err)
	}

	var edited expertise.Record
	err = rt.store.Mutate(rt.ctx, domain, func(records []expertise.Record) ([]expertise.Record, bool, error) {
		index, record, err := resolver.ResolveRecordID(records, id)
		if err != nil {
			return nil, false, err
		}
		if err := applyEdit(cmd, record); err != nil {
			return nil, false, err
		}
		if err := record.Validate(); err != nil {
			return nil, false, err
		}
		records[index] = record
		edited = record
		return records, true, nil
	})
	if err != nil {
		return fail("edit", err)
	}
	rt.logger.Info("edited record", "domain", domain, "id", edited.Base().ID)

	if jsonOutput {
		return printer.JSONSuccess("edit", map[string]any{
			"domain": domain,
			"id":     edited.Base().ID,
			"type":   string(edited.Type()),
			"record": edited,
		})
	}
	printer.Success("Updated %s %s in %s\n", edited.Type(), edited.Base().ID, domain)
	printer.Dim("  %s\n", format.RecordSummary(edited))
	return nil
}

// applyEdit copies every flag the user set onto record.
func applyEdit(cmd *cobra.Command, record expertise.Record) error {
	changed := cmd.Flags().Changed
	f := editFieldFlags
	m := record.Base()

	if changed("classification") {
		c := expertise.Classification(editClassification)
		if err := c.Validate(); err != nil {
			return err
		}
		m.Classification = c
	}
	if changed("relates-to") {
		m.RelatesTo = splitList(f.relatesTo)
	}
	if changed("supersedes") {
		m.Supersedes = splitList(f.supersedes)
	}

	outcome, err := editOutcome.build(cmd)
	if err != nil {
		return err
	}
	if outcome != nil {
		outcome.RecordedAt = timestamp()
		m.AddOutcome(*outcome)
	}

	switch r := record.(type) {
	case *expertise.Convention:
		if changed("content") {
			r.Content = editContent
		}
	case *expertise.Pattern:
		setIfChanged(changed, "name", &r.Name, f.name)
		setIfChanged(changed, "description", &r.Description, f.description)
		if changed("files") {
			r.FileList = splitList(f.files)
		}
	case *expertise.Failure:
		setIfChanged(changed, "description", &r.Description, f.description)
		setIfChanged(changed, "resolution", &r.Resolution, f.resolution)
	case *expertise.Decision:
		setIfChanged(changed, "title", &r.Title, f.title)
		setIfChanged(changed, "rationale", &r.Rationale, f.rationale)
	case *expertise.Reference:
		setIfChanged(changed, "name", &r.Name, f.name)
		setIfChanged(changed, "description", &r.Description, f.description)
		if changed("files") {
			r.FileList = splitList(f.files)
		}
	case *expertise.Guide:
		setIfChanged(changed, "name", &r.Name, f.name)
		setIfChanged(changed, "description", &r.Description, f.description)
	}
	return nil
}

func setIfChanged(changed func(string) bool, flag string, dst *string, value string) {
	if changed(flag) {
		*dst = value
	}
}

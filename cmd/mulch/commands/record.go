package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dyluth/mulch/internal/health"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

// timestampLayout is RFC3339 with millisecond precision, in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// recordFields are the per-type content flags shared by record and edit.
type recordFields struct {
	name        string
	description string
	resolution  string
	title       string
	rationale   string
	files       string
	relatesTo   string
	supersedes  string
}

// outcomeFlags describe one application of a record.
type outcomeFlags struct {
	status      string
	duration    float64
	testResults string
	agent       string
}

var (
	recordType           string
	recordClassification string
	recordTags           string
	recordFieldFlags     recordFields
	recordOutcome        outcomeFlags
	recordEvidence       expertise.Evidence
	recordForce          bool
	recordStdin          bool
	recordBatch          string
	recordDryRun         bool
)

var recordCmd = &cobra.Command{
	Use:   "record <domain> [content]",
	Short: "Record an expertise entry in a domain",
	Long: `Record a convention, pattern, failure, decision, reference or guide.

Required fields by type:
  convention  content (positional argument or --description)
  pattern     --name and --description (or positional content)
  failure     --description and --resolution
  decision    --title and --rationale
  reference   --name and --description (or positional content)
  guide       --name and --description (or positional content)

Duplicates are detected by type and natural key. A duplicate pattern,
decision, reference or guide replaces the existing record in place; a
duplicate convention or failure is skipped unless --force is given.

Bulk input:
  --stdin        read one JSON record or an array of records from stdin
  --batch FILE   read the same from a file
Missing recorded_at and classification fields are filled in; all records
are written under a single lock.`,
	Example: `  mulch record api "Handlers return typed errors" --type convention
  mulch record api --type failure --description "Flaky test on CI" --resolution "Pin the clock"
  mulch record api --type pattern --name retry --description "Exponential backoff" --files internal/retry.go
  cat records.json | mulch record api --stdin --dry-run`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordType, "type", "", "Record type: convention, pattern, failure, decision, reference, guide")
	f.StringVar(&recordClassification, "classification", string(expertise.ClassificationTactical), "Classification: foundational, tactical, observational")
	f.StringVar(&recordTags, "tags", "", "Comma-separated tags")
	addRecordFieldFlags(recordCmd, &recordFieldFlags)
	addOutcomeFlags(recordCmd, &recordOutcome)

	f.StringVar(&recordEvidence.Commit, "evidence-commit", "", "Commit that demonstrates the record")
	f.StringVar(&recordEvidence.Issue, "evidence-issue", "", "Issue reference")
	f.StringVar(&recordEvidence.File, "evidence-file", "", "File that demonstrates the record")
	f.StringVar(&recordEvidence.Bead, "evidence-bead", "", "Issue-tracker identifier")

	f.BoolVar(&recordForce, "force", false, "Append even if a duplicate exists")
	f.BoolVar(&recordStdin, "stdin", false, "Read JSON records from stdin")
	f.StringVar(&recordBatch, "batch", "", "Read JSON records from a file")
	f.BoolVar(&recordDryRun, "dry-run", false, "Show what would be written without writing")

	rootCmd.AddCommand(recordCmd)
}

func addRecordFieldFlags(cmd *cobra.Command, r *recordFields) {
	f := cmd.Flags()
	f.StringVar(&r.name, "name", "", "Name (pattern, reference, guide)")
	f.StringVar(&r.description, "description", "", "Description (pattern, failure, reference, guide; content for conventions)")
	f.StringVar(&r.resolution, "resolution", "", "Resolution (failure)")
	f.StringVar(&r.title, "title", "", "Title (decision)")
	f.StringVar(&r.rationale, "rationale", "", "Rationale (decision)")
	f.StringVar(&r.files, "files", "", "Comma-separated related files (pattern, reference)")
	f.StringVar(&r.relatesTo, "relates-to", "", "Comma-separated IDs of related records")
	f.StringVar(&r.supersedes, "supersedes", "", "Comma-separated IDs of records this one replaces")
}

func addOutcomeFlags(cmd *cobra.Command, o *outcomeFlags) {
	f := cmd.Flags()
	f.StringVar(&o.status, "outcome-status", "", "Outcome of applying the record: success, failure, partial")
	f.Float64Var(&o.duration, "outcome-duration", 0, "Outcome duration in milliseconds")
	f.StringVar(&o.testResults, "outcome-test-results", "", "Outcome test results summary")
	f.StringVar(&o.agent, "outcome-agent", "", "Agent that applied the record")
}

// build returns the outcome described by the flags, or nil without --outcome-status.
func (o outcomeFlags) build(cmd *cobra.Command) (*expertise.Outcome, error) {
	if o.status == "" {
		return nil, nil
	}
	status := expertise.OutcomeStatus(o.status)
	if err := status.Validate(); err != nil {
		return nil, err
	}
	outcome := &expertise.Outcome{Status: status, TestResults: o.testResults, Agent: o.agent}
	if cmd.Flags().Changed("outcome-duration") {
		d := o.duration
		outcome.Duration = &d
	}
	return outcome, nil
}

func timestamp() string {
	return now().UTC().Format(timestampLayout)
}

func runRecord(cmd *cobra.Command, args []string) error {
	domain := args[0]

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("record", err)
	}
	if err := rt.cfg.EnsureDomain(domain); err != nil {
		return fail("record", err)
	}

	if recordBatch != "" || recordStdin {
		return runRecordBulk(cmd, rt, domain)
	}

	content := ""
	if len(args) > 1 {
		content = args[1]
	}
	record, err := buildRecord(cmd, content)
	if err != nil {
		return usageError("record", "invalid record", err.Error())
	}

	var result expertise.MergeResult
	if recordDryRun {
		existing, err := rt.readDomain(domain)
		if err != nil {
			return fail("record", err)
		}
		result = expertise.Merge(existing, []expertise.Record{record}, recordForce)
	} else {
		result, err = rt.store.Merge(rt.ctx, domain, []expertise.Record{record}, recordForce)
		if err != nil {
			return fail("record", err)
		}
	}

	action := result.Actions[0]
	if jsonOutput {
		fields := map[string]any{
			"action": string(action),
			"domain": domain,
			"type":   string(record.Type()),
			"record": record,
		}
		if recordDryRun {
			fields["action"] = "dry-run"
			fields["wouldDo"] = string(action)
		} else if action != expertise.ActionSkipped {
			fields["id"] = record.Base().ID
		}
		return printer.JSONSuccess("record", fields)
	}

	switch {
	case recordDryRun && action == expertise.ActionCreated:
		printer.Success("Dry-run: Would create %s in %s\n", record.Type(), domain)
	case recordDryRun && action == expertise.ActionUpdated:
		printer.Success("Dry-run: Would update existing %s in %s\n", record.Type(), domain)
	case recordDryRun:
		printer.Warning("Dry-run: Duplicate %s already exists in %s. Would skip.\n", record.Type(), domain)
	case action == expertise.ActionCreated:
		printer.Success("Recorded %s in %s (%s)\n", record.Type(), domain, record.Base().ID)
	case action == expertise.ActionUpdated:
		printer.Success("Updated existing %s in %s (record #%d)\n", record.Type(), domain, result.Indexes[0]+1)
	default:
		printer.Warning("Duplicate %s already exists in %s. Use --force to add anyway.\n", record.Type(), domain)
	}
	if recordDryRun {
		printer.Println("  Run without --dry-run to apply changes.")
		return nil
	}
	warnGovernance(rt, domain, len(result.Records))
	return nil
}

// warnGovernance prints a notice when a domain has grown past its thresholds.
func warnGovernance(rt *runtime, domain string, count int) {
	if level := health.Level(count, rt.cfg.Governance); level >= health.GovernanceWarn {
		printer.Warning("Domain %q has %d records: %s\n", domain, count, level)
	}
}

// buildRecord assembles a record from the command-line flags.
func buildRecord(cmd *cobra.Command, content string) (expertise.Record, error) {
	if recordType == "" {
		return nil, errors.New("--type is required (convention, pattern, failure, decision, reference, guide)")
	}
	classification := expertise.Classification(recordClassification)
	if err := classification.Validate(); err != nil {
		return nil, err
	}
	outcome, err := recordOutcome.build(cmd)
	if err != nil {
		return nil, err
	}

	meta := expertise.Meta{
		Classification: classification,
		RecordedAt:     timestamp(),
		Tags:           splitList(recordTags),
		RelatesTo:      splitList(recordFieldFlags.relatesTo),
		Supersedes:     splitList(recordFieldFlags.supersedes),
	}
	if evidence := recordEvidence; !evidence.IsZero() {
		meta.Evidence = &evidence
	}
	if outcome != nil {
		meta.AddOutcome(*outcome)
	}

	f := recordFieldFlags
	description := firstNonEmpty(f.description, content)
	files := splitList(f.files)

	var record expertise.Record
	switch expertise.Type(recordType) {
	case expertise.TypeConvention:
		text := firstNonEmpty(content, f.description)
		if text == "" {
			return nil, errors.New("Convention records require content (positional argument or --description).")
		}
		record = &expertise.Convention{Content: text, Meta: meta}
	case expertise.TypePattern:
		if f.name == "" || description == "" {
			return nil, errors.New("Pattern records require --name and --description (or positional content).")
		}
		record = &expertise.Pattern{Name: f.name, Description: description, FileList: files, Meta: meta}
	case expertise.TypeFailure:
		if f.description == "" || f.resolution == "" {
			return nil, errors.New("Failure records require --description and --resolution.")
		}
		record = &expertise.Failure{Description: f.description, Resolution: f.resolution, Meta: meta}
	case expertise.TypeDecision:
		if f.title == "" || f.rationale == "" {
			return nil, errors.New("Decision records require --title and --rationale.")
		}
		record = &expertise.Decision{Title: f.title, Rationale: f.rationale, Meta: meta}
	case expertise.TypeReference:
		if f.name == "" || description == "" {
			return nil, errors.New("Reference records require --name and --description (or positional content).")
		}
		record = &expertise.Reference{Name: f.name, Description: description, FileList: files, Meta: meta}
	case expertise.TypeGuide:
		if f.name == "" || description == "" {
			return nil, errors.New("Guide records require --name and --description (or positional content).")
		}
		record = &expertise.Guide{Name: f.name, Description: description, Meta: meta}
	default:
		return nil, fmt.Errorf("unknown record type: %s", recordType)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// decodeBulk parses a JSON record or array of records. Missing recorded_at
// and classification members are filled in. Records that fail to decode are
// reported by position rather than failing the whole input.
func decodeBulk(data []byte) ([]expertise.Record, []string, error) {
	trimmed := strings.TrimSpace(string(data))
	var raws []map[string]any
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, nil, fmt.Errorf("failed to parse JSON input: %w", err)
		}
	} else {
		var single map[string]any
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, nil, fmt.Errorf("failed to parse JSON input: %w", err)
		}
		raws = []map[string]any{single}
	}

	var (
		records []expertise.Record
		errs    []string
	)
	for i, raw := range raws {
		if _, ok := raw["recorded_at"]; !ok {
			raw["recorded_at"] = timestamp()
		}
		if _, ok := raw["classification"]; !ok {
			raw["classification"] = string(expertise.ClassificationTactical)
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Record %d: %v", i, err))
			continue
		}
		r, err := expertise.DecodeLine(encoded)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Record %d: %v", i, err))
			continue
		}
		records = append(records, r)
	}
	return records, errs, nil
}

func runRecordBulk(cmd *cobra.Command, rt *runtime, domain string) error {
	var (
		data   []byte
		err    error
		source = "stdin"
	)
	if recordBatch != "" {
		source = "batch"
		data, err = os.ReadFile(recordBatch)
		if err != nil {
			return fail("record", fmt.Errorf("failed to read batch file %s: %w", recordBatch, err))
		}
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fail("record", fmt.Errorf("failed to read from stdin: %w", err))
		}
	}

	records, errs, err := decodeBulk(data)
	if err != nil {
		return fail("record", err)
	}

	var result expertise.MergeResult
	if len(records) > 0 {
		if recordDryRun {
			existing, err := rt.readDomain(domain)
			if err != nil {
				return fail("record", err)
			}
			result = expertise.Merge(existing, records, recordForce)
		} else {
			result, err = rt.store.Merge(rt.ctx, domain, records, recordForce)
			if err != nil {
				return fail("record", err)
			}
		}
	}
	created, updated, skipped := result.Count(expertise.ActionCreated), result.Count(expertise.ActionUpdated), result.Count(expertise.ActionSkipped)
	allFailed := len(errs) > 0 && created+updated == 0

	if jsonOutput {
		action := source
		if recordDryRun {
			action = "dry-run"
		}
		if err := printer.JSON(map[string]any{
			"success": !allFailed,
			"command": "record",
			"action":  action,
			"domain":  domain,
			"created": created,
			"updated": updated,
			"skipped": skipped,
			"errors":  nonNil(errs),
		}); err != nil {
			return err
		}
		if allFailed {
			return &printer.ReportedError{Err: errors.New("all records failed validation")}
		}
		return nil
	}

	if len(errs) > 0 {
		printer.Warning("Validation errors:\n")
		for _, e := range errs {
			printer.Println("  " + e)
		}
	}

	if recordDryRun {
		if total := created + updated; total > 0 || skipped > 0 {
			printer.Success("Dry-run complete. Would process %d record(s) in %s:\n", total, domain)
			if created > 0 {
				printer.Println(fmt.Sprintf("  Create: %d", created))
			}
			if updated > 0 {
				printer.Println(fmt.Sprintf("  Update: %d", updated))
			}
			if skipped > 0 {
				printer.Println(fmt.Sprintf("  Skip: %d", skipped))
			}
			printer.Println("  Run without --dry-run to apply changes.")
		} else {
			printer.Warning("No records would be processed.\n")
		}
	} else {
		if created > 0 {
			printer.Success("Created %d record(s) in %s\n", created, domain)
		}
		if updated > 0 {
			printer.Success("Updated %d record(s) in %s\n", updated, domain)
		}
		if skipped > 0 {
			printer.Warning("Skipped %d duplicate(s) in %s\n", skipped, domain)
		}
		if result.Changed() {
			warnGovernance(rt, domain, len(result.Records))
		}
	}

	if allFailed {
		return printer.Error("all records failed validation", "None of the input records could be decoded.", nil)
	}
	return nil
}

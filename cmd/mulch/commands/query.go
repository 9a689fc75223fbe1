package commands

import (
	"strings"

	"github.com/dyluth/mulch/internal/filter"
	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/scoring"
	"github.com/dyluth/mulch/internal/timespec"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

// filterFlags are the record filters shared by query and search.
type filterFlags struct {
	recordType     string
	classification string
	file           string
	outcomeStatus  string
	tag            string
	since          string
	sortByScore    bool
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.recordType, "type", "", "Filter by record type")
	flags.StringVar(&f.classification, "classification", "", "Filter by classification")
	flags.StringVar(&f.file, "file", "", "Filter by related file (case-insensitive substring)")
	flags.StringVar(&f.outcomeStatus, "outcome-status", "", "Filter by recorded outcome status")
	flags.StringVar(&f.tag, "tag", "", "Filter by tag")
	flags.StringVar(&f.since, "since", "", "Only records recorded after this time (duration or RFC3339)")
	flags.BoolVar(&f.sortByScore, "sort-by-score", false, "Order records by confirmation score")
}

// criteria converts the flags into validated filter criteria.
func (f *filterFlags) criteria() (*filter.Criteria, error) {
	c := &filter.Criteria{
		Type:           expertise.Type(f.recordType),
		Classification: expertise.Classification(f.classification),
		File:           f.file,
		OutcomeStatus:  expertise.OutcomeStatus(f.outcomeStatus),
		Tag:            f.tag,
	}
	if f.since != "" {
		since, err := timespec.Parse(f.since, now())
		if err != nil {
			return nil, err
		}
		c.Since = since
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	queryFilters filterFlags
	queryAll     bool
	queryFull    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [domain]",
	Short: "Show the records of a domain",
	Long: `Show the records of one domain, or of every domain with --all.

When only one domain is configured it is used by default. Filters are
combined with AND.`,
	Example: `  mulch query api
  mulch query --all --type failure
  mulch query api --outcome-status success --sort-by-score`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryFilters.bind(queryCmd)
	queryCmd.Flags().BoolVar(&queryAll, "all", false, "Query every domain")
	queryCmd.Flags().BoolVar(&queryFull, "full", false, "Include classification, evidence and tags")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("query", err)
	}
	criteria, err := queryFilters.criteria()
	if err != nil {
		return usageError("query", "invalid filter", err.Error())
	}

	var domains []string
	switch {
	case len(args) == 1:
		domains = args
	case queryAll || len(rt.cfg.Domains) == 1:
		domains = rt.cfg.Domains
	default:
		return usageError("query", "no domain selected",
			"Specify a domain or use --all to query all domains.",
			"Available domains: "+strings.Join(rt.cfg.Domains, ", "))
	}

	loaded, err := rt.loadDomains(domains)
	if err != nil {
		return fail("query", err)
	}

	type domainJSON struct {
		Domain  string             `json:"domain"`
		Records []expertise.Record `json:"records"`
	}
	var (
		out      []domainJSON
		sections []string
	)
	for _, d := range loaded {
		records := criteria.Apply(d.Records)
		if queryFilters.sortByScore {
			records = append([]expertise.Record(nil), records...)
			scoring.SortByScore(records)
		}
		if jsonOutput {
			out = append(out, domainJSON{Domain: d.Domain, Records: nonNil(records)})
			continue
		}
		section := format.Section{Domain: d.Domain, Records: records, Updated: rt.modTime(d.Domain)}
		sections = append(sections, format.Markdown(section, queryFull, now()))
	}

	if jsonOutput {
		return printer.JSONSuccess("query", map[string]any{"domains": nonNil(out)})
	}
	if len(sections) > 0 {
		printer.Println(strings.Join(sections, "\n\n"))
	}
	return nil
}

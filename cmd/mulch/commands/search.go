package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/scoring"
	"github.com/dyluth/mulch/internal/search"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

var (
	searchFilters filterFlags
	searchDomain  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search records with BM25 ranking",
	Long: `Search records across domains.

Records are filtered first, then ranked with BM25 over their text fields.
Records with a confirmation history (successful outcomes) are boosted, so
among equally relevant matches the proven ones come first. --sort-by-score
orders each domain's matches purely by confirmation score.`,
	Example: `  mulch search "error handling"
  mulch search retry --domain api --type pattern`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchFilters.bind(searchCmd)
	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "Search only this domain")
	rootCmd.AddCommand(searchCmd)
}

// rankMatches runs BM25 over records and applies the confirmation boost.
func rankMatches(records []expertise.Record, query string) []search.Result {
	results := search.Search(records, query, search.DefaultParams())
	for i := range results {
		results[i].Score = scoring.Boost(results[i].Score, results[i].Record, scoring.DefaultBoostFactor)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return usageError("search", "empty query", "A search query is required.")
	}

	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("search", err)
	}
	criteria, err := searchFilters.criteria()
	if err != nil {
		return usageError("search", "invalid filter", err.Error())
	}

	domains := rt.cfg.Domains
	if searchDomain != "" {
		domains = []string{searchDomain}
	}
	loaded, err := rt.loadDomains(domains)
	if err != nil {
		return fail("search", err)
	}

	type domainJSON struct {
		Domain        string             `json:"domain"`
		Matches       []expertise.Record `json:"matches"`
		MatchedFields [][]string         `json:"matched_fields"` // parallel to Matches
	}
	var (
		out      []domainJSON
		sections []string
		total    int
	)
	for _, d := range loaded {
		results := rankMatches(criteria.Apply(d.Records), query)
		if len(results) == 0 {
			continue
		}
		if searchFilters.sortByScore {
			sort.SliceStable(results, func(i, j int) bool {
				return scoring.ConfirmationScore(results[i].Record) > scoring.ConfirmationScore(results[j].Record)
			})
		}
		matches := search.Records(results)
		total += len(matches)
		rt.logger.Debug("search matches", "domain", d.Domain, "count", len(matches))

		if jsonOutput {
			fields := make([][]string, len(results))
			for i, r := range results {
				fields[i] = nonNil(r.MatchedFields)
			}
			out = append(out, domainJSON{Domain: d.Domain, Matches: matches, MatchedFields: fields})
			continue
		}
		section := format.Section{Domain: d.Domain, Records: matches, Updated: rt.modTime(d.Domain)}
		sections = append(sections, format.Markdown(section, false, now()))
	}

	if jsonOutput {
		return printer.JSONSuccess("search", map[string]any{
			"query":   query,
			"total":   total,
			"domains": nonNil(out),
		})
	}
	if total == 0 {
		printer.Println(fmt.Sprintf("No records matching %q found.", query))
		return nil
	}
	printer.Println(strings.Join(sections, "\n\n"))
	suffix := "es"
	if total == 1 {
		suffix = ""
	}
	printer.Println(fmt.Sprintf("\n%d match%s found.", total, suffix))
	return nil
}

package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/health"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// DomainStat is one row of `mulch status`.
type DomainStat struct {
	Domain     string    `json:"domain"`
	Count      int       `json:"count"`
	StaleCount int       `json:"stale_count"`
	Updated    time.Time `json:"last_updated"`
}

func updatedLabel(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return TimeAgo(t, now)
}

// Status renders the plain status listing.
func Status(stats []DomainStat, g config.Governance, now time.Time) string {
	lines := []string{"Mulch Status", "============", ""}
	if len(stats) == 0 {
		lines = append(lines, "No domains configured. Run `mulch add <domain>` to get started.")
		return strings.Join(lines, "\n")
	}

	for _, s := range stats {
		var note string
		if level := health.Level(s.Count, g); level != health.GovernanceOK {
			note = " ⚠ " + level.String()
		}
		lines = append(lines, fmt.Sprintf("  %s: %d records (updated %s)%s", s.Domain, s.Count, updatedLabel(s.Updated, now), note))
	}
	return strings.Join(lines, "\n")
}

// levelColor highlights the governance column.
func levelColor(l health.GovernanceLevel) func(a ...interface{}) string {
	switch l {
	case health.GovernanceOverLimit:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case health.GovernanceWarn:
		return color.New(color.FgYellow).SprintFunc()
	case health.GovernanceApproaching:
		return color.New(color.FgCyan).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

// StatusTable writes stats as a table with domain, size, staleness and
// governance columns.
func StatusTable(w io.Writer, stats []DomainStat, g config.Governance, now time.Time) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "No domains configured. Run `mulch add <domain>` to get started.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Domain", "Records", "Stale", "Updated", "Governance")

	for _, s := range stats {
		level := health.Level(s.Count, g)
		governance := level.String()
		if governance == "" {
			governance = "ok"
		}
		row := []string{
			s.Domain,
			strconv.Itoa(s.Count),
			strconv.Itoa(s.StaleCount),
			updatedLabel(s.Updated, now),
			levelColor(level)(governance),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append status row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}
	return nil
}

package localdump

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/toothbrush/confluence-export/confluence"
)

// MetricsFileName is written at the root of the output directory.
const MetricsFileName = "metrics.md"

const (
	staleAfter = 365 * 24 * time.Hour
	freshUntil = 30 * 24 * time.Hour
)

// MetricsReport renders the Markdown report for a run: counts, per-page metadata and failures.
// Titles are coloured by how recently the page was viewed, and bolded when it hasn't been updated
// in a year.
func MetricsReport(summary *RunSummary, refs []confluence.PageRef, scope string, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Confluence Page Metrics\n\n")
	if scope != "" {
		fmt.Fprintf(&b, "**Number of pages in %s:** %d\n\n", scope, len(refs))
	} else {
		fmt.Fprintf(&b, "**Number of pages:** %d\n\n", len(refs))
	}

	if summary != nil && summary.Total() > 0 {
		b.WriteString("| Outcome | Pages |\n|---|---|\n")
		for _, s := range Statuses {
			if n := summary.Counts[s]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", s, n)
			}
		}
		if summary.Partial {
			fmt.Fprintf(&b, "| not dispatched | %d |\n", summary.NotDispatched)
		}
		b.WriteString("\n")
	}

	sorted := append([]confluence.PageRef{}, refs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Title != sorted[j].Title {
			return sorted[i].Title < sorted[j].Title
		}
		return sorted[i].ID < sorted[j].ID
	})

	b.WriteString("| Page Title | Created | Last Updated | Last Viewed | Last Updated By |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, ref := range sorted {
		title := tableCell(ref.Title)
		if !ref.LastViewed.IsZero() {
			switch since := now.Sub(ref.LastViewed); {
			case since > staleAfter:
				title = fmt.Sprintf(`<span style="color:red">%s</span>`, title)
			case since < freshUntil:
				title = fmt.Sprintf(`<span style="color:green">%s</span>`, title)
			}
		}
		if !ref.LastUpdated.IsZero() && now.Sub(ref.LastUpdated) > staleAfter {
			title = "**" + title + "**"
		}

		updatedBy := ref.LastUpdatedBy
		if updatedBy == "" {
			updatedBy = "Unknown"
		}

		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			title,
			day(ref.CreatedDate),
			day(ref.LastUpdated),
			day(ref.LastViewed),
			tableCell(updatedBy))
	}

	if summary != nil && len(summary.Failures) > 0 {
		b.WriteString("\n## Failed pages\n\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "- %s (%s): %s\n", tableCell(f.Title), f.PageID, strings.ReplaceAll(f.Error, "\n", " "))
		}
	}

	return b.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

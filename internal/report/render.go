package report

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/jirakit/dwell/internal/analyze"
)

// maxIssuesPerBucket caps how many issue lines a bucket prints before
// collapsing to a count.
const maxIssuesPerBucket = 10

// FormatHours renders an hour count as "N days and H.h hours" once it
// crosses a day, else "H.h hours".
func FormatHours(hours float64) string {
	days := int(hours) / 24
	if days > 0 {
		return fmt.Sprintf("%d days and %.1f hours", days, remainderHours(hours))
	}
	return fmt.Sprintf("%.1f hours", hours)
}

func remainderHours(hours float64) float64 {
	return hours - float64(int(hours)/24*24)
}

// unexpectedStatuses returns the statuses present in durations but absent
// from the reference list, sorted for stable output.
func unexpectedStatuses(durations map[string]float64, expected []string) []string {
	known := make(map[string]bool, len(expected))
	for _, status := range expected {
		known[status] = true
	}
	var extra []string
	for status := range durations {
		if !known[status] {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	return extra
}

// RenderIssue formats a single issue's status durations: every reference
// status in workflow order (zeros included), the total, then any statuses
// outside the reference list flagged separately.
func RenderIssue(key string, durations map[string]float64, expected []string) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Time spent in each status for issue %s:", key)))
	b.WriteString("\n")

	var total float64
	for _, status := range expected {
		hours := durations[status]
		total += hours
		fmt.Fprintf(&b, "%s: %s\n", status, FormatHours(hours))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %s\n", FormatHours(total))

	extra := unexpectedStatuses(durations, expected)
	if len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("Note: the following unexpected statuses were also found:"))
		b.WriteString("\n")
		for _, status := range extra {
			hours := durations[status]
			total += hours
			fmt.Fprintf(&b, "%s: %s\n", status, FormatHours(hours))
		}
		fmt.Fprintf(&b, "\nTotal including unexpected statuses: %s\n", FormatHours(total))
	}

	return b.String()
}

// RenderReport formats the full aggregation: the time-to-market summary,
// the per-category breakdown, overall per-status totals, and the grand
// total. Statuses outside the reference list are included in every total
// and listed after the reference ones with a marker.
func RenderReport(r analyze.Report, expected []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Aggregated results for %d issues\n", r.IssueCount)

	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("Time to Market by %s:", r.GroupField)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(separator))
	b.WriteString("\n")
	for _, bucket := range r.Buckets {
		fmt.Fprintf(&b, "%s: %s (%d issues)\n",
			bucket.Category, FormatHours(bucket.TimeToMarket()), bucket.IssueCount)
	}
	b.WriteString(mutedStyle.Render(separator))
	b.WriteString("\n")

	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("Breakdown by %s:", r.GroupField)))
	b.WriteString("\n")
	for _, bucket := range r.Buckets {
		fmt.Fprintf(&b, "\n%s (%d issues):\n", bucket.Category, bucket.IssueCount)
		fmt.Fprintf(&b, "  Total time: %s\n", FormatHours(bucket.TotalHours))
		fmt.Fprintf(&b, "  Time to Market: %s\n", FormatHours(bucket.TimeToMarket()))

		b.WriteString("  Status breakdown:\n")
		for _, status := range statusOrder(bucket.StatusTotals, expected) {
			fmt.Fprintf(&b, "    %s: %s\n", status, FormatHours(bucket.StatusTotals[status]))
		}

		b.WriteString("  Issues:\n")
		for i, key := range bucket.IssueKeys {
			if i == maxIssuesPerBucket {
				fmt.Fprintf(&b, "    %s\n",
					mutedStyle.Render(fmt.Sprintf("... and %d more issues", len(bucket.IssueKeys)-maxIssuesPerBucket)))
				break
			}
			if issue, ok := r.Issue(key); ok {
				fmt.Fprintf(&b, "    %s: %s (Current: %s)\n", key, issue.Summary, issue.CurrentStatus)
			} else {
				fmt.Fprintf(&b, "    %s\n", key)
			}
		}
		b.WriteString(mutedStyle.Render(separator))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Overall time spent in each status:"))
	b.WriteString("\n")
	globalDurations := make(map[string]float64, len(r.StatusTotals))
	for status, total := range r.StatusTotals {
		globalDurations[status] = total.Hours
	}
	for _, status := range statusOrder(globalDurations, expected) {
		total := r.StatusTotals[status]
		name := status
		if !slices.Contains(expected, status) {
			name = warnStyle.Render(status + " (unexpected)")
		}
		fmt.Fprintf(&b, "%s:\n", name)
		fmt.Fprintf(&b, "  Total: %s\n", FormatHours(total.Hours))
		fmt.Fprintf(&b, "  Average: %s\n", FormatHours(total.Average()))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Grand Total:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total time across %d issues: %s\n", r.IssueCount, FormatHours(r.GrandTotalHours))
	fmt.Fprintf(&b, "Average Time to Market: %s\n", FormatHours(r.GrandAverage()))

	return b.String()
}

// statusOrder lists the statuses present in durations: reference statuses
// first in workflow order, then any others sorted by name.
func statusOrder(durations map[string]float64, expected []string) []string {
	var order []string
	for _, status := range expected {
		if _, ok := durations[status]; ok {
			order = append(order, status)
		}
	}
	return append(order, unexpectedStatuses(durations, expected)...)
}

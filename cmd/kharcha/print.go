package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"kharcha/internal/analytics"
	"kharcha/internal/core"
)

func printEntries(out io.Writer, title string, entries []core.LedgerEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\t%s\t%s\n",
			e.Date, e.Emoji, e.ItemName, core.FormatAmount(e.Amount), e.Category, e.Kind, e.ID)
	}
	_ = tw.Flush()
}

// activityRow renders the grid oldest first, one glyph per day.
func activityRow(days []analytics.ActivityDay) string {
	var b strings.Builder
	for _, d := range days {
		if d.Active {
			b.WriteString("■")
		} else {
			b.WriteString("·")
		}
	}
	return b.String()
}

func printSummary(out io.Writer, s analytics.Summary) {
	fmt.Fprintf(out, "Today:    %s\n", s.Today)
	fmt.Fprintf(out, "Streak:   %d day(s)\n", s.Streak)
	fmt.Fprintf(out, "Activity: %s\n", activityRow(s.Activity))
	fmt.Fprintf(out, "Spent:    %s across %d entries\n", core.FormatAmount(s.Total), s.Count)

	fmt.Fprintln(out, "Split:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, b := range s.Distribution.Buckets {
		fmt.Fprintf(tw, "  %s\t%s\n", b.Name, core.FormatAmount(b.Amount))
	}
	_ = tw.Flush()

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(out, "By category:")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range s.ByCategory {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Name, core.FormatAmount(c.Amount))
		}
		_ = tw.Flush()
	}
}

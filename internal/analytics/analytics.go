// Package analytics derives behavioral signals from a ledger snapshot. Every
// function is pure: no I/O, no clock. Callers pass today explicitly.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// GridDays is the length of the trailing activity window.
const GridDays = 28

// NoDataBucket names the single bucket reported for an empty distribution.
const NoDataBucket = "No Data"

// ActivityDay is one cell of the activity grid.
type ActivityDay struct {
	Date   core.Date `json:"date"`
	Active bool      `json:"active"`
}

// Bucket is one slice of the need/want distribution.
type Bucket struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Distribution is the need/want split. Buckets holds either Need and Want,
// in that order, or a single NoDataBucket.
type Distribution struct {
	Need    decimal.Decimal `json:"need"`
	Want    decimal.Decimal `json:"want"`
	Buckets []Bucket        `json:"buckets"`
}

// HasData reports whether any Need or Want amount was recorded.
func (d Distribution) HasData() bool {
	return !d.Need.IsZero() || !d.Want.IsZero()
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary bundles every signal for a dashboard.
type Summary struct {
	Today        core.Date        `json:"today"`
	Streak       int              `json:"streak"`
	Activity     []ActivityDay    `json:"activity"`
	Distribution Distribution     `json:"distribution"`
	Total        decimal.Decimal  `json:"total"`
	Count        int              `json:"count"`
	ByCategory   []CategoryAmount `json:"by_category"`
}

// Streak counts consecutive calendar days with at least one entry, starting
// from the most recent entry date. It is 0 when that date is more than one
// day before today. Entries dated after today are ignored.
func Streak(entries []core.LedgerEntry, today core.Date) int {
	dates := distinctDates(entries, today)
	if len(dates) == 0 {
		return 0
	}
	if dates[0].DaysBetween(today) > 1 {
		return 0
	}

	streak := 1
	for i := 0; i+1 < len(dates); i++ {
		if dates[i+1].DaysBetween(dates[i]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// distinctDates returns the distinct entry dates not after today, newest first.
func distinctDates(entries []core.LedgerEntry, today core.Date) []core.Date {
	seen := make(map[string]core.Date, len(entries))
	for _, e := range entries {
		if e.Date.IsZero() || e.Date.After(today.Time) {
			continue
		}
		seen[e.Date.String()] = e.Date
	}
	dates := make([]core.Date, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j].Time) })
	return dates
}

// ActivityGrid returns GridDays cells ending today. Index GridDays-1 is today
// and index GridDays-1-k is k days ago.
func ActivityGrid(entries []core.LedgerEntry, today core.Date) []ActivityDay {
	active := make(map[string]bool, len(entries))
	for _, e := range entries {
		active[e.Date.String()] = true
	}

	grid := make([]ActivityDay, GridDays)
	for i := range grid {
		day := core.DateOf(today.AddDate(0, 0, i-(GridDays-1)))
		grid[i] = ActivityDay{Date: day, Active: active[day.String()]}
	}
	return grid
}

// NeedWant sums amounts per kind. When both sums are zero the distribution
// carries a single NoDataBucket instead of two empty slices.
func NeedWant(entries []core.LedgerEntry) Distribution {
	var d Distribution
	for _, e := range entries {
		switch e.Kind {
		case core.Need:
			d.Need = d.Need.Add(e.Amount)
		case core.Want:
			d.Want = d.Want.Add(e.Amount)
		}
	}
	if !d.HasData() {
		d.Buckets = []Bucket{{Name: NoDataBucket, Amount: decimal.Zero}}
		return d
	}
	d.Buckets = []Bucket{
		{Name: string(core.Need), Amount: d.Need},
		{Name: string(core.Want), Amount: d.Want},
	}
	return d
}

// ByCategory aggregates amounts per category, largest first; ties are
// ordered by name.
func ByCategory(entries []core.LedgerEntry) []CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summarize computes every signal over one snapshot.
func Summarize(entries []core.LedgerEntry, today core.Date) Summary {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return Summary{
		Today:        today,
		Streak:       Streak(entries, today),
		Activity:     ActivityGrid(entries, today),
		Distribution: NeedWant(entries),
		Total:        total,
		Count:        len(entries),
		ByCategory:   ByCategory(entries),
	}
}

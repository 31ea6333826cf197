// Package export renders the ledger as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"kharcha/internal/core"
)

// Delimiter separates CSV fields.
const Delimiter = ','

// Row is one exported ledger entry.
type Row struct {
	ID         string `csv:"id"`
	Date       string `csv:"date"`
	ItemName   string `csv:"item_name"`
	Amount     string `csv:"amount"`
	Category   string `csv:"category"`
	Kind       string `csv:"type"`
	Emoji      string `csv:"emoji"`
	SourceNote string `csv:"source_note"`
}

// Rows converts entries into export rows, keeping their order. Amounts always
// carry two decimals.
func Rows(entries []core.LedgerEntry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			ID:         e.ID,
			Date:       e.Date.String(),
			ItemName:   e.ItemName,
			Amount:     e.Amount.StringFixed(2),
			Category:   e.Category,
			Kind:       string(e.Kind),
			Emoji:      e.Emoji,
			SourceNote: e.SourceNote,
		}
	}
	return rows
}

// WriteCSV writes a header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []core.LedgerEntry) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = Delimiter

	rows := Rows(entries)
	if len(rows) == 0 {
		// gocsv writes no header for an empty slice.
		if err := csvWriter.Write([]string{"id", "date", "item_name", "amount", "category", "type", "emoji", "source_note"}); err != nil {
			return fmt.Errorf("error writing CSV header: %w", err)
		}
		csvWriter.Flush()
		return csvWriter.Error()
	}

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

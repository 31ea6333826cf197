// Package sheets mirrors committed ledger entries into a spreadsheet.
package sheets

import (
	"context"

	"kharcha/internal/core"
)

// IDColumn is the zero-based column holding the ledger id in every mirror row.
const IDColumn = 6

// Header is the first row of a mirror sheet.
var Header = []any{"Date", "Item", "Amount", "Category", "Type", "Emoji", "ID"}

// Ports for outbound adapters.
type (
	// Mirror appends and removes ledger rows. DeleteEntry reports how many
	// rows carried the id; zero is not an error.
	Mirror interface {
		AppendEntries(ctx context.Context, entries []core.LedgerEntry) (rowRef string, err error)
		DeleteEntry(ctx context.Context, id string) (removed int, err error)
	}
)

// Row renders e in Header order.
func Row(e core.LedgerEntry) []any {
	return []any{
		e.Date.String(),
		e.ItemName,
		e.Amount.InexactFloat64(),
		e.Category,
		string(e.Kind),
		e.Emoji,
		e.ID,
	}
}

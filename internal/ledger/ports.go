// Package ledger defines the ports of the durable expense ledger. Adapters
// live in ledger/memory, storage (SQLite) and storage/postgres.
package ledger

import (
	"context"
	"sort"

	"kharcha/internal/core"
)

// Ports for ledger adapters.
type (
	// Appender persists a batch atomically and returns it with ids assigned,
	// in input order. Either every entry is stored or none is.
	Appender interface {
		Append(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error)
	}

	// Querier returns every entry ordered by date descending, then id
	// descending.
	Querier interface {
		Query(ctx context.Context) ([]core.LedgerEntry, error)
	}

	// Deleter removes one entry. A missing id yields core.ErrNotFound.
	Deleter interface {
		Delete(ctx context.Context, id string) error
	}

	// Store is the full ledger port.
	Store interface {
		Appender
		Querier
		Deleter
	}
)

// SortNewestFirst orders entries by date descending, then id descending.
func SortNewestFirst(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
}

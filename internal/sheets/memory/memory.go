// Package memory is an in-process sheets mirror used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ports "kharcha/internal/sheets"

	"kharcha/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.Mirror = (*Store)(nil)

// New returns a mirror holding only the header row.
func New() *Store {
	return &Store{rows: [][]any{ports.Header}}
}

// AppendEntries stores one row per entry and returns a synthetic range.
func (s *Store) AppendEntries(_ context.Context, entries []core.LedgerEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(entries) == 0 {
		return "", nil
	}
	first := len(s.rows) + 1
	for _, e := range entries {
		s.rows = append(s.rows, ports.Row(e))
	}
	return fmt.Sprintf("mem!A%d:G%d", first, len(s.rows)), nil
}

// DeleteEntry drops every data row carrying id.
func (s *Store) DeleteEntry(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	kept := s.rows[:1]
	removed := 0
	for _, row := range s.rows[1:] {
		if fmt.Sprint(row[ports.IDColumn]) == id {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

// Rows returns a copy of the data rows, header excluded.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows)-1)
	copy(out, s.rows[1:])
	return out
}

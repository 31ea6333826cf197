package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

func entry(id, name string) core.LedgerEntry {
	return core.LedgerEntry{
		ID:       id,
		ItemName: name,
		Amount:   decimal.RequireFromString("12.50"),
		Category: "Food",
		Kind:     core.Need,
		Date:     core.NewDate(2025, 3, 14),
	}
}

func TestMemoryStoreAppendAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendEntries(ctx, []core.LedgerEntry{entry("1", "Lunch"), entry("2", "Dinner")})
	if err != nil || ref != "mem!A2:G3" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "2025-03-14" || rows[0][1] != "Lunch" || rows[0][2] != 12.5 || rows[0][6] != "1" {
		t.Errorf("unexpected row: %v", rows[0])
	}

	removed, err := s.DeleteEntry(ctx, "1")
	if err != nil || removed != 1 {
		t.Fatalf("unexpected delete: removed=%d err=%v", removed, err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0][1] != "Dinner" {
		t.Errorf("unexpected rows after delete: %v", rows)
	}

	removed, err = s.DeleteEntry(ctx, "missing")
	if err != nil || removed != 0 {
		t.Errorf("deleting an unknown id: removed=%d err=%v", removed, err)
	}
}

func TestMemoryStoreEmptyAppend(t *testing.T) {
	s := New()
	ref, err := s.AppendEntries(context.Background(), nil)
	if err != nil || ref != "" {
		t.Errorf("unexpected append: ref=%q err=%v", ref, err)
	}
	if len(s.Rows()) != 0 {
		t.Error("expected no rows")
	}
}

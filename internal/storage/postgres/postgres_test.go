package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
)

func TestMigrationURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/kharcha?sslmode=disable":   "pgx5://u:p@localhost:5432/kharcha?sslmode=disable",
		"postgresql://u:p@localhost:5432/kharcha?sslmode=disable": "pgx5://u:p@localhost:5432/kharcha?sslmode=disable",
		"pgx5://already": "pgx5://already",
	}
	for in, want := range tests {
		assert.Equal(t, want, MigrationURL(in))
	}
}

// TestPostgresStore runs against a real database when KHARCHA_TEST_POSTGRES_DSN
// is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("KHARCHA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KHARCHA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, "TRUNCATE ledger_entries")
	require.NoError(t, err)

	saved, err := s.Append(ctx, []core.LedgerEntry{
		{ItemName: "Rent", Amount: decimal.NewFromInt(1200), Category: "Housing", Kind: core.Need, Date: core.NewDate(2025, 3, 1)},
		{ItemName: "Movie", Amount: decimal.RequireFromString("15.50"), Category: "Fun", Kind: core.Want, Date: core.NewDate(2025, 3, 2)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	list, err := s.Query(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Movie", list[0].ItemName)
	assert.True(t, list[0].Amount.Equal(decimal.RequireFromString("15.5")))

	require.NoError(t, s.Delete(ctx, saved[0].ID))
	assert.ErrorIs(t, s.Delete(ctx, saved[0].ID), core.ErrNotFound)
}

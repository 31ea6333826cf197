package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "kharcha.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(name string, amount string, d core.Date) core.LedgerEntry {
	return core.LedgerEntry{
		ItemName:   name,
		Amount:     decimal.RequireFromString(amount),
		Category:   "Food",
		Kind:       core.Want,
		Date:       d,
		Emoji:      "🍕",
		SourceNote: "",
	}
}

func TestSQLiteAppendQueryDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.Append(ctx, []core.LedgerEntry{
		entry("Pizza", "12.50", core.NewDate(2025, 3, 1)),
		entry("Shoes (50 USD)", "70", core.NewDate(2025, 3, 2)),
		entry("Coffee", "3.25", core.NewDate(2025, 3, 2)),
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, e := range saved {
		assert.NotEmpty(t, e.ID)
	}

	list, err := repo.Query(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Coffee", list[0].ItemName)
	assert.Equal(t, "Shoes (50 USD)", list[1].ItemName)
	assert.Equal(t, "Pizza", list[2].ItemName)
	assert.True(t, list[2].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, core.NewDate(2025, 3, 1), list[2].Date)
	assert.Equal(t, "🍕", list[2].Emoji)

	require.NoError(t, repo.Delete(ctx, saved[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, saved[0].ID), core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "not-a-number"), core.ErrNotFound)

	list, err = repo.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSQLiteAppendRejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	bad := entry("Bad", "1", core.NewDate(2025, 3, 1))
	bad.Kind = "Maybe"
	_, err := repo.Append(ctx, []core.LedgerEntry{entry("Good", "1", core.NewDate(2025, 3, 1)), bad})
	assert.ErrorIs(t, err, core.ErrInvalidClassification)

	list, err := repo.Query(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kharcha.db")

	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	_, err = repo.Append(ctx, []core.LedgerEntry{entry("Tea", "2", core.NewDate(2025, 1, 1))})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()
	list, err := repo.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, repo.Ping(ctx))
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kharcha.db")

	v1, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)

	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

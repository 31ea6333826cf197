package currency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertUSD(t *testing.T) {
	tbl := Default()
	conv := tbl.Convert(decimal.NewFromInt(50), "usd")
	assert.True(t, conv.Converted)
	assert.True(t, conv.Amount.Equal(decimal.RequireFromString("70.0")), "got %s", conv.Amount)
	assert.Equal(t, "50 USD", conv.Note)
}

func TestConvertCanonicalAndUnknown(t *testing.T) {
	tbl := Default()
	for _, code := range []string{"", "CAD", "$", "cad", "XYZ", "ZWL"} {
		conv := tbl.Convert(decimal.RequireFromString("12.5"), code)
		assert.False(t, conv.Converted, code)
		assert.Empty(t, conv.Note, code)
		assert.True(t, conv.Amount.Equal(decimal.RequireFromString("12.5")), code)
	}
}

func TestConvertRounding(t *testing.T) {
	conv := Default().Convert(decimal.NewFromInt(1234), "INR")
	assert.True(t, conv.Amount.Equal(decimal.RequireFromString("19.74")), "got %s", conv.Amount)
}

func TestNormalizeSymbols(t *testing.T) {
	tbl := Default()
	assert.Equal(t, "EUR", tbl.Normalize("€"))
	assert.Equal(t, "INR", tbl.Normalize("rupees"))
	assert.Equal(t, "CAD", tbl.Normalize("$"))
	assert.Equal(t, "GBP", tbl.Normalize(" gbp "))
	assert.True(t, tbl.Known("usd"))
	assert.True(t, tbl.Known("CAD"))
	assert.False(t, tbl.Known("XYZ"))
}

func TestNormalizeSymbolsNonCADTable(t *testing.T) {
	tbl, err := New("USD", map[string]float64{"CAD": 0.7})
	require.NoError(t, err)

	assert.Equal(t, "CAD", tbl.Normalize("C$"))
	assert.Equal(t, "CAD", tbl.Normalize("CA$"))
	assert.Equal(t, "USD", tbl.Normalize("$"))
	assert.Equal(t, "USD", tbl.Normalize("dollar"))

	conv := tbl.Convert(decimal.NewFromInt(100), "C$")
	assert.True(t, conv.Converted)
	assert.True(t, conv.Amount.Equal(decimal.NewFromInt(70)), "got %s", conv.Amount)
	assert.Equal(t, "100 CAD", conv.Note)

	assert.False(t, tbl.Convert(decimal.NewFromInt(5), "$").Converted)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("CAD", map[string]float64{"NOPE": 1})
	assert.Error(t, err)
	_, err = New("CAD", map[string]float64{"USD": 0})
	assert.Error(t, err)
	_, err = New("??", nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("canonical: CAD\nrates:\n  USD: 1.25\n  EUR: 1.5\n"), 0o644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CAD", tbl.CanonicalCode())
	assert.Equal(t, []string{"EUR", "USD"}, tbl.Codes())

	conv := tbl.Convert(decimal.NewFromInt(100), "USD")
	assert.True(t, conv.Amount.Equal(decimal.NewFromInt(125)))
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rates: [1, 2"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

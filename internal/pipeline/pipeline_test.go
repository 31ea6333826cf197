package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
	"kharcha/internal/currency"
)

var today = core.NewDate(2025, 3, 14)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `  [{"a":1}]  `, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[]\n```", `[]`},
		{"upper case tag", "```JSON [1] ```", `[1]`},
		{"prose around fence", "Here you go:\n```json\n[]\n```\nEnjoy", `[]`},
		{"first fence wins", "```[1]``` and ```[2]```", `[1]`},
		{"unterminated fence", "```json\n[]", "```json\n[]"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw))
		})
	}
}

func TestDecodeRejectsNonArrays(t *testing.T) {
	payloads := map[string]string{
		"empty":            "",
		"object":           `{"item_name":"coffee"}`,
		"scalar":           `42`,
		"invalid json":     `[{"item_name":`,
		"non-object":       `[{"item_name":"a"}, 3]`,
		"wrong bool type":  `[{"is_expense":"yes"}]`,
		"wrong string":     `[{"item_name":5}]`,
		"non-numeric text": `[{"amount":"lots"}]`,
		"prose":            `Sorry, I can't help with that.`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrMalformedResponse))
			var me *MalformedError
			assert.True(t, errors.As(err, &me))
		})
	}
}

func TestDecodeFields(t *testing.T) {
	records, err := Decode(`[
		{"is_expense":true,"item_name":"Coffee","amount":"4.50","currency":"USD","category":"Food",
		 "type":"Need","date":"2025-03-01","emoji":"☕","funny_comment":"ok","unknown":{"x":1}},
		{"isExpense":false,"itemName":null,"commentary":"hi"}
	]`)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	require.NotNil(t, r.Amount)
	assert.True(t, r.Amount.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, "Coffee", *r.ItemName)
	assert.Equal(t, "USD", *r.Currency)
	assert.Equal(t, "Need", *r.Kind)
	assert.Equal(t, "ok", *r.Commentary)
	assert.True(t, *r.IsExpense)

	assert.Nil(t, records[1].ItemName)
	assert.False(t, *records[1].IsExpense)
	assert.Equal(t, "hi", *records[1].Commentary)
}

func TestDecodeEmptyArray(t *testing.T) {
	records, err := Decode(`[]`)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeNoNumericLiteral(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := `[{"is_expense":true,"item_name":"Pizza","amount":20,"category":"Food","type":"Want","funny_comment":"hungry?"}]`

	got, err := n.Normalize("I had some pizza", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsExpense)
	assert.Nil(t, got[0].Amount)
	assert.Empty(t, got[0].ItemName)
	assert.Equal(t, "hungry?", got[0].Commentary)
}

func TestNormalizeSingleLiteral(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := "```json\n" + `[{"is_expense":true,"item_name":"Groceries","amount":45.5}]` + "\n```"

	got, err := n.Run("groceries 45.50", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.True(t, c.IsExpense)
	require.NotNil(t, c.Amount)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("45.5")))
	assert.Equal(t, core.DefaultCategory, c.Category)
	assert.Equal(t, core.Want, c.Kind)
	assert.Equal(t, "2025-03-14", c.Date)
	assert.Empty(t, c.SourceNote)
}

func TestNormalizeDowngradesInventedAmount(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := `[{"is_expense":true,"item_name":"Taxi","amount":25,"funny_comment":"guessing"}]`

	got, err := n.Normalize("taxi home after 2 drinks", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsExpense)
	assert.Nil(t, got[0].Amount)
	assert.Equal(t, "guessing", got[0].Commentary)
}

func TestNormalizeIsExpenseDefaultsToAmountPresence(t *testing.T) {
	n := NewNormalizer(nil, nil)

	got, err := n.Normalize("book 12", `[{"item_name":"Book","amount":12},{"funny_comment":"nice"}]`, today)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsExpense)
	assert.False(t, got[1].IsExpense)

	got, err = n.Normalize("book 12", `[{"is_expense":false,"item_name":"Book","amount":12}]`, today)
	require.NoError(t, err)
	assert.False(t, got[0].IsExpense)
}

func TestNormalizeCommaSeparatedAmounts(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := `[{"item_name":"Chips","amount":5},{"item_name":"Soda","amount":10},{"item_name":"Candy","amount":15},{"item_name":"Gum","amount":20}]`

	got, err := n.Normalize("snacks 5,10,15 each day", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[0].IsExpense)
	assert.True(t, got[1].IsExpense)
	assert.True(t, got[2].IsExpense)
	assert.False(t, got[3].IsExpense, "20 was never typed")
}

func TestNormalizeCurrencyConversion(t *testing.T) {
	n := NewNormalizer(currency.Default(), nil)
	payload := `[{"is_expense":true,"item_name":"Shoes","amount":50,"currency":"USD","type":"Want"}]`

	got, err := n.Normalize("shoes for 50 usd", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 1)
	c := got[0]
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(70)))
	assert.Contains(t, c.ItemName, "(50 USD)")
	assert.Equal(t, "50 USD", c.SourceNote)
}

func TestNormalizeUnknownCurrencyPassesThrough(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := `[{"is_expense":true,"item_name":"Souvenir","amount":30,"currency":"XYZ"}]`

	got, err := n.Normalize("souvenir 30 xyz", payload, today)
	require.NoError(t, err)
	c := got[0]
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "Souvenir", c.ItemName)
	assert.Empty(t, c.SourceNote)
}

func TestNormalizeRateOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("canonical: CAD\nrates:\n  USD: 2\n"), 0o600))
	rates, err := currency.LoadFile(path)
	require.NoError(t, err)

	n := NewNormalizer(rates, nil)
	got, err := n.Normalize("10 USD lunch", `[{"item_name":"Lunch","amount":10,"currency":"USD"}]`, today)
	require.NoError(t, err)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestNormalizeDates(t *testing.T) {
	n := NewNormalizer(nil, nil)

	got, err := n.Normalize("gas 40", `[{"item_name":"Gas","amount":40,"date":"2025-03-01"}]`, today)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", got[0].Date)

	got, err = n.Normalize("gas 40", `[{"item_name":"Gas","amount":40,"date":"last tuesday"}]`, today)
	require.NoError(t, err)
	assert.Equal(t, "last tuesday", got[0].Date)

	_, err = core.ValidateBatch(Expenses(got))
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestNormalizeKeepsOrderAndMixedBatch(t *testing.T) {
	n := NewNormalizer(nil, nil)
	payload := `[
		{"item_name":"Rent","amount":1200,"type":"need","category":"Housing"},
		{"funny_comment":"also said hi"},
		{"item_name":"Movie","amount":15,"type":"wants"}
	]`

	got, err := n.Normalize("rent 1,200 and a movie 15, hi", payload, today)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Rent", got[0].ItemName)
	assert.Equal(t, core.Need, got[0].Kind)
	assert.Equal(t, "Housing", got[0].Category)
	assert.False(t, got[1].IsExpense)
	assert.Equal(t, core.Want, got[2].Kind)

	expenses := Expenses(got)
	require.Len(t, expenses, 2)
	assert.Equal(t, "Movie", expenses[1].ItemName)
	assert.Equal(t, "also said hi", Commentary(got))
}

func TestNormalizeMalformed(t *testing.T) {
	n := NewNormalizer(nil, nil)
	_, err := n.Run("coffee 3", "I think you bought coffee", today)
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
}

func TestNormalizeBlankFieldsDefault(t *testing.T) {
	n := NewNormalizer(nil, nil)
	got, err := n.Normalize("snack 3", `[{"item_name":"Snack","amount":3,"category":"  ","type":"maybe","emoji":" 🍫 "}]`, today)
	require.NoError(t, err)
	c := got[0]
	assert.Equal(t, core.DefaultCategory, c.Category)
	assert.Equal(t, core.Want, c.Kind)
	assert.Equal(t, "🍫", c.Emoji)

	entries, err := core.ValidateBatch([]core.CandidateEntry{c})
	require.NoError(t, err)
	assert.Equal(t, today, entries[0].Date)
}

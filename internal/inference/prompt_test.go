package inference

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
)

func TestExtractionPrompt(t *testing.T) {
	p := ExtractionPrompt("  coffee 4.50 \n", core.NewDate(2025, 3, 14), "CAD")
	assert.Contains(t, p, "today is 2025-03-14")
	assert.Contains(t, p, `otherwise "CAD"`)
	assert.True(t, strings.HasSuffix(p, "coffee 4.50\n"))
}

func TestReviewPromptUsesNewestTwenty(t *testing.T) {
	entries := make([]core.LedgerEntry, 0, 25)
	for i := range 25 {
		entries = append(entries, core.LedgerEntry{
			ItemName: fmt.Sprintf("item-%02d", i),
			Amount:   decimal.NewFromInt(int64(i)),
			Kind:     core.Want,
		})
	}

	p := ReviewPrompt(entries, "CAD")
	assert.Contains(t, p, "item-00 ($0.00) - Want")
	assert.Contains(t, p, "item-19 ($19.00) - Want")
	assert.NotContains(t, p, "item-20")
}

func TestReviewLine(t *testing.T) {
	e := core.LedgerEntry{ItemName: "Shoes (50 USD)", Amount: decimal.NewFromInt(70), Kind: core.Want}
	assert.Equal(t, "Shoes (50 USD) ($70.00) - Want", ReviewLine(e))
}

func TestStaticAndFunc(t *testing.T) {
	out, err := Static("[]").Infer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	var seen string
	f := Func(func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return "ok", nil
	})
	_, err = f.Infer(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", seen)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{}, nil)
	assert.Error(t, err)
}

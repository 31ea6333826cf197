package inference

import (
	"fmt"
	"strings"

	"kharcha/internal/core"
)

// ReviewWindow is how many of the most recent entries a review looks at.
const ReviewWindow = 20

// EmptyReview is returned for an empty ledger without calling the model.
const EmptyReview = "You haven't spent anything. Are you a ghost? 👻"

const extractionTemplate = `Respond with a JSON array and nothing else.
Turn the expense text below into one JSON object per purchase or remark.

Only report an amount when the text contains that number. Never estimate,
guess or look up a price.

If the text has no number at all, return a single object with is_expense set
to false and a funny_comment asking, in Hinglish, what it cost.

Keys of every object:
- is_expense: boolean, true only for a purchase whose amount was typed
- item_name: string, what was bought; null when is_expense is false
- amount: number exactly as typed; null when is_expense is false
- currency: ISO 4217 code of the amount (e.g. "USD") when the text names one, otherwise %[1]q
- category: short string such as "Food" or "Transport"; null when is_expense is false
- type: "Need" or "Want"; null when is_expense is false
- date: YYYY-MM-DD; today is %[2]s; null when is_expense is false
- emoji: one emoji for the item, optional
- funny_comment: a short witty Hinglish remark. Amounts are in %[1]s and the
  user lives in Canada; never mention rupees.

No markdown, no code fences, no explanations.

Expense text:
%[3]s
`

// ExtractionPrompt builds the prompt that turns free-form text into entry
// records.
func ExtractionPrompt(text string, today core.Date, canonical string) string {
	return fmt.Sprintf(extractionTemplate, canonical, today.String(), strings.TrimSpace(text))
}

const reviewTemplate = `Here are someone's latest expenses, in %[1]s:
%[2]s

Write a short, sarcastic "Performance Review" of their spending in Hinglish.
Pick on the Wants and the large amounts. Use "$" for money, never the rupee
sign. Stay under 60 words.
`

// ReviewPrompt builds the performance-review prompt from the newest entries.
// entries must be ordered newest first; only the first ReviewWindow are used.
func ReviewPrompt(entries []core.LedgerEntry, canonical string) string {
	if len(entries) > ReviewWindow {
		entries = entries[:ReviewWindow]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, ReviewLine(e))
	}
	return fmt.Sprintf(reviewTemplate, canonical, strings.Join(lines, "\n"))
}

// ReviewLine renders one entry as "item ($amount) - kind".
func ReviewLine(e core.LedgerEntry) string {
	return fmt.Sprintf("%s (%s) - %s", e.ItemName, core.FormatAmount(e.Amount), e.Kind)
}

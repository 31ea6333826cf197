package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/currency"
	"kharcha/internal/log"
)

// Normalizer applies field policy to decoded records: the amount-presence
// rule, currency conversion and defaults for category, kind and date.
type Normalizer struct {
	rates  *currency.Table
	logger *log.Logger
}

// NewNormalizer returns a Normalizer converting with rates. A nil table means
// the built-in one; a nil logger discards.
func NewNormalizer(rates *currency.Table, logger *log.Logger) *Normalizer {
	if rates == nil {
		rates = currency.Default()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Normalizer{rates: rates, logger: logger.WithComponent(log.ComponentPipeline)}
}

// Run sanitizes raw and normalizes the result.
func (n *Normalizer) Run(text, raw string, today core.Date) ([]core.CandidateEntry, error) {
	return n.Normalize(text, Sanitize(raw), today)
}

// Normalize turns a sanitized payload into candidates, in payload order. text
// is the user's original input; only amounts written there can make a
// candidate an expense.
func (n *Normalizer) Normalize(text, sanitized string, today core.Date) ([]core.CandidateEntry, error) {
	records, err := Decode(sanitized)
	if err != nil {
		return nil, err
	}

	// Without any number in the text every candidate is commentary.
	var literals []decimal.Decimal
	if core.HasNumericLiteral(text) {
		literals = core.NumericLiterals(text)
	}
	out := make([]core.CandidateEntry, 0, len(records))
	for i, rec := range records {
		out = append(out, n.normalizeRecord(i, rec, literals, today))
	}
	return out, nil
}

func (n *Normalizer) normalizeRecord(i int, rec Record, literals []decimal.Decimal, today core.Date) core.CandidateEntry {
	commentary := strings.TrimSpace(deref(rec.Commentary))

	claimed := rec.Amount != nil
	if rec.IsExpense != nil {
		claimed = *rec.IsExpense && rec.Amount != nil
	}
	if !claimed {
		return core.CandidateEntry{Commentary: commentary}
	}

	amount := *rec.Amount
	if !core.ContainsLiteral(literals, amount) {
		n.logger.Debug("Downgrading record with amount absent from text",
			"index", i,
			log.FieldAmount, amount.String(),
			log.FieldCount, len(literals))
		return core.CandidateEntry{Commentary: commentary}
	}

	code := strings.TrimSpace(deref(rec.Currency))
	if code != "" && !n.rates.Known(code) {
		n.logger.Warn("Unknown currency, treating amount as canonical",
			log.FieldCurrency, code,
			log.FieldAmount, amount.String())
	}
	conv := n.rates.Convert(amount, code)

	itemName := strings.TrimSpace(deref(rec.ItemName))
	if conv.Converted && itemName != "" {
		itemName += " (" + conv.Note + ")"
	}

	category := strings.TrimSpace(deref(rec.Category))
	if category == "" {
		category = core.DefaultCategory
	}

	kind, ok := core.ParseKind(deref(rec.Kind))
	if !ok {
		kind = core.Want
	}

	converted := conv.Amount
	return core.CandidateEntry{
		IsExpense:  true,
		ItemName:   itemName,
		Amount:     &converted,
		Category:   category,
		Kind:       kind,
		Date:       normalizeDate(deref(rec.Date), today),
		Emoji:      firstToken(deref(rec.Emoji)),
		SourceNote: conv.Note,
		Commentary: commentary,
	}
}

// normalizeDate defaults a blank date to today. A date that does not parse is
// returned verbatim so validation rejects it.
func normalizeDate(raw string, today core.Date) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today.String()
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return raw
	}
	return d.String()
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Expenses returns the candidates flagged as expenses, in order.
func Expenses(candidates []core.CandidateEntry) []core.CandidateEntry {
	out := make([]core.CandidateEntry, 0, len(candidates))
	for _, c := range candidates {
		if c.IsExpense {
			out = append(out, c)
		}
	}
	return out
}

// Commentary joins the non-empty commentary of candidates with newlines.
func Commentary(candidates []core.CandidateEntry) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Commentary != "" {
			parts = append(parts, c.Commentary)
		}
	}
	return strings.Join(parts, "\n")
}

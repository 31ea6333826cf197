package core

import (
	"strings"
)

// ValidateCandidate checks a candidate destined for persistence. Checks run in
// a fixed order: amount, item name, date, classification.
func ValidateCandidate(c CandidateEntry) (field string, err error) {
	if c.Amount == nil || c.Amount.IsNegative() {
		return "amount", ErrInvalidAmount
	}
	if strings.TrimSpace(c.ItemName) == "" {
		return "item_name", ErrInvalidItemName
	}
	if _, err := ParseDate(c.Date); err != nil {
		return "date", ErrInvalidDate
	}
	if strings.TrimSpace(c.Category) == "" || !c.Kind.IsValid() {
		return "classification", ErrInvalidClassification
	}
	return "", nil
}

// ValidateBatch validates every candidate and converts the batch into ledger
// entries. The first failure rejects the whole batch.
func ValidateBatch(candidates []CandidateEntry) ([]LedgerEntry, error) {
	entries := make([]LedgerEntry, 0, len(candidates))
	for i, c := range candidates {
		if field, err := ValidateCandidate(c); err != nil {
			return nil, &ValidationError{Index: i, Field: field, Err: err}
		}
		date, _ := ParseDate(c.Date)
		entries = append(entries, LedgerEntry{
			ItemName:   strings.TrimSpace(c.ItemName),
			Amount:     *c.Amount,
			Category:   strings.TrimSpace(c.Category),
			Kind:       c.Kind,
			Date:       date,
			Emoji:      c.Emoji,
			SourceNote: c.SourceNote,
		})
	}
	return entries, nil
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// MalformedError describes a payload that is not an array of entry records.
type MalformedError struct {
	Snippet string
	Err     error
}

func (e *MalformedError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("%v: %v (payload: %q)", core.ErrMalformedResponse, e.Err, e.Snippet)
	}
	return fmt.Sprintf("%v: %v", core.ErrMalformedResponse, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, core.ErrMalformedResponse) hold for every MalformedError.
func (e *MalformedError) Is(target error) bool {
	return target == core.ErrMalformedResponse
}

// Record is one decoded entry of the inference payload. Nil pointers are
// fields the model omitted or set to null.
type Record struct {
	IsExpense  *bool
	ItemName   *string
	Amount     *decimal.Decimal
	Currency   *string
	Category   *string
	Kind       *string
	Date       *string
	Emoji      *string
	Commentary *string
}

type fieldKind int

const (
	boolField fieldKind = iota
	stringField
	amountField
)

type fieldSpec struct {
	kind fieldKind
	set  func(r *Record, v any)
}

// recognizedFields enumerates every key the decoder accepts. Keys not listed
// here are ignored.
var recognizedFields = map[string]fieldSpec{
	"is_expense":    {boolField, func(r *Record, v any) { r.IsExpense = v.(*bool) }},
	"isExpense":     {boolField, func(r *Record, v any) { r.IsExpense = v.(*bool) }},
	"item_name":     {stringField, func(r *Record, v any) { r.ItemName = v.(*string) }},
	"itemName":      {stringField, func(r *Record, v any) { r.ItemName = v.(*string) }},
	"item":          {stringField, func(r *Record, v any) { r.ItemName = v.(*string) }},
	"amount":        {amountField, func(r *Record, v any) { r.Amount = v.(*decimal.Decimal) }},
	"currency":      {stringField, func(r *Record, v any) { r.Currency = v.(*string) }},
	"category":      {stringField, func(r *Record, v any) { r.Category = v.(*string) }},
	"type":          {stringField, func(r *Record, v any) { r.Kind = v.(*string) }},
	"kind":          {stringField, func(r *Record, v any) { r.Kind = v.(*string) }},
	"date":          {stringField, func(r *Record, v any) { r.Date = v.(*string) }},
	"emoji":         {stringField, func(r *Record, v any) { r.Emoji = v.(*string) }},
	"funny_comment": {stringField, func(r *Record, v any) { r.Commentary = v.(*string) }},
	"commentary":    {stringField, func(r *Record, v any) { r.Commentary = v.(*string) }},
}

// Decode parses a sanitized payload as a JSON array of entry objects.
func Decode(payload string) ([]Record, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, malformed(payload, errors.New("empty payload"))
	}
	if !strings.HasPrefix(trimmed, "[") {
		return nil, malformed(payload, errors.New("payload is not an array"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, malformed(payload, err)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, malformed(payload, fmt.Errorf("element %d: %w", i, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var rec Record
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return rec, errors.New("element is not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rec, err
	}
	for key, value := range fields {
		f, ok := recognizedFields[key]
		if !ok || isNull(value) {
			continue
		}
		v, err := decodeField(f.kind, value)
		if err != nil {
			return rec, fmt.Errorf("field %q: %w", key, err)
		}
		f.set(&rec, v)
	}
	return rec, nil
}

func decodeField(kind fieldKind, value json.RawMessage) (any, error) {
	switch kind {
	case boolField:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, errors.New("expected boolean")
		}
		return &b, nil
	case stringField:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, errors.New("expected string")
		}
		return &s, nil
	case amountField:
		return decodeAmount(value)
	default:
		return nil, fmt.Errorf("unknown field kind %d", kind)
	}
}

// decodeAmount accepts a JSON number or a numeric string such as "15.50".
func decodeAmount(value json.RawMessage) (*decimal.Decimal, error) {
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, errors.New("expected number")
		}
		return &d, nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, errors.New("expected number")
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		// Negative numeric strings still decode; the validator rejects them.
		neg, nerr := decimal.NewFromString(strings.TrimSpace(s))
		if nerr != nil {
			return nil, errors.New("expected number")
		}
		return &neg, nil
	}
	return &d, nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

func malformed(payload string, err error) error {
	const maxSnippet = 120
	snippet := strings.TrimSpace(payload)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &MalformedError{Snippet: snippet, Err: err}
}

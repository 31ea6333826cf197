package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Need Kind = "Need"
	Want Kind = "Want"
)

// DateLayout is the ISO calendar date form used on every boundary.
const DateLayout = "2006-01-02"

// DefaultCategory is assigned when the classification omits a category.
const DefaultCategory = "Misc"

type (
	// Kind classifies an expense as a necessity or a discretionary spend.
	Kind string

	Date struct {
		time.Time
	}

	// LedgerEntry is a committed expense. ID is assigned by the store and is
	// empty before persistence. Amount is always in the canonical currency.
	LedgerEntry struct {
		ID         string          `json:"id,omitempty"`
		ItemName   string          `json:"item_name"`
		Amount     decimal.Decimal `json:"amount"`
		Category   string          `json:"category"`
		Kind       Kind            `json:"type"`
		Date       Date            `json:"date"`
		Emoji      string          `json:"emoji,omitempty"`
		SourceNote string          `json:"source_note,omitempty"`
	}

	// CandidateEntry is a transient parse result. Non-expense candidates carry
	// Commentary only; every other field is zero.
	CandidateEntry struct {
		IsExpense  bool
		ItemName   string
		Amount     *decimal.Decimal
		Category   string
		Kind       Kind
		Date       string
		Emoji      string
		SourceNote string
		Commentary string
	}
)

var (
	ErrMalformedResponse     = errors.New("malformed inference response")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidItemName       = errors.New("invalid item name")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrGuardBusy             = errors.New("confirmation already in progress")
	ErrGuardIdle             = errors.New("no confirmation in progress")
	ErrNotFound              = errors.New("entry not found")
	ErrEmptyInput            = errors.New("empty expense text")
	ErrInferenceFailed       = errors.New("inference failed")
	ErrReviewUnavailable     = errors.New("review unavailable")
	errZeroDate              = errors.New("date cannot be zero")
)

// ValidationError reports which entry of a batch failed and why.
type ValidationError struct {
	Index int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entry %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValid reports whether k is one of the two known kinds.
func (k Kind) IsValid() bool {
	return k == Need || k == Want
}

// ParseKind maps loosely-cased upstream values onto a Kind. Unknown values
// return false.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "need", "needs":
		return Need, true
	case "want", "wants":
		return Want, true
	default:
		return "", false
	}
}

// Validate rejects the zero date. Any other Date is a real calendar day,
// since construction normalizes overflowing fields.
func (d Date) Validate() error {
	if d.IsZero() {
		return errZeroDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location, returned as UTC midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from d to other.
func (d Date) DaysBetween(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the invariants of a persisted entry.
func (e LedgerEntry) Validate() error {
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.ItemName) == "" {
		return ErrInvalidItemName
	}
	if err := e.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if strings.TrimSpace(e.Category) == "" || !e.Kind.IsValid() {
		return ErrInvalidClassification
	}
	return nil
}

// Package currency converts foreign amounts into the canonical ledger currency
// using a static table of approximate rates.
package currency

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

// Canonical is the unit every persisted amount is expressed in.
const Canonical = "CAD"

// Table maps an ISO 4217 code to the multiplier that converts one unit of it
// into the canonical currency.
type Table struct {
	canonical string
	rates     map[string]decimal.Decimal
}

// Conversion is the outcome of Convert.
type Conversion struct {
	Amount    decimal.Decimal
	Converted bool
	// Note is the original literal and code, e.g. "50 USD". Empty when no
	// conversion took place.
	Note string
}

var defaultRates = map[string]string{
	"USD": "1.4",
	"EUR": "1.5",
	"GBP": "1.75",
	"INR": "0.016",
	"JPY": "0.0095",
	"AUD": "0.9",
	"MXN": "0.075",
	"CNY": "0.19",
	"CHF": "1.6",
}

// tableCanonical marks symbols that mean whatever the table is denominated in.
const tableCanonical = ""

// symbolCodes maps the currency symbols and words a model may echo back.
var symbolCodes = map[string]string{
	"$":      tableCanonical,
	"C$":     "CAD",
	"CA$":    "CAD",
	"US$":    "USD",
	"€":      "EUR",
	"£":      "GBP",
	"₹":      "INR",
	"¥":      "JPY",
	"RS":     "INR",
	"RUPEE":  "INR",
	"RUPEES": "INR",
	"DOLLAR": tableCanonical,
	"EURO":   "EUR",
	"EUROS":  "EUR",
}

// Default returns the built-in rate table.
func Default() *Table {
	t := &Table{canonical: Canonical, rates: make(map[string]decimal.Decimal, len(defaultRates))}
	for code, rate := range defaultRates {
		t.rates[code] = decimal.RequireFromString(rate)
	}
	return t
}

// New builds a table from code → rate pairs. Every code must be a valid ISO
// 4217 code and every rate positive.
func New(canonical string, rates map[string]float64) (*Table, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(canonical))
	if err != nil {
		return nil, fmt.Errorf("canonical currency %q: %w", canonical, err)
	}
	t := &Table{canonical: unit.String(), rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		u, err := currency.ParseISO(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("currency %q: %w", code, err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("currency %s: rate must be positive, got %v", u, rate)
		}
		t.rates[u.String()] = decimal.NewFromFloat(rate)
	}
	return t, nil
}

type fileFormat struct {
	Canonical string             `yaml:"canonical"`
	Rates     map[string]float64 `yaml:"rates"`
}

// LoadFile reads a YAML rate table:
//
//	canonical: CAD
//	rates:
//	  USD: 1.4
//	  EUR: 1.5
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates file: %w", err)
	}
	if f.Canonical == "" {
		f.Canonical = Canonical
	}
	return New(f.Canonical, f.Rates)
}

// CanonicalCode returns the table's canonical ISO code.
func (t *Table) CanonicalCode() string {
	return t.canonical
}

// Codes lists the convertible currencies in sorted order.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.rates))
	for code := range t.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Normalize maps a code, symbol or currency word to an upper-case code.
// Blank input maps to the canonical currency.
func (t *Table) Normalize(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return t.canonical
	}
	if mapped, ok := symbolCodes[c]; ok {
		if mapped == tableCanonical {
			return t.canonical
		}
		return mapped
	}
	if u, err := currency.ParseISO(c); err == nil {
		return u.String()
	}
	return c
}

// Known reports whether code is canonical or has a rate.
func (t *Table) Known(code string) bool {
	c := t.Normalize(code)
	if c == t.canonical {
		return true
	}
	_, ok := t.rates[c]
	return ok
}

// Convert expresses amount, written in code, in the canonical currency.
// Canonical and unknown currencies pass through unchanged and unannotated.
func (t *Table) Convert(amount decimal.Decimal, code string) Conversion {
	c := t.Normalize(code)
	if c == t.canonical {
		return Conversion{Amount: amount}
	}
	rate, ok := t.rates[c]
	if !ok {
		return Conversion{Amount: amount}
	}
	return Conversion{
		Amount:    amount.Mul(rate).Round(2),
		Converted: true,
		Note:      amount.String() + " " + c,
	}
}

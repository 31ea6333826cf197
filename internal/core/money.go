// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and for finding the numeric literals a user actually typed.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numberPattern matches digit runs with optional grouping or decimal separators,
// e.g. "15", "15.50", "1,200", "1.234,56", "1'200".
var numberPattern = regexp.MustCompile(`\d+(?:[.,']\d+)*`)

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators as well as
// grouping separators (1,234.56, 1.234,56, 1'234.56). Signs are rejected.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1,200")    -> 1200, nil
//	ParseAmount("1.234,56") -> 1234.56, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(standardizeNumber(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// standardizeNumber rewrites grouping and decimal separators into the plain
// form accepted by decimal.NewFromString.
func standardizeNumber(s string) string {
	s = strings.ReplaceAll(s, "'", "")
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return s
}

// NumericLiterals returns every number written in text, in order of appearance.
// A run such as "5,10,15" that is not a valid grouped number is also read as a
// list: each digit run and each adjacent pair as a decimal ("5.10") is added
// after the merged reading.
func NumericLiterals(text string) []decimal.Decimal {
	matches := numberPattern.FindAllString(text, -1)
	out := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		if d, err := ParseAmount(m); err == nil {
			out = append(out, d)
		}
		runs, seps := splitNumber(m)
		if len(seps) < 2 || isGrouped(runs, seps) {
			continue
		}
		for i, r := range runs {
			if d, err := decimal.NewFromString(r); err == nil {
				out = append(out, d)
			}
			if i+1 < len(runs) {
				if d, err := decimal.NewFromString(r + "." + runs[i+1]); err == nil {
					out = append(out, d)
				}
			}
		}
	}
	return out
}

// splitNumber breaks a numberPattern match into its digit runs and the
// separators between them.
func splitNumber(m string) (runs []string, seps []byte) {
	start := 0
	for i := 0; i < len(m); i++ {
		switch m[i] {
		case ',', '.', '\'':
			runs = append(runs, m[start:i])
			seps = append(seps, m[i])
			start = i + 1
		}
	}
	return append(runs, m[start:]), seps
}

// isGrouped reports whether runs form thousands groups ("1,234,567"),
// optionally followed by a decimal part introduced by a different separator
// ("1.234,56").
func isGrouped(runs []string, seps []byte) bool {
	group := seps[0]
	if n := len(seps); seps[n-1] != group {
		if seps[n-1] == '\'' {
			return false
		}
		runs, seps = runs[:len(runs)-1], seps[:n-1]
	}
	if len(runs[0]) > 3 {
		return false
	}
	for i, sep := range seps {
		if sep != group || len(runs[i+1]) != 3 {
			return false
		}
	}
	return true
}

// ContainsLiteral reports whether amount equals one of the literals.
func ContainsLiteral(literals []decimal.Decimal, amount decimal.Decimal) bool {
	for _, l := range literals {
		if l.Equal(amount) {
			return true
		}
	}
	return false
}

// FormatAmount renders an amount for display, e.g. "$70.00".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

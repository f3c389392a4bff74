// Package core provides money parsing and handling utilities.
//
// This file contains the amount parser used by snapshot imports and the
// Figures value every snapshot kind projects onto.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is accepted; negative values,
// signs and anything that is not a plain decimal number are rejected.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,345") -> 12.35, nil
//   ParseAmount("0") -> 0, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// Figures is the numeric projection of a snapshot value.
type Figures struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Credit   decimal.Decimal
}

// Add returns the field-wise sum.
func (f Figures) Add(o Figures) Figures {
	return Figures{
		Income:   f.Income.Add(o.Income),
		Expenses: f.Expenses.Add(o.Expenses),
		Credit:   f.Credit.Add(o.Credit),
	}
}

// Balance is income minus expenses.
func (f Figures) Balance() decimal.Decimal {
	return f.Income.Sub(f.Expenses)
}

func (f Figures) IsZero() bool {
	return f.Income.IsZero() && f.Expenses.IsZero() && f.Credit.IsZero()
}

// Equal compares numerically, so 1.0 equals 1.
func (f Figures) Equal(o Figures) bool {
	return f.Income.Equal(o.Income) && f.Expenses.Equal(o.Expenses) && f.Credit.Equal(o.Credit)
}

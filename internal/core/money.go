// Package core provides the carpool ledger entities and money handling.
//
// This file contains the Money type used for rates, payments and expenses.
// Amounts are exact decimals; they serialize as plain JSON numbers so that
// snapshots stay readable by the other clients sharing the remote document.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney builds an amount from a float, for literals and tests.
func NewMoney(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f)}
}

// ParseMoney parses a decimal string into Money.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Negative values are rejected; zero is allowed (callers decide whether a
// zero amount is meaningful, e.g. a rate of 0 is valid but a payment is not).
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,5")  -> 12.5, nil
//	ParseMoney("-1")    -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Zero, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// Plus returns m + o.
func (m Money) Plus(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Minus returns m - o.
func (m Money) Minus(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

// Times returns m * n.
func (m Money) Times(n int64) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(n))}
}

// Same reports whether both amounts are numerically equal.
func (m Money) Same(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Validate checks that the amount is strictly positive.
func (m Money) Validate() error {
	if !m.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}

// Format renders the amount with two decimals for display and logs.
func (m Money) Format() string {
	return m.Decimal.StringFixed(2)
}

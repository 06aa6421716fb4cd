// Package money provides an exact two-decimal money value for prices and
// totals. Amounts are backed by shopspring/decimal and are never represented
// as binary floating point. Every operation that can produce sub-cent
// precision rounds half-up to the nearest cent before returning.
package money

import (
	"github.com/shopspring/decimal"
)

// Money is an immutable monetary amount with a fixed scale of two decimal
// places. The zero value is $0.00 and is ready to use.
type Money struct {
	amount decimal.Decimal
}

// Zero returns a zero money amount.
func Zero() Money {
	return Money{}
}

// FromDecimal converts a major-unit decimal (e.g. 3.005) into Money,
// rounding half-up to two decimal places.
func FromDecimal(d decimal.Decimal) Money {
	return Money{amount: d.Round(2)}
}

// FromString parses a major-unit decimal string into Money. It panics on
// malformed input and is intended for literals in tests and seed data.
func FromString(s string) Money {
	return FromDecimal(decimal.RequireFromString(s))
}

// Add returns the sum of two amounts. Both operands already carry two-decimal
// scale, so the result is exact.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// MulQuantity returns the amount multiplied by a quantity (a line total),
// rounded half-up to the nearest cent.
func (m Money) MulQuantity(qty decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(qty).Round(2)}
}

// Percent returns the given fraction of the amount (e.g. rate 0.15 for 15%
// tax), rounded half-up to the nearest cent.
func (m Money) Percent(rate decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(rate).Round(2)}
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String returns the amount with exactly two decimal places, e.g. "6.90".
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Format returns the amount as a display string with a currency sign,
// e.g. "$6.90".
func (m Money) Format() string {
	return "$" + m.amount.StringFixed(2)
}

/*
Package generic provides the calendar and money primitives the payroll
engine is built on.

PURPOSE:
  Pay statements must match historical ones to the last currency unit, so
  every amount goes through decimal.Decimal and every rounding boundary is
  explicit. Amounts are int64 in the smallest currency unit; intermediate
  results stay decimal until a named rounding step turns them into money.

ROUNDING:
  All rounding is HALF_UP (ties away from zero). decimal.Round and
  decimal.DivRound both follow that rule, so the helpers below are thin and
  exist mostly to name the step being taken.

  Two-stage division: a quotient is first taken to DivisionScale places,
  then the product is rounded to an integer. Changing either stage changes
  published amounts.

SEE ALSO:
  - time.go:   Date and Month
  - period.go: Period and Window
*/
package generic

import "github.com/shopspring/decimal"

// DivisionScale is the fixed precision of intermediate quotients.
const DivisionScale int32 = 6

var One = decimal.NewFromInt(1)

// Money lifts an integer amount into decimal space.
func Money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// ToMoney rounds d HALF_UP to an integer amount.
func ToMoney(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// DivScaled divides a by b, rounding the quotient HALF_UP to DivisionScale.
func DivScaled(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionScale)
}

// MustDecimal parses s and panics on malformed input. Use for constants and
// fixtures only.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MinMoney returns the smaller of two amounts.
func MinMoney(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

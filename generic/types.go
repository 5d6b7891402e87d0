/*
Package generic provides the domain-agnostic building blocks of the engine.

PURPOSE:
  This package contains the calendar and arithmetic primitives every
  calculation is built on. It knows nothing about jobs, AWs or schedules.

KEY CONCEPTS:
  - TimePoint: A calendar day (or minute) used as the period key
  - Period: An inclusive day range, walked by ForEachDayInRange
  - PeriodConfig: Resolves the day/week/month/year period containing a date
  - Decimal helpers: Percentages and clamping on shopspring/decimal

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks
  2. Precision: Hours use decimal.Decimal to avoid floating-point drift
  3. One iterator: Date walking happens in exactly one place

SEE ALSO:
  - time.go: TimePoint and calendar utilities
  - period.go: Period and the day iterator
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

var (
	Hundred = decimal.NewFromInt(100)
	Sixty   = decimal.NewFromInt(60)
)

// Percentage returns part / whole × 100, or zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(Hundred)
}

// Clamp limits d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// NonNegative floors d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

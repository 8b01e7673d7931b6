// File: financecore.go
// Title: Core Financial Formulas
// Description: Implements the two closed-form formulas at the heart of the
//              platform: compound interest growth and inflation-adjusted
//              purchasing power. Both are pure functions over float64 and
//              follow IEEE-754 semantics without input validation.

package financecore

import "math"

// CompoundInterest calculates the future value of a principal under
// compound interest.
// Formula: P * (1 + r/n)^(n*t)
// Where: P = principal, r = annual rate as a percentage (5.0 means 5%),
// n = compounding periods per year, t = duration in years.
//
// Inputs are not validated. A timesPerYear of zero produces an infinite
// or NaN rate per period and the result propagates accordingly; callers
// wanting a finite result must pass timesPerYear >= 1.
func CompoundInterest(principal, rate float64, timesPerYear, years int) float64 {
	r := rate / 100.0
	n := float64(timesPerYear)
	t := float64(years)
	return principal * math.Pow(1.0+r/n, n*t)
}

// InflationImpact calculates the purchasing power of a nominal amount
// after a number of years of inflation.
// Formula: Amount / (1 + r)^t
// Where: r = annual inflation rate as a percentage, t = years.
//
// As with CompoundInterest, inputs are not validated: an inflationRate of
// -100 with years > 0 divides by zero and yields +Inf.
func InflationImpact(amount, inflationRate float64, years int) float64 {
	r := inflationRate / 100.0
	return amount / math.Pow(1.0+r, float64(years))
}

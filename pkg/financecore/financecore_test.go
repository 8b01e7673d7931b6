// File: financecore_test.go
// Title: Unit Tests for Core Financial Formulas
// Description: Table-driven tests covering the documented properties of
//              the compound interest and inflation impact formulas,
//              including IEEE-754 edge behavior.

package financecore

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCompoundInterest(t *testing.T) {
	tests := []struct {
		name         string
		principal    float64
		rate         float64
		timesPerYear int
		years        int
		want         float64
		tolerance    float64
	}{
		{"monthly compounding ten years", 1000, 5.0, 12, 10, 1647.01, 0.01},
		{"zero rate returns principal", 1000, 0, 12, 10, 1000, 0},
		{"zero years returns principal", 1000, 5.0, 12, 0, 1000, 0},
		{"annual compounding", 100, 10.0, 1, 2, 121, 1e-9},
		{"zero principal", 0, 5.0, 12, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompoundInterest(tt.principal, tt.rate, tt.timesPerYear, tt.years)
			if !almostEqual(got, tt.want, tt.tolerance) {
				t.Errorf("CompoundInterest(%v, %v, %d, %d) = %v, want %v",
					tt.principal, tt.rate, tt.timesPerYear, tt.years, got, tt.want)
			}
		})
	}
}

func TestCompoundInterestMonotonicInYears(t *testing.T) {
	prev := CompoundInterest(1000, 5.0, 12, 0)
	for years := 1; years <= 30; years++ {
		cur := CompoundInterest(1000, 5.0, 12, years)
		if cur <= prev {
			t.Fatalf("expected strictly increasing value, got %v after %v at %d years", cur, prev, years)
		}
		prev = cur
	}
}

func TestCompoundInterestZeroPeriodsPropagates(t *testing.T) {
	// n = 0 divides the rate by zero; the result must be a non-finite
	// float, not a panic or a silent finite value.
	got := CompoundInterest(1000, 5.0, 0, 10)
	if !math.IsNaN(got) && !math.IsInf(got, 0) {
		t.Errorf("CompoundInterest with zero periods = %v, want NaN or Inf", got)
	}
}

func TestInflationImpact(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		rate      float64
		years     int
		want      float64
		tolerance float64
	}{
		{"three percent five years", 1000, 3.0, 5, 862.61, 0.01},
		{"zero years returns amount", 1000, 3.0, 0, 1000, 0},
		{"zero inflation returns amount", 1000, 0, 25, 1000, 0},
		{"deflation increases value", 1000, -2.0, 1, 1020.41, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InflationImpact(tt.amount, tt.rate, tt.years)
			if !almostEqual(got, tt.want, tt.tolerance) {
				t.Errorf("InflationImpact(%v, %v, %d) = %v, want %v",
					tt.amount, tt.rate, tt.years, got, tt.want)
			}
		})
	}
}

func TestInflationImpactMonotonicInYears(t *testing.T) {
	prev := InflationImpact(1000, 3.0, 0)
	for years := 1; years <= 30; years++ {
		cur := InflationImpact(1000, 3.0, years)
		if cur >= prev {
			t.Fatalf("expected strictly decreasing value, got %v after %v at %d years", cur, prev, years)
		}
		prev = cur
	}
}

func TestInflationImpactFullDeflationEdge(t *testing.T) {
	// inflationRate = -100 makes the denominator base zero.
	if got := InflationImpact(1000, -100, 0); got != 1000 {
		t.Errorf("InflationImpact(1000, -100, 0) = %v, want 1000", got)
	}
	if got := InflationImpact(1000, -100, 5); !math.IsInf(got, 1) {
		t.Errorf("InflationImpact(1000, -100, 5) = %v, want +Inf", got)
	}
}

func TestFormulasAreDeterministic(t *testing.T) {
	a := CompoundInterest(1234.56, 7.25, 4, 15)
	b := CompoundInterest(1234.56, 7.25, 4, 15)
	if a != b {
		t.Errorf("CompoundInterest not deterministic: %v != %v", a, b)
	}

	c := InflationImpact(1234.56, 7.25, 15)
	d := InflationImpact(1234.56, 7.25, 15)
	if c != d {
		t.Errorf("InflationImpact not deterministic: %v != %v", c, d)
	}
}

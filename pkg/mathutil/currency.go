// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/sip-forecast/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// RelativeError returns |got-want| relative to |want|. A zero want falls back
// to the absolute difference.
func RelativeError(got, want float64) float64 {
	diff := math.Abs(got - want)
	if want == 0 {
		return diff
	}
	return diff / math.Abs(want)
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// NonNegative coerces NaN, infinities and negative values to zero.
func NonNegative(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
		return 0
	}
	return val
}

// Finite replaces NaN and infinities with zero and leaves everything else alone.
func Finite(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return val
}

// PercentToFraction converts 12 into 0.12.
func PercentToFraction(percent float64) float64 {
	return percent / constants.PercentageMultiplier
}

// FractionToPercent converts 0.12 into 12.
func FractionToPercent(fraction float64) float64 {
	return fraction * constants.PercentageMultiplier
}

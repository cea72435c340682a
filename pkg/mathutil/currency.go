// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
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

// WithinRelative reports whether a and b agree to the given relative error.
// Two zeros always agree.
func WithinRelative(a, b, rel float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= rel*scale
}

// Margin returns profit as a percentage of revenue. Non-positive revenue
// yields 0 so callers never see NaN or Inf.
func Margin(profit, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return profit / revenue * constants.PercentageMultiplier
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// Compound returns base grown by ratePercent for the given number of periods.
func Compound(base, ratePercent float64, periods int) float64 {
	return base * math.Pow(1+ratePercent/constants.PercentageMultiplier, float64(periods))
}

// WeightedAverage returns sum(values*weights)/sum(weights), or 0 for no weight.
func WeightedAverage(weightedSum, totalWeight float64) float64 {
	if totalWeight <= 0 {
		return 0
	}
	return weightedSum / totalWeight
}

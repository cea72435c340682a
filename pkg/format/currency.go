// Package format renders amounts for display. Conversion to USD is a single
// divide applied to already computed figures.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	crore = 10_000_000
	lakh  = 100_000
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// INR returns an amount with the rupee sign and Indian digit grouping
// (e.g., "₹12,34,567.89").
func INR(amount float64) string {
	formatted := groupIndian(math.Abs(amount))
	if amount < 0 {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// USD returns an amount with a dollar sign and thousands separators (e.g., "-$1,234.56").
func USD(amount float64) string {
	formatted := usPrinter.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Convert divides an INR amount by the INR-per-USD rate. A non-positive rate
// yields 0 rather than Inf.
func Convert(amount, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return amount / rate
}

// Compact abbreviates large rupee amounts with crore, lakh and thousand
// suffixes (e.g., "₹1.2 Cr", "₹3.4 L", "₹5.6 K").
func Compact(amount float64) string {
	return "₹" + CompactNumber(amount, 2)
}

// CompactNumber abbreviates a count the same way. Values below a thousand
// keep the given number of decimals.
func CompactNumber(value float64, decimals int) string {
	sign := ""
	if value < 0 {
		sign = "-"
	}
	abs := math.Abs(value)
	switch {
	case abs >= crore:
		return fmt.Sprintf("%s%.1f Cr", sign, abs/crore)
	case abs >= lakh:
		return fmt.Sprintf("%s%.1f L", sign, abs/lakh)
	case abs >= 1000:
		return fmt.Sprintf("%s%.1f K", sign, abs/1000)
	default:
		return fmt.Sprintf("%s%.*f", sign, decimals, abs)
	}
}

// Percent renders a margin with one decimal place.
func Percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// groupIndian formats a non-negative value with two decimals, grouping the
// last three integer digits and then every two.
func groupIndian(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]
		var builder strings.Builder
		for i, digit := range head {
			if i > 0 && (len(head)-i)%2 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String() + "," + tail
	}

	return intPart + "." + decPart
}

// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
)

var outputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatYAML,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, supported := range outputFormats {
		if format == supported {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s", strings.Join(outputFormats, ", "), format)
}

// ValidateOutputPeriod checks the table granularity.
func ValidateOutputPeriod(period string) error {
	switch period {
	case constants.PeriodMonthly, constants.PeriodYearly, constants.PeriodDaily:
		return nil
	default:
		return fmt.Errorf("expected output period of %s, %s or %s, got %s",
			constants.PeriodMonthly, constants.PeriodYearly, constants.PeriodDaily, period)
	}
}

// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
)

const (
	// DateTimeLayout is the format expected for start dates in config files.
	DateTimeLayout = constants.DateTimeLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// StartOfMonth truncates t to midnight UTC on the first of its month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseStartDate parses a "2006-01" start month. An empty value resolves to
// the month containing now.
func ParseStartDate(value string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StartOfMonth(now), nil
	}
	t, err := time.Parse(DateTimeLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q, expected YYYY-MM: %w", value, err)
	}
	return t, nil
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// EndMonth returns the "2006-01" month of the last projected month.
func EndMonth(start time.Time, months int) string {
	if months <= 0 {
		return start.Format(DateTimeLayout)
	}
	return StartOfMonth(start).AddDate(0, months-1, 0).Format(DateTimeLayout)
}

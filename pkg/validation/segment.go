package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// Severity grades a field problem.
type Severity string

const (
	// SeverityError blocks the segment from being used.
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not block.
	SeverityWarning Severity = "warning"
)

// FieldError describes a problem with one segment field.
type FieldError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSegment checks a segment against the input bounds. existing holds
// the other segments of the model; a case-insensitive name match against any
// of them with a different ID is a duplicate.
func ValidateSegment(segment projection.Segment, existing []projection.Segment) []FieldError {
	var problems []FieldError
	fail := func(field, message string) {
		problems = append(problems, FieldError{Field: field, Message: message, Severity: SeverityError})
	}
	warn := func(field, message string) {
		problems = append(problems, FieldError{Field: field, Message: message, Severity: SeverityWarning})
	}

	name := strings.TrimSpace(segment.Name)
	if len([]rune(name)) < constants.MinSegmentNameLength {
		fail("name", fmt.Sprintf("name must be at least %d characters long", constants.MinSegmentNameLength))
	}

	price := segment.PricePerTransaction
	cost := segment.CostPerTransaction
	switch {
	case !finite(price) || price <= 0:
		fail("pricePerTransaction", "price must be greater than 0")
	case !finite(cost) || cost < 0:
		fail("costPerTransaction", "cost cannot be negative")
	case cost >= price:
		warn("costPerTransaction", "cost should be less than price for profitability")
	}

	volume := segment.MonthlyVolume
	switch {
	case !finite(volume) || volume <= 0:
		fail("monthlyVolume", "volume must be greater than 0")
	case volume > constants.MaxMonthlyVolume:
		warn("monthlyVolume", "volume seems unrealistically high (>10B/month)")
	}

	growth := segment.VolumeGrowth
	if !finite(growth) || growth < constants.MinGrowthRate || growth > constants.MaxGrowthRate {
		fail("volumeGrowth", fmt.Sprintf("growth rate must be between %g%% and %g%%", constants.MinGrowthRate, constants.MaxGrowthRate))
	}

	for _, other := range existing {
		if other.ID != "" && other.ID == segment.ID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.Name), name) {
			fail("name", "a segment with this name already exists")
			break
		}
	}

	return problems
}

// HasErrors reports whether any problem is blocking.
func HasErrors(problems []FieldError) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateSegments checks every segment against the ones before it and
// returns the first blocking problem as an error, plus all warnings.
func ValidateSegments(segments []projection.Segment) ([]string, error) {
	var warnings []string
	for i, segment := range segments {
		for _, problem := range ValidateSegment(segment, segments[:i]) {
			if problem.Severity == SeverityError {
				return warnings, fmt.Errorf("segment %q: %w", segment.Name, problem)
			}
			warnings = append(warnings, fmt.Sprintf("Segment '%s' %s", segment.Name, problem.Error()))
		}
	}
	return warnings, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package projection

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySegmentSet is returned when a projection is requested without segments.
	ErrEmptySegmentSet = errors.New("at least one segment is required")

	// ErrInvalidMonths is returned when the horizon is not a positive number of months.
	ErrInvalidMonths = errors.New("projection months must be positive")

	// ErrDuplicateScenario is returned when two scenarios share a name.
	ErrDuplicateScenario = errors.New("duplicate scenario name")

	// ErrUnparseableLabel is returned when a month label carries no usable year.
	ErrUnparseableLabel = errors.New("month label has no year")

	// ErrUnknownPeriod is returned for an unsupported chart period.
	ErrUnknownPeriod = errors.New("unknown period")
)

// ParameterError reports an invalid engine parameter.
type ParameterError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

package validation

import (
	"fmt"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// ConfigValidator collects non-fatal warnings about a resolved model.
type ConfigValidator struct {
	Months           int
	OperatingExpense projection.OperatingExpensePolicy
	ExchangeRate     float64
	Segments         []projection.Segment
	Scenarios        []ScenarioConfig
}

// ScenarioConfig is the part of a scenario the validator inspects.
type ScenarioConfig struct {
	Name   string
	Active bool
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if cv.Months > constants.MaxProjectionMonths {
		warnings = append(warnings, fmt.Sprintf("Projection horizon of %d months exceeds %d months; long horizons compound growth aggressively",
			cv.Months, constants.MaxProjectionMonths))
	}

	active := 0
	for _, scenario := range cv.Scenarios {
		if scenario.Active {
			active++
		}
	}
	if active == 0 {
		warnings = append(warnings, "No active scenarios configured; using Conservative, Base Case and Optimistic defaults")
	}

	policy := cv.OperatingExpense
	if (policy.Type == projection.OpexFixed || policy.Type == projection.OpexHybrid) && policy.Fixed == 0 {
		warnings = append(warnings, fmt.Sprintf("Operating expense policy is %s but the fixed amount is zero", policy.Type))
	}
	if (policy.Type == projection.OpexPercentage || policy.Type == projection.OpexHybrid) && policy.Percentage == 0 {
		warnings = append(warnings, fmt.Sprintf("Operating expense policy is %s but the percentage is zero", policy.Type))
	}

	if cv.ExchangeRate <= 0 {
		warnings = append(warnings, "Exchange rate is not positive; USD amounts will be reported as zero")
	}

	if len(cv.Segments) > constants.MaxSegments {
		warnings = append(warnings, fmt.Sprintf("Model has %d segments, more than the recommended %d", len(cv.Segments), constants.MaxSegments))
	}

	for i, segment := range cv.Segments {
		for _, problem := range ValidateSegment(segment, cv.Segments[:i]) {
			if problem.Severity == SeverityWarning {
				warnings = append(warnings, fmt.Sprintf("Segment '%s' %s", segment.Name, problem.Error()))
			}
		}
	}

	if assessment := ProfitabilityCheck(cv.Segments, policy); assessment.Warning() {
		warnings = append(warnings, "Profitability: "+assessment.Message)
	}

	return warnings
}

package validation

import (
	"fmt"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/format"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// Level grades a model's first-month profitability.
type Level string

// Profitability levels.
const (
	LevelNone    Level = "none"
	LevelLoss    Level = "loss"
	LevelLow     Level = "low"
	LevelHigh    Level = "high"
	LevelHealthy Level = "healthy"
)

// Assessment is the outcome of ProfitabilityCheck.
type Assessment struct {
	Level     Level   `json:"level"`
	NetProfit float64 `json:"netProfit"`
	Margin    float64 `json:"margin"`
	Message   string  `json:"message"`
}

// Warning reports whether the assessment should be surfaced to the user.
func (a Assessment) Warning() bool {
	return a.Level == LevelLoss || a.Level == LevelLow || a.Level == LevelHigh
}

// ProfitabilityCheck grades the unseasoned first month. The margin here is
// net profit over gross profit.
func ProfitabilityCheck(segments []projection.Segment, policy projection.OperatingExpensePolicy) Assessment {
	if len(segments) == 0 {
		return Assessment{Level: LevelNone}
	}

	var revenue, gross float64
	for _, segment := range segments {
		month := projection.ProjectSegment(segment, 0, 1)
		revenue += month.Revenue
		gross += month.Profit
	}

	net := gross - policy.Compute(revenue)
	margin := 0.0
	if gross > 0 {
		margin = net / gross * constants.PercentageMultiplier
	}

	assessment := Assessment{NetProfit: net, Margin: margin}
	switch {
	case net < 0:
		assessment.Level = LevelLoss
		assessment.Message = fmt.Sprintf("configuration results in negative profit (%s loss); consider reducing operating expenses or increasing pricing or volume", format.INR(-net))
	case margin < constants.LowMarginThreshold:
		assessment.Level = LevelLow
		assessment.Message = fmt.Sprintf("low profit margin (%s); consider optimizing costs or pricing", format.Percent(margin))
	case margin > constants.HighMarginThreshold:
		assessment.Level = LevelHigh
		assessment.Message = fmt.Sprintf("very high profit margin (%s); verify pricing and costs are realistic", format.Percent(margin))
	default:
		assessment.Level = LevelHealthy
		assessment.Message = fmt.Sprintf("healthy profit margin: %s", format.Percent(margin))
	}
	return assessment
}

package projection

import "github.com/iwvelando/revenue-forecast/pkg/mathutil"

// OperatingExpense returns the month's operating expense for a policy.
// An unrecognised policy yields 0 so the engine stays total; the config and
// API layers reject unknown policies before they get here.
func OperatingExpense(policy OpexType, fixed, percentage, monthRevenue float64) float64 {
	switch policy {
	case OpexFixed:
		return fixed
	case OpexPercentage:
		return mathutil.ApplyPercentage(monthRevenue, percentage)
	case OpexHybrid:
		return fixed + mathutil.ApplyPercentage(monthRevenue, percentage)
	default:
		return 0
	}
}

// Compute applies the policy to a month's revenue.
func (p OperatingExpensePolicy) Compute(monthRevenue float64) float64 {
	return OperatingExpense(p.Type, p.Fixed, p.Percentage, monthRevenue)
}

package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

const (
	OptimizerFieldPrice        = "price"
	OptimizerFieldCost         = "cost"
	OptimizerFieldVolumeGrowth = "volumeGrowth"
	OptimizerFieldOpex         = "opex"

	OptimizerGoalMargin    = "margin"
	OptimizerGoalNetProfit = "netProfit"
	OptimizerGoalBreakEven = "breakEven"

	defaultToleranceMultiplier = 0.0001
	defaultMinMultiplier       = 0
	defaultMaxMultiplier       = 5
	defaultMaxIterations       = 60
)

// OptimizerConfig asks the solver for the multiplier on one lever that makes
// a scenario's totals reach a goal.
type OptimizerConfig struct {
	Name          string   `yaml:"name,omitempty" mapstructure:"name"`
	Scenario      string   `yaml:"scenario,omitempty" mapstructure:"scenario"`
	Field         string   `yaml:"field,omitempty" mapstructure:"field"`
	Goal          string   `yaml:"goal,omitempty" mapstructure:"goal"`
	Target        float64  `yaml:"target,omitempty" mapstructure:"target"`
	Min           *float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max           *float64 `yaml:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalOptimizerField returns the canonical identifier for an optimizer field.
func CanonicalOptimizerField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return OptimizerFieldPrice
	}
	switch strings.ToLower(trimmed) {
	case "price", "pricepertransaction":
		return OptimizerFieldPrice
	case "cost", "costpertransaction":
		return OptimizerFieldCost
	case "volumegrowth", "volume_growth", "volume-growth", "growth":
		return OptimizerFieldVolumeGrowth
	case "opex", "operatingexpense", "operating_expense", "operating-expense":
		return OptimizerFieldOpex
	default:
		return strings.ToLower(trimmed)
	}
}

// CanonicalOptimizerGoal returns the canonical identifier for an optimizer goal.
func CanonicalOptimizerGoal(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "margin", "profitmargin", "profit_margin":
		return OptimizerGoalMargin
	case "netprofit", "net_profit", "net-profit":
		return OptimizerGoalNetProfit
	case "breakeven", "break_even", "break-even":
		return OptimizerGoalBreakEven
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (o *OptimizerConfig) Normalize() {
	if o == nil {
		return
	}
	o.Field = CanonicalOptimizerField(o.Field)
	o.Goal = CanonicalOptimizerGoal(o.Goal)

	o.Scenario = strings.TrimSpace(o.Scenario)
	if o.Scenario == "" {
		o.Scenario = projection.ScenarioBaseCase
	}
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		o.Name = fmt.Sprintf("%s for %s", o.Field, o.Goal)
	}

	if o.Min == nil {
		minValue := float64(defaultMinMultiplier)
		o.Min = &minValue
	}
	if o.Max == nil {
		maxValue := float64(defaultMaxMultiplier)
		o.Max = &maxValue
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultToleranceMultiplier
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
}

// Validate returns an error when the optimizer configuration is unsupported.
func (o *OptimizerConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimizer configuration cannot be nil")
	}

	o.Normalize()

	switch o.Field {
	case OptimizerFieldPrice, OptimizerFieldCost, OptimizerFieldVolumeGrowth, OptimizerFieldOpex:
		// supported fields
	default:
		return fmt.Errorf("optimizer field %q is not supported", o.Field)
	}

	switch o.Goal {
	case OptimizerGoalMargin:
		if o.Target >= 100 {
			return fmt.Errorf("optimizer margin target %.2f must be below 100", o.Target)
		}
	case OptimizerGoalNetProfit, OptimizerGoalBreakEven:
	default:
		return fmt.Errorf("optimizer goal %q is not supported", o.Goal)
	}

	if *o.Min < 0 {
		return fmt.Errorf("optimizer minimum %.4f must not be negative", *o.Min)
	}
	if *o.Min >= *o.Max {
		return fmt.Errorf("optimizer minimum %.4f must be less than maximum %.4f", *o.Min, *o.Max)
	}

	return nil
}

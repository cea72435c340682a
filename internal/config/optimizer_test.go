package config

import "testing"

func TestCanonicalOptimizerField(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty defaults to price", input: "", expected: OptimizerFieldPrice},
		{name: "price casing", input: "Price", expected: OptimizerFieldPrice},
		{name: "cost long form", input: "costPerTransaction", expected: OptimizerFieldCost},
		{name: "growth variations", input: "volume_growth", expected: OptimizerFieldVolumeGrowth},
		{name: "opex variations", input: "Operating-Expense", expected: OptimizerFieldOpex},
		{name: "unknown lowered", input: "Custom", expected: "custom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := CanonicalOptimizerField(tc.input)
			if actual != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, actual)
			}
		})
	}
}

func TestCanonicalOptimizerGoal(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"", OptimizerGoalMargin},
		{"profit_margin", OptimizerGoalMargin},
		{"Net-Profit", OptimizerGoalNetProfit},
		{"break-even", OptimizerGoalBreakEven},
		{"Revenue", "revenue"},
	}

	for _, tc := range testCases {
		if actual := CanonicalOptimizerGoal(tc.input); actual != tc.expected {
			t.Errorf("CanonicalOptimizerGoal(%q) = %q, expected %q", tc.input, actual, tc.expected)
		}
	}
}

func TestOptimizerConfigNormalize(t *testing.T) {
	cfg := &OptimizerConfig{Field: "Growth", Goal: "breakeven"}
	cfg.Normalize()

	if cfg.Field != OptimizerFieldVolumeGrowth || cfg.Goal != OptimizerGoalBreakEven {
		t.Fatalf("unexpected canonical values %q/%q", cfg.Field, cfg.Goal)
	}
	if cfg.Scenario != "Base Case" {
		t.Errorf("expected default scenario Base Case, got %q", cfg.Scenario)
	}
	if cfg.Name != "volumeGrowth for breakEven" {
		t.Errorf("unexpected default name %q", cfg.Name)
	}
	if cfg.Min == nil || *cfg.Min != defaultMinMultiplier || cfg.Max == nil || *cfg.Max != defaultMaxMultiplier {
		t.Errorf("default bounds not applied")
	}
	if cfg.Tolerance != defaultToleranceMultiplier || cfg.MaxIterations != defaultMaxIterations {
		t.Errorf("unexpected tolerance %v or iterations %d", cfg.Tolerance, cfg.MaxIterations)
	}

	var nilCfg *OptimizerConfig
	nilCfg.Normalize()
}

func TestOptimizerConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     OptimizerConfig
		wantErr bool
	}{
		{name: "defaults", cfg: OptimizerConfig{}, wantErr: false},
		{name: "explicit bounds", cfg: OptimizerConfig{Field: "cost", Goal: "netProfit", Target: 1e6, Min: floatPtr(0.5), Max: floatPtr(1.5)}, wantErr: false},
		{name: "unsupported field", cfg: OptimizerConfig{Field: "headcount"}, wantErr: true},
		{name: "unsupported goal", cfg: OptimizerConfig{Goal: "revenue"}, wantErr: true},
		{name: "margin at 100", cfg: OptimizerConfig{Goal: "margin", Target: 100}, wantErr: true},
		{name: "negative minimum", cfg: OptimizerConfig{Min: floatPtr(-1)}, wantErr: true},
		{name: "inverted bounds", cfg: OptimizerConfig{Min: floatPtr(2), Max: floatPtr(1)}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}

	var nilCfg *OptimizerConfig
	if err := nilCfg.Validate(); err == nil {
		t.Fatal("expected error for nil optimizer")
	}
}

func floatPtr(value float64) *float64 {
	return &value
}

package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round down below midpoint", 1.234, 1.23},
		{"Round up above midpoint", 1.236, 1.24},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number", -1.236, -1.24},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Very small negative", -0.001, true},
		{"Just above tolerance", 0.02, false},
		{"Large positive", 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsZero(tt.input); got != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMargin(t *testing.T) {
	tests := []struct {
		name     string
		profit   float64
		revenue  float64
		expected float64
	}{
		{"Positive margin", 25, 100, 25},
		{"Negative margin", -50, 100, -50},
		{"Zero revenue guarded", 10, 0, 0},
		{"Negative revenue guarded", -10, -100, 0},
		{"Zero profit", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Margin(tt.profit, tt.revenue)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("Margin(%v, %v) = %v, expected a finite value", tt.profit, tt.revenue, got)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Margin(%v, %v) = %v, expected %v", tt.profit, tt.revenue, got, tt.expected)
			}
		})
	}
}

func TestCompound(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		rate     float64
		periods  int
		expected float64
	}{
		{"No periods", 1_000_000, 10, 0, 1_000_000},
		{"Three periods at ten percent", 1_000_000, 10, 3, 1_331_000},
		{"Decay", 1000, -50, 2, 250},
		{"Zero growth", 500, 0, 12, 500},
		{"Total loss", 500, -100, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compound(tt.base, tt.rate, tt.periods)
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Compound() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestWithinRelative(t *testing.T) {
	if !WithinRelative(0, 0, 1e-9) {
		t.Error("expected zeros to agree")
	}
	if !WithinRelative(1e12, 1e12+1, 1e-9) {
		t.Error("expected values within relative tolerance to agree")
	}
	if WithinRelative(100, 101, 1e-9) {
		t.Error("expected values outside relative tolerance to differ")
	}
}

func TestPercentages(t *testing.T) {
	if got := CalculatePercentage(25, 200); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("CalculatePercentage() = %v, expected 12.5", got)
	}
	if got := CalculatePercentage(25, 0); got != 0 {
		t.Errorf("CalculatePercentage() with zero total = %v, expected 0", got)
	}
	if got := ApplyPercentage(10000, 10); math.Abs(got-1000) > 1e-9 {
		t.Errorf("ApplyPercentage() = %v, expected 1000", got)
	}
	if got := WeightedAverage(50, 0); got != 0 {
		t.Errorf("WeightedAverage() with zero weight = %v, expected 0", got)
	}
	if got := WeightedAverage(50, 10); got != 5 {
		t.Errorf("WeightedAverage() = %v, expected 5", got)
	}
}

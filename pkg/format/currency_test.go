package format

import "testing"

func TestINR(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{999.5, "₹999.50"},
		{1000, "₹1,000.00"},
		{123456.78, "₹1,23,456.78"},
		{12345678.9, "₹1,23,45,678.90"},
		{-2500000, "-₹25,00,000.00"},
	}

	for _, tt := range tests {
		if got := INR(tt.amount); got != tt.expected {
			t.Errorf("INR(%v) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestUSD(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{-1000000, "-$1,000,000.00"},
	}

	for _, tt := range tests {
		if got := USD(tt.amount); got != tt.expected {
			t.Errorf("USD(%v) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestConvert(t *testing.T) {
	if got := Convert(8350, 83.5); got != 100 {
		t.Errorf("Convert() = %v, expected 100", got)
	}
	if got := Convert(8350, 0); got != 0 {
		t.Errorf("Convert() with zero rate = %v, expected 0", got)
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{120_000_000, "₹12.0 Cr"},
		{340_000, "₹3.4 L"},
		{5_600, "₹5.6 K"},
		{42.5, "₹42.50"},
		{-15_000_000, "₹-1.5 Cr"},
	}

	for _, tt := range tests {
		if got := Compact(tt.amount); got != tt.expected {
			t.Errorf("Compact(%v) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}

	if got := CompactNumber(750, 0); got != "750" {
		t.Errorf("CompactNumber(750, 0) = %q, expected 750", got)
	}
	if got := Percent(12.345); got != "12.3%" {
		t.Errorf("Percent() = %q, expected 12.3%%", got)
	}
}

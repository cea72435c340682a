package catalog

import (
	"math"
	"testing"
)

func TestTemplates(t *testing.T) {
	templates, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	if len(templates) != 10 {
		t.Fatalf("expected 10 templates, got %d", len(templates))
	}

	seen := make(map[string]bool)
	for _, tmpl := range templates {
		if seen[tmpl.Name] {
			t.Errorf("duplicate template %q", tmpl.Name)
		}
		seen[tmpl.Name] = true
		if tmpl.PricePerTransaction <= tmpl.CostPerTransaction {
			t.Errorf("%s: price %v not above cost %v", tmpl.Name, tmpl.PricePerTransaction, tmpl.CostPerTransaction)
		}
		if tmpl.MonthlyVolume <= 0 {
			t.Errorf("%s: non-positive volume", tmpl.Name)
		}
	}

	templates[0].Name = "mutated"
	again, _ := Templates()
	if again[0].Name == "mutated" {
		t.Error("Templates() returned shared backing storage")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		found  bool
		price  float64
		volume float64
	}{
		{"eKYC - Banking", true, 20, 15_000_000},
		{"  tokenization - upi ", true, 0.5, 8e8 / 12},
		{"OTP (SMS) - Banking", true, 0.15, 4e9 / 12},
		{"Carrier Pigeon", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, ok := Lookup(tt.name)
			if ok != tt.found {
				t.Fatalf("Lookup(%q) found = %v, expected %v", tt.name, ok, tt.found)
			}
			if !ok {
				return
			}
			if tmpl.PricePerTransaction != tt.price {
				t.Errorf("price = %v, expected %v", tmpl.PricePerTransaction, tt.price)
			}
			if math.Abs(tmpl.MonthlyVolume-tt.volume) > 1 {
				t.Errorf("volume = %v, expected %v", tmpl.MonthlyVolume, tt.volume)
			}
		})
	}
}

func TestToSegment(t *testing.T) {
	tmpl, ok := Lookup("Biometric - Pension Auth")
	if !ok {
		t.Fatal("template missing")
	}
	segment := ToSegment(tmpl, "seg-1")
	if segment.ID != "seg-1" || segment.Name != tmpl.Name {
		t.Errorf("unexpected identity %q/%q", segment.ID, segment.Name)
	}
	if segment.Category != "biometric" || segment.VolumeGrowth != 10 {
		t.Errorf("unexpected segment %+v", segment)
	}
	if segment.Metadata["source"] != "catalog" {
		t.Errorf("metadata source = %q", segment.Metadata["source"])
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("templates:\n  - name: x\n    colour: red\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

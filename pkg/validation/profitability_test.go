package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

func TestProfitabilityCheck(t *testing.T) {
	// Revenue 1,000,000 and gross profit 400,000 per month.
	segments := []projection.Segment{{Name: "Core", PricePerTransaction: 10, CostPerTransaction: 6, MonthlyVolume: 100_000, VolumeGrowth: 50}}

	tests := []struct {
		name   string
		policy projection.OperatingExpensePolicy
		level  Level
		margin float64
	}{
		{"Loss", projection.OperatingExpensePolicy{Type: projection.OpexFixed, Fixed: 500_000}, LevelLoss, -25},
		{"Low", projection.OperatingExpensePolicy{Type: projection.OpexFixed, Fixed: 380_000}, LevelLow, 5},
		{"Healthy", projection.OperatingExpensePolicy{Type: projection.OpexHybrid, Fixed: 100_000, Percentage: 10}, LevelHealthy, 50},
		{"High", projection.OperatingExpensePolicy{Type: projection.OpexPercentage, Percentage: 2}, LevelHigh, 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := ProfitabilityCheck(segments, tt.policy)
			if assessment.Level != tt.level {
				t.Errorf("Level = %s, expected %s (%s)", assessment.Level, tt.level, assessment.Message)
			}
			if math.Abs(assessment.Margin-tt.margin) > 1e-9 {
				t.Errorf("Margin = %v, expected %v", assessment.Margin, tt.margin)
			}
			if assessment.Message == "" {
				t.Error("expected a message")
			}
		})
	}

	loss := ProfitabilityCheck(segments, projection.OperatingExpensePolicy{Type: projection.OpexFixed, Fixed: 500_000})
	if !strings.Contains(loss.Message, "₹1,00,000.00") {
		t.Errorf("loss message = %q", loss.Message)
	}

	if got := ProfitabilityCheck(nil, projection.OperatingExpensePolicy{}); got.Level != LevelNone || got.Warning() {
		t.Errorf("empty model assessment = %+v", got)
	}
}

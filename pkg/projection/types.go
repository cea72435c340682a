package projection

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
)

// Segment is a revenue-generating product line. The engine treats it as a
// read-only value.
type Segment struct {
	ID                  string            `json:"id" yaml:"id,omitempty" mapstructure:"id"`
	Name                string            `json:"name" yaml:"name" mapstructure:"name"`
	PricePerTransaction float64           `json:"pricePerTransaction" yaml:"pricePerTransaction" mapstructure:"pricePerTransaction"`
	CostPerTransaction  float64           `json:"costPerTransaction" yaml:"costPerTransaction" mapstructure:"costPerTransaction"`
	MonthlyVolume       float64           `json:"monthlyVolume" yaml:"monthlyVolume" mapstructure:"monthlyVolume"`
	VolumeGrowth        float64           `json:"volumeGrowth" yaml:"volumeGrowth" mapstructure:"volumeGrowth"`
	Category            string            `json:"category,omitempty" yaml:"category,omitempty" mapstructure:"category"`
	Notes               string            `json:"notes,omitempty" yaml:"notes,omitempty" mapstructure:"notes"`
	Metadata            map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// SeasonalityProfile selects the month-of-year volume overlay.
type SeasonalityProfile string

// Supported seasonality profiles.
const (
	SeasonalityNone     SeasonalityProfile = constants.SeasonalityNone
	SeasonalityFestival SeasonalityProfile = constants.SeasonalityFestival
	SeasonalitySummer   SeasonalityProfile = constants.SeasonalitySummer
)

// ParseSeasonality canonicalises a profile name. An empty value means none.
func ParseSeasonality(value string) (SeasonalityProfile, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", constants.SeasonalityNone:
		return SeasonalityNone, nil
	case constants.SeasonalityFestival:
		return SeasonalityFestival, nil
	case constants.SeasonalitySummer:
		return SeasonalitySummer, nil
	default:
		return "", fmt.Errorf("unsupported seasonality %q", value)
	}
}

// OpexType is the operating expense policy.
type OpexType string

// Supported operating expense policies.
const (
	OpexFixed      OpexType = constants.OpexFixed
	OpexPercentage OpexType = constants.OpexPercentage
	OpexHybrid     OpexType = constants.OpexHybrid
)

// ParseOpexType canonicalises a policy name. An empty value means fixed.
func ParseOpexType(value string) (OpexType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", constants.OpexFixed:
		return OpexFixed, nil
	case constants.OpexPercentage, "percent":
		return OpexPercentage, nil
	case constants.OpexHybrid:
		return OpexHybrid, nil
	default:
		return "", fmt.Errorf("unsupported operating expense type %q", value)
	}
}

// OperatingExpensePolicy describes how monthly operating expenses are derived.
type OperatingExpensePolicy struct {
	Type       OpexType `json:"type" yaml:"type"`
	Fixed      float64  `json:"fixed" yaml:"fixed"`
	Percentage float64  `json:"percentage" yaml:"percentage"`
}

// Parameters are the global inputs of a projection run.
type Parameters struct {
	Months           int                    `json:"months" yaml:"months"`
	Seasonality      SeasonalityProfile     `json:"seasonality" yaml:"seasonality"`
	OperatingExpense OperatingExpensePolicy `json:"operatingExpense" yaml:"operatingExpense"`
	// StartDate labels month 0. The zero value produces "Month N" labels.
	StartDate time.Time `json:"startDate,omitempty" yaml:"startDate,omitempty"`
}

// MonthRecord is one consolidated month of output.
type MonthRecord struct {
	Index             int     `json:"index"`
	Month             string  `json:"month"`
	Revenue           float64 `json:"revenue"`
	COGS              float64 `json:"cogs"`
	GrossProfit       float64 `json:"grossProfit"`
	OperatingExpenses float64 `json:"operatingExpenses"`
	NetProfit         float64 `json:"netProfit"`
	ProfitMargin      float64 `json:"profitMargin"`
	Volume            float64 `json:"volume"`
	CumulativeRevenue float64 `json:"cumulativeRevenue"`
}

// SegmentMonth is one segment's contribution in one month.
type SegmentMonth struct {
	Index   int     `json:"index"`
	Month   string  `json:"month"`
	Volume  float64 `json:"volume"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
	Margin  float64 `json:"margin"`
}

// Projection is the output of a single engine run.
type Projection struct {
	Monthly    []MonthRecord             `json:"monthly"`
	PerSegment map[string][]SegmentMonth `json:"perSegment"`
	// SegmentOrder lists PerSegment keys in input order.
	SegmentOrder []string `json:"segmentOrder"`
}

// Summary holds totals over a whole projection.
type Summary struct {
	TotalRevenue           float64 `json:"totalRevenue"`
	TotalCosts             float64 `json:"totalCosts"`
	TotalOperatingExpenses float64 `json:"totalOperatingExpenses"`
	NetProfit              float64 `json:"netProfit"`
	ProfitMargin           float64 `json:"profitMargin"`
	TotalVolume            float64 `json:"totalVolume"`
}

// Package demographics turns population records into projection segments and
// summarises a dataset for market sizing.
package demographics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/mathutil"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// Kind selects how a record is converted into a segment.
type Kind string

// Supported record kinds.
const (
	KindDemographic Kind = "demographic"
	KindPension     Kind = "pension"
)

// ParseKind canonicalises a kind name. An empty value means demographic.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(KindDemographic):
		return KindDemographic, nil
	case string(KindPension):
		return KindPension, nil
	default:
		return "", fmt.Errorf("unsupported demographic kind %q", value)
	}
}

// Defaults applied when a record leaves a field at zero.
const (
	DefaultAuthPct    = 10.0
	DefaultPensionPct = 8.0
	DefaultAuthFreq   = 1.0
	DefaultGrowthRate = 8.0

	PensionPrice        = 3.50
	PensionCost         = 2.00
	DefaultPrice        = 2.50
	DefaultCost         = 1.50
	HighDigitalAdoption = 70.0
	FastGrowthRate      = 10.0

	// Opportunity sizing assumes 1.5 transactions per authenticating person
	// per month at the default price.
	opportunityTxPerPerson = 1.5
	millions               = 1_000_000
)

// Record is one region or population slice. Population is in millions and
// every *Pct field is a percentage of it.
type Record struct {
	Name                string  `json:"name" yaml:"name" mapstructure:"name"`
	Region              string  `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
	Population          float64 `json:"population" yaml:"population" mapstructure:"population"`
	AuthPct             float64 `json:"authPct,omitempty" yaml:"authPct,omitempty" mapstructure:"authPct"`
	PensionPct          float64 `json:"pensionPct,omitempty" yaml:"pensionPct,omitempty" mapstructure:"pensionPct"`
	AuthFreq            float64 `json:"authFreq,omitempty" yaml:"authFreq,omitempty" mapstructure:"authFreq"`
	DigitalAdoption     float64 `json:"digitalAdoption,omitempty" yaml:"digitalAdoption,omitempty" mapstructure:"digitalAdoption"`
	Urbanization        float64 `json:"urbanization,omitempty" yaml:"urbanization,omitempty" mapstructure:"urbanization"`
	EconomicTier        string  `json:"economicTier,omitempty" yaml:"economicTier,omitempty" mapstructure:"economicTier"`
	AuthGrowthRate      float64 `json:"authGrowthRate,omitempty" yaml:"authGrowthRate,omitempty" mapstructure:"authGrowthRate"`
	PricePerTransaction float64 `json:"pricePerTransaction,omitempty" yaml:"pricePerTransaction,omitempty" mapstructure:"pricePerTransaction"`
	CostPerTransaction  float64 `json:"costPerTransaction,omitempty" yaml:"costPerTransaction,omitempty" mapstructure:"costPerTransaction"`
}

// MonthlyVolume is the record's expected monthly transaction count, rounded
// to a whole transaction.
func MonthlyVolume(r Record, kind Kind) float64 {
	authFreq := orDefault(r.AuthFreq, DefaultAuthFreq)
	pct := orDefault(r.AuthPct, DefaultAuthPct)
	if kind == KindPension {
		pct = orDefault(r.PensionPct, DefaultPensionPct)
	}
	return math.Round(r.Population * (pct / constants.PercentageMultiplier) * millions * authFreq)
}

// ToSegments converts records into segments. newID supplies identifiers and
// may be nil.
func ToSegments(records []Record, kind Kind, newID func() string) []projection.Segment {
	segments := make([]projection.Segment, 0, len(records))
	for _, r := range records {
		segment := projection.Segment{
			Name:                segmentName(r, kind),
			PricePerTransaction: orDefault(r.PricePerTransaction, DefaultPrice),
			CostPerTransaction:  orDefault(r.CostPerTransaction, DefaultCost),
			MonthlyVolume:       MonthlyVolume(r, kind),
			VolumeGrowth:        orDefault(r.AuthGrowthRate, DefaultGrowthRate),
			Category:            "authentication",
			Notes:               notes(r, kind),
			Metadata: map[string]string{
				"source":     "demographics",
				"kind":       string(kind),
				"population": strconv.FormatFloat(r.Population, 'f', -1, 64),
			},
		}
		if kind == KindPension {
			segment.PricePerTransaction = PensionPrice
			segment.CostPerTransaction = PensionCost
			segment.Category = "biometric"
		}
		if r.Region != "" {
			segment.Metadata["region"] = r.Region
		}
		if newID != nil {
			segment.ID = newID()
		}
		segments = append(segments, segment)
	}
	return segments
}

func segmentName(r Record, kind Kind) string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	if kind == KindPension {
		return r.Region + " - Pension Auth"
	}
	return r.Region + " - Auth"
}

func notes(r Record, kind Kind) string {
	var parts []string
	if r.Region != "" {
		parts = append(parts, "Region: "+r.Region)
	}
	if r.Population > 0 {
		parts = append(parts, fmt.Sprintf("Population: %gM", r.Population))
	}
	if r.EconomicTier != "" {
		parts = append(parts, "Economic Tier: "+r.EconomicTier)
	}
	if r.DigitalAdoption > 0 {
		parts = append(parts, fmt.Sprintf("Digital Adoption: %g%%", r.DigitalAdoption))
	}
	if r.Urbanization > 0 {
		parts = append(parts, fmt.Sprintf("Urbanization: %g%%", r.Urbanization))
	}
	if kind == KindPension && r.PensionPct > 0 {
		parts = append(parts, fmt.Sprintf("Pension Coverage: %g%%", r.PensionPct))
	}
	return strings.Join(parts, ", ")
}

func orDefault(value, fallback float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return fallback
	}
	return value
}

// Insights summarises a dataset.
type Insights struct {
	TotalPopulation     float64 `json:"totalPopulation"`
	TotalSegments       int     `json:"totalSegments"`
	AvgAuthRate         float64 `json:"avgAuthRate"`
	AvgPensionRate      float64 `json:"avgPensionRate"`
	AvgDigitalAdoption  float64 `json:"avgDigitalAdoption"`
	AvgUrbanization     float64 `json:"avgUrbanization"`
	AvgGrowthRate       float64 `json:"avgGrowthRate"`
	HighEconomicCount   int     `json:"highEconomicSegments"`
	MediumEconomicCount int     `json:"mediumEconomicSegments"`
	LowEconomicCount    int     `json:"lowEconomicSegments"`
	HighDigitalCount    int     `json:"highDigitalSegments"`
	FastGrowingCount    int     `json:"fastGrowingSegments"`
	RevenueOpportunity  float64 `json:"revenueOpportunity"`
}

// ComputeInsights returns population-weighted averages and tier counts.
// Auth, pension and digital averages are weighted over the records that
// report the field; urbanization and growth over the whole population.
func ComputeInsights(records []Record) Insights {
	insights := Insights{TotalSegments: len(records)}
	var authPop, pensionPop, digitalPop float64
	var authSum, pensionSum, digitalSum float64
	var urbanizationSum, growthSum float64

	for _, r := range records {
		insights.TotalPopulation += r.Population

		if r.AuthPct > 0 {
			authPop += r.Population
			authSum += r.AuthPct * r.Population
		}
		if r.PensionPct > 0 {
			pensionPop += r.Population
			pensionSum += r.PensionPct * r.Population
		}
		if r.DigitalAdoption > 0 {
			digitalPop += r.Population
			digitalSum += r.DigitalAdoption * r.Population
			if r.DigitalAdoption > HighDigitalAdoption {
				insights.HighDigitalCount++
			}
		}
		if r.Urbanization > 0 {
			urbanizationSum += r.Urbanization * r.Population
		}
		if r.AuthGrowthRate > 0 {
			growthSum += r.AuthGrowthRate * r.Population
			if r.AuthGrowthRate > FastGrowthRate {
				insights.FastGrowingCount++
			}
		}

		switch strings.ToLower(r.EconomicTier) {
		case "high":
			insights.HighEconomicCount++
		case "medium":
			insights.MediumEconomicCount++
		case "low":
			insights.LowEconomicCount++
		}

		authenticating := r.Population * (r.AuthPct / constants.PercentageMultiplier) * millions
		insights.RevenueOpportunity += authenticating * opportunityTxPerPerson * DefaultPrice * constants.MonthsPerYear
	}

	insights.AvgAuthRate = mathutil.WeightedAverage(authSum, authPop)
	insights.AvgPensionRate = mathutil.WeightedAverage(pensionSum, pensionPop)
	insights.AvgDigitalAdoption = mathutil.WeightedAverage(digitalSum, digitalPop)
	insights.AvgUrbanization = mathutil.WeightedAverage(urbanizationSum, insights.TotalPopulation)
	insights.AvgGrowthRate = mathutil.WeightedAverage(growthSum, insights.TotalPopulation)

	return insights
}

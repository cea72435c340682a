package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"gopkg.in/yaml.v3"
)

// ExportVersion identifies the model export layout.
const ExportVersion = "4.0.0"

// Export is a portable model configuration with headline results.
type Export struct {
	Metadata       ExportMetadata       `json:"metadata" yaml:"metadata"`
	Settings       ExportSettings       `json:"settings" yaml:"settings"`
	Segments       []projection.Segment `json:"segments" yaml:"segments"`
	CurrentCountry string               `json:"currentCountry" yaml:"currentCountry"`
	Results        *ExportResults       `json:"results,omitempty" yaml:"results,omitempty"`
}

// ExportMetadata describes the export itself.
type ExportMetadata struct {
	ExportedAt  time.Time `json:"exportedAt" yaml:"exportedAt"`
	Version     string    `json:"version" yaml:"version"`
	Description string    `json:"description" yaml:"description"`
	Name        string    `json:"name" yaml:"name"`
	Segments    int       `json:"segments" yaml:"segments"`
}

// ExportSettings are the global model parameters.
type ExportSettings struct {
	ProjectionMonths           int     `json:"projectionMonths" yaml:"projectionMonths"`
	StartDate                  string  `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	UsdRate                    float64 `json:"usdRate" yaml:"usdRate"`
	Seasonality                string  `json:"seasonality" yaml:"seasonality"`
	OperatingExpenseType       string  `json:"operatingExpenseType" yaml:"operatingExpenseType"`
	OperatingExpenses          float64 `json:"operatingExpenses" yaml:"operatingExpenses"`
	OperatingExpensePercentage float64 `json:"operatingExpensePercentage" yaml:"operatingExpensePercentage"`
}

// ExportResults carries totals for the base projection and each scenario.
type ExportResults struct {
	Summary   projection.Summary            `json:"summary" yaml:"summary"`
	Yearly    []ExportYear                  `json:"yearly" yaml:"yearly"`
	Scenarios map[string]projection.Summary `json:"scenarios" yaml:"scenarios"`
}

// ExportYear is a yearly total without its months.
type ExportYear struct {
	Year         int     `json:"year" yaml:"year"`
	Revenue      float64 `json:"revenue" yaml:"revenue"`
	NetProfit    float64 `json:"netProfit" yaml:"netProfit"`
	ProfitMargin float64 `json:"profitMargin" yaml:"profitMargin"`
}

// NewExport builds an export of the result's model stamped with exportedAt.
func NewExport(result *forecast.Result, exportedAt time.Time) Export {
	params := result.Parameters
	description := result.Description
	if description == "" {
		description = "APAC Revenue Projections Model Configuration"
	}
	country := result.Country
	if country == "" {
		country = "india"
	}

	export := Export{
		Metadata: ExportMetadata{
			ExportedAt:  exportedAt.UTC(),
			Version:     ExportVersion,
			Description: description,
			Name:        result.Name,
			Segments:    len(result.Segments),
		},
		Settings: ExportSettings{
			ProjectionMonths:           params.Months,
			UsdRate:                    result.ExchangeRate,
			Seasonality:                string(params.Seasonality),
			OperatingExpenseType:       string(params.OperatingExpense.Type),
			OperatingExpenses:          params.OperatingExpense.Fixed,
			OperatingExpensePercentage: params.OperatingExpense.Percentage,
		},
		Segments:       result.Segments,
		CurrentCountry: country,
	}
	if !params.StartDate.IsZero() {
		export.Settings.StartDate = params.StartDate.Format("2006-01")
	}

	if result.Projection != nil {
		results := &ExportResults{
			Summary:   result.Summary,
			Scenarios: make(map[string]projection.Summary, len(result.Scenarios)),
		}
		for _, year := range result.Yearly {
			results.Yearly = append(results.Yearly, ExportYear{
				Year:         year.Year,
				Revenue:      year.Revenue,
				NetProfit:    year.NetProfit,
				ProfitMargin: year.ProfitMargin,
			})
		}
		for _, scenario := range result.Scenarios {
			results.Scenarios[scenario.Scenario.Name] = scenario.Summary
		}
		export.Results = results
	}

	return export
}

// JSON writes the export as indented JSON.
func JSON(w io.Writer, export Export) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// YAML writes the export as YAML.
func YAML(w io.Writer, export Export) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(export); err != nil {
		return err
	}
	return encoder.Close()
}

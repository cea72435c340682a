package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/optimization"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"gopkg.in/yaml.v3"
)

// testResult projects a flat model: 10,000 revenue, 4,000 COGS and 1,000
// opex every month at 100 INR per USD.
func testResult(t *testing.T) *forecast.Result {
	t.Helper()
	in := forecast.Input{
		Name:         "Flat",
		ExchangeRate: 100,
		Segments: []projection.Segment{
			{ID: "s1", Name: "Core", PricePerTransaction: 10, CostPerTransaction: 4, MonthlyVolume: 1000},
		},
		Parameters: projection.Parameters{
			Months:           24,
			Seasonality:      projection.SeasonalityNone,
			OperatingExpense: projection.OperatingExpensePolicy{Type: projection.OpexFixed, Fixed: 1000},
			StartDate:        time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	result, err := forecast.Compute(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	return result
}

func TestPretty(t *testing.T) {
	result := testResult(t)
	result.Optimizations = []optimization.Summary{{TargetName: "Price for 60%", Field: "price", Value: 1.25, Converged: true, Iterations: 12}}
	result.Warnings = []string{"check me"}

	var buf bytes.Buffer
	if err := Pretty(&buf, result, Options{Period: "monthly"}); err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	output := buf.String()

	expected := []string{
		"--- Revenue forecast for Flat ---",
		"Horizon: 2025-01 to 2026-12 (24 months)",
		"Period",
		"2025 Jan",
		"2026 Dec",
		"₹10,000.00",
		"₹2,40,000.00",
		"$2,400.00",
		"50.0%",
		"--- Scenario comparison ---",
		"Conservative",
		"--- Segment breakdown ---",
		"--- Optimizer results ---",
		"Price for 60%: price multiplier 1.2500",
		"--- Warnings ---",
		"- check me",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Pretty() output missing %q", want)
		}
	}
}

func TestPrettyYearly(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, testResult(t), Options{Period: "yearly"}); err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Year") || !strings.Contains(output, "₹1,20,000.00") {
		t.Errorf("yearly output missing year totals:\n%s", output)
	}
	if strings.Contains(output, "2025 Jan") {
		t.Errorf("yearly output contains monthly rows")
	}
}

func TestPrettyErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, nil, Options{}); err == nil {
		t.Error("expected error for nil result")
	}
	if err := Pretty(&buf, testResult(t), Options{Period: "weekly"}); err == nil {
		t.Error("expected error for unsupported period")
	}
	if err := Pretty(&buf, testResult(t), Options{Window: "3Q"}); err == nil {
		t.Error("expected error for unsupported window")
	}
}

func TestCSV(t *testing.T) {
	result := testResult(t)

	tests := []struct {
		name     string
		opts     Options
		heading  string
		rows     int
		firstRow []string
	}{
		{
			name:     "Monthly",
			opts:     Options{Period: "monthly"},
			heading:  "Period",
			rows:     24,
			firstRow: []string{"2025 Jan", "₹10,000.00", "$100.00", "₹4,000.00", "$40.00", "₹5,000.00", "$50.00", "1000", "50.0"},
		},
		{
			name:     "Monthly one year window",
			opts:     Options{Period: "monthly", Window: projection.PeriodOneYear},
			heading:  "Period",
			rows:     12,
			firstRow: []string{"2025 Jan", "₹10,000.00", "$100.00", "₹4,000.00", "$40.00", "₹5,000.00", "$50.00", "1000", "50.0"},
		},
		{
			name:     "Yearly",
			opts:     Options{Period: "yearly"},
			heading:  "Year",
			rows:     2,
			firstRow: []string{"2025", "₹1,20,000.00", "$1,200.00", "₹48,000.00", "$480.00", "₹60,000.00", "$600.00", "12000", "50.0"},
		},
		{
			name:     "Daily",
			opts:     Options{Period: "daily"},
			heading:  "Period",
			rows:     30,
			firstRow: []string{"Day 1", "₹333.33", "$3.33", "₹133.33", "$1.33", "₹166.67", "$1.67", "33", "50.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CSVString(result, tt.opts)
			if err != nil {
				t.Fatalf("CSVString() error = %v", err)
			}

			records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
			if err != nil {
				t.Fatalf("output is not valid CSV: %v", err)
			}
			if len(records) != tt.rows+1 {
				t.Fatalf("got %d records, expected %d plus header", len(records), tt.rows)
			}

			header := records[0]
			if header[0] != tt.heading || header[1] != "Revenue (INR)" || header[8] != "Profit Margin (%)" {
				t.Errorf("unexpected header %v", header)
			}
			for i, want := range tt.firstRow {
				if records[1][i] != want {
					t.Errorf("column %s = %q, expected %q", header[i], records[1][i], want)
				}
			}
		})
	}
}

func TestExport(t *testing.T) {
	result := testResult(t)
	exportedAt := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	export := NewExport(result, exportedAt)
	if export.Metadata.Segments != 1 || export.Metadata.Version != ExportVersion {
		t.Errorf("unexpected metadata %+v", export.Metadata)
	}
	if export.Settings.ProjectionMonths != 24 || export.Settings.UsdRate != 100 || export.Settings.OperatingExpenseType != "fixed" {
		t.Errorf("unexpected settings %+v", export.Settings)
	}
	if export.Settings.StartDate != "2025-01" || export.CurrentCountry != "india" {
		t.Errorf("unexpected defaults %q/%q", export.Settings.StartDate, export.CurrentCountry)
	}
	if len(export.Results.Yearly) != 2 || len(export.Results.Scenarios) != 3 {
		t.Errorf("unexpected results %+v", export.Results)
	}

	var jsonBuf bytes.Buffer
	if err := JSON(&jsonBuf, export); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON output invalid: %v", err)
	}
	settings := decoded["settings"].(map[string]interface{})
	if settings["operatingExpenses"].(float64) != 1000 {
		t.Errorf("operatingExpenses = %v", settings["operatingExpenses"])
	}
	if !strings.Contains(jsonBuf.String(), `"exportedAt": "2025-03-04T10:00:00Z"`) {
		t.Errorf("JSON missing exportedAt:\n%s", jsonBuf.String())
	}

	var yamlBuf bytes.Buffer
	if err := YAML(&yamlBuf, export); err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	var fromYAML Export
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("YAML output invalid: %v", err)
	}
	if fromYAML.Segments[0].Name != "Core" || fromYAML.Settings.Seasonality != "none" {
		t.Errorf("unexpected YAML export %+v", fromYAML)
	}
}

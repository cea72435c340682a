package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/internal/optimizer"
	"github.com/iwvelando/revenue-forecast/pkg/output"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/testutil"
	"go.uber.org/zap"
)

const fixture = "../test_config.yaml"

var fixedNow = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func computeFixture(t *testing.T) *forecast.Result {
	t.Helper()
	result, err := computeFixtureWith(testutil.LoadConfig(t, fixture))
	if err != nil {
		t.Fatalf("GetForecastWithFixedTime() error = %v", err)
	}
	return result
}

func computeFixtureWith(conf *config.Configuration) (*forecast.Result, error) {
	return forecast.GetForecastWithFixedTime(context.Background(), zap.NewNop(), *conf, fixedNow)
}

// TestForecastScenarios runs the fixture model end to end and checks the
// relationships between the projection, its aggregates and the scenarios.
func TestForecastScenarios(t *testing.T) {
	result := computeFixture(t)

	if len(result.Segments) != 3 {
		t.Fatalf("expected 2 configured segments plus 1 template, got %d", len(result.Segments))
	}
	if len(result.Projection.Monthly) != 24 {
		t.Fatalf("expected 24 months, got %d", len(result.Projection.Monthly))
	}
	if result.Projection.Monthly[0].Month != "2025 Jan" {
		t.Errorf("first month = %q, expected 2025 Jan", result.Projection.Monthly[0].Month)
	}

	expectedScenarios := []string{"Conservative", "Base Case", "Optimistic"}
	if len(result.Scenarios) != len(expectedScenarios) {
		t.Fatalf("expected %d scenarios, got %d", len(expectedScenarios), len(result.Scenarios))
	}
	for i, expected := range expectedScenarios {
		if result.Scenarios[i].Scenario.Name != expected {
			t.Errorf("scenario %d = %s, expected %s", i, result.Scenarios[i].Scenario.Name, expected)
		}
	}

	conservative := testutil.FindScenario(result.Scenarios, "Conservative")
	base := testutil.FindScenario(result.Scenarios, projection.ScenarioBaseCase)
	optimistic := testutil.FindScenario(result.Scenarios, "Optimistic")
	if testutil.FindScenario(result.Scenarios, "Price War") != nil {
		t.Error("inactive scenario should not run")
	}

	if !testutil.WithinRelative(base.Summary.TotalRevenue, result.Summary.TotalRevenue, 1e-9) {
		t.Errorf("Base Case revenue %v differs from base projection %v", base.Summary.TotalRevenue, result.Summary.TotalRevenue)
	}
	if !(conservative.Summary.TotalRevenue < base.Summary.TotalRevenue && base.Summary.TotalRevenue < optimistic.Summary.TotalRevenue) {
		t.Errorf("expected Conservative < Base Case < Optimistic revenue, got %v, %v, %v",
			conservative.Summary.TotalRevenue, base.Summary.TotalRevenue, optimistic.Summary.TotalRevenue)
	}
	if !(conservative.Summary.NetProfit < optimistic.Summary.NetProfit) {
		t.Errorf("expected Conservative profit below Optimistic, got %v and %v",
			conservative.Summary.NetProfit, optimistic.Summary.NetProfit)
	}

	var yearlyRevenue, yearlyProfit float64
	for _, year := range result.Yearly {
		yearlyRevenue += year.Revenue
		yearlyProfit += year.NetProfit
	}
	if !testutil.WithinRelative(yearlyRevenue, result.Summary.TotalRevenue, 1e-9) {
		t.Errorf("yearly revenue %v, expected %v", yearlyRevenue, result.Summary.TotalRevenue)
	}
	if !testutil.WithinRelative(yearlyProfit, result.Summary.NetProfit, 1e-9) {
		t.Errorf("yearly profit %v, expected %v", yearlyProfit, result.Summary.NetProfit)
	}

	last := result.Projection.Monthly[len(result.Projection.Monthly)-1]
	if !testutil.WithinRelative(last.CumulativeRevenue, result.Summary.TotalRevenue, 1e-9) {
		t.Errorf("cumulative revenue %v, expected %v", last.CumulativeRevenue, result.Summary.TotalRevenue)
	}
}

// TestCSVOutputFormat checks the yearly CSV table for the fixture.
func TestCSVOutputFormat(t *testing.T) {
	result := computeFixture(t)

	var buf bytes.Buffer
	if err := output.CSV(&buf, result, output.Options{Period: "yearly"}); err != nil {
		t.Fatalf("CSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 years, got %d records", len(records))
	}

	header := records[0]
	expectedHeader := []string{"Year", "Revenue (INR)", "Revenue (USD)", "COGS (INR)", "COGS (USD)",
		"Net Profit (INR)", "Net Profit (USD)", "Transaction Volume", "Profit Margin (%)"}
	if strings.Join(header, "|") != strings.Join(expectedHeader, "|") {
		t.Errorf("CSV header = %v, expected %v", header, expectedHeader)
	}
	for i, year := range []string{"2025", "2026"} {
		row := records[i+1]
		if row[0] != year {
			t.Errorf("row %d year = %s, expected %s", i, row[0], year)
		}
		if !strings.HasPrefix(row[1], "₹") || !strings.HasPrefix(row[2], "$") {
			t.Errorf("row %d currencies = %s, %s", i, row[1], row[2])
		}
	}
}

// TestPrettyOutputFormat checks the console report for the fixture.
func TestPrettyOutputFormat(t *testing.T) {
	result := computeFixture(t)

	var buf bytes.Buffer
	if err := output.Pretty(&buf, result, output.Options{Period: "yearly"}); err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}

	rendered := buf.String()
	for _, expected := range []string{"APAC Identity Test Model", "Conservative", "Optimistic", "OTP Banking", "Tokenization - UPI"} {
		if !strings.Contains(rendered, expected) {
			t.Errorf("pretty output missing %q", expected)
		}
	}
}

// TestOptimizerOnFixture solves the fixture's price lever and checks the
// solution reproduces the requested margin.
func TestOptimizerOnFixture(t *testing.T) {
	conf := testutil.LoadConfig(t, fixture)
	in, err := forecast.InputFromConfig(*conf, fixedNow)
	if err != nil {
		t.Fatalf("InputFromConfig() error = %v", err)
	}

	runner, err := optimizer.NewRunner(zap.NewNop(), in, conf.Optimizers)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	solved, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	summaries := solved.Summaries[projection.ScenarioBaseCase]
	if len(summaries) != 1 {
		t.Fatalf("expected 1 Base Case solution, got %d", len(summaries))
	}
	summary := summaries[0]
	if summary.Field != "price" {
		t.Errorf("Field = %s, expected price", summary.Field)
	}
	if summary.Value < 0.5 || summary.Value > 2 {
		t.Errorf("Value %v outside multiplier bounds", summary.Value)
	}
	if summary.Converged && !testutil.WithinRelative(summary.Achieved, 30, 1e-3) {
		t.Errorf("converged margin %v, expected 30", summary.Achieved)
	}
}

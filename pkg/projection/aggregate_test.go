package projection

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAggregateByYearSingleYear(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	params := sampleParams()
	params.Months = 12

	result, err := engine.Run(sampleSegments(), params)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	years, err := AggregateByYear(result.Monthly)
	if err != nil {
		t.Fatalf("AggregateByYear() error = %v", err)
	}
	if len(years) != 1 {
		t.Fatalf("expected 1 year, got %d", len(years))
	}

	var revenue, netProfit float64
	for _, month := range result.Monthly {
		revenue += month.Revenue
		netProfit += month.NetProfit
	}

	year := years[0]
	if year.Year != 2025 {
		t.Errorf("Year = %d, expected 2025", year.Year)
	}
	if year.Revenue != revenue {
		t.Errorf("Revenue = %v, expected %v", year.Revenue, revenue)
	}
	if math.Abs(year.ProfitMargin-netProfit/revenue*100) > 1e-9 {
		t.Errorf("ProfitMargin = %v, expected %v", year.ProfitMargin, netProfit/revenue*100)
	}
	if len(year.Months) != 12 {
		t.Errorf("expected 12 months retained, got %d", len(year.Months))
	}
}

func TestAggregateByYearSpansYears(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	params := sampleParams()
	params.StartDate = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	params.Months = 18

	result, err := engine.Run(sampleSegments(), params)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	years, err := AggregateByYear(result.Monthly)
	if err != nil {
		t.Fatalf("AggregateByYear() error = %v", err)
	}

	expected := []struct {
		year   int
		months int
	}{
		{2025, 6},
		{2026, 12},
	}
	if len(years) != len(expected) {
		t.Fatalf("expected %d years, got %d", len(expected), len(years))
	}
	for i, want := range expected {
		if years[i].Year != want.year || len(years[i].Months) != want.months {
			t.Errorf("year %d = %d with %d months, expected %d with %d", i, years[i].Year, len(years[i].Months), want.year, want.months)
		}
	}

	var total float64
	for _, year := range years {
		total += year.Revenue
	}
	if math.Abs(total-result.Monthly[len(result.Monthly)-1].CumulativeRevenue) > 1e-3 {
		t.Errorf("yearly revenue %v does not match cumulative %v", total, result.Monthly[len(result.Monthly)-1].CumulativeRevenue)
	}
}

func TestAggregateByYearLabels(t *testing.T) {
	tests := []struct {
		name    string
		monthly []MonthRecord
		years   []int
		wantErr bool
	}{
		{
			name:    "Year first labels",
			monthly: []MonthRecord{{Month: "2026 Jan", Revenue: 1}, {Month: "2025 Dec", Revenue: 1}},
			years:   []int{2025, 2026},
		},
		{
			name:    "Month first labels",
			monthly: []MonthRecord{{Month: "Dec 2025", Revenue: 1}, {Month: "Jan 2026", Revenue: 1}},
			years:   []int{2025, 2026},
		},
		{
			name:    "Ordinal labels fall back to projection years",
			monthly: []MonthRecord{{Index: 0, Month: "Month 1"}, {Index: 11, Month: "Month 12"}, {Index: 12, Month: "Month 13"}},
			years:   []int{1, 2},
		},
		{
			name:    "Unparseable label",
			monthly: []MonthRecord{{Month: "sometime"}},
			wantErr: true,
		},
		{
			name:    "Empty input",
			monthly: nil,
			years:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			years, err := AggregateByYear(tt.monthly)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseableLabel) {
					t.Fatalf("expected ErrUnparseableLabel, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AggregateByYear() error = %v", err)
			}
			if len(years) != len(tt.years) {
				t.Fatalf("got %d years, expected %d", len(years), len(tt.years))
			}
			for i, year := range tt.years {
				if years[i].Year != year {
					t.Errorf("year %d = %d, expected %d", i, years[i].Year, year)
				}
			}
		})
	}
}

func TestAggregateByYearZeroRevenue(t *testing.T) {
	years, err := AggregateByYear([]MonthRecord{{Month: "2025 Jan", Revenue: 0, NetProfit: -100}})
	if err != nil {
		t.Fatalf("AggregateByYear() error = %v", err)
	}
	if years[0].ProfitMargin != 0 {
		t.Errorf("ProfitMargin = %v, expected 0", years[0].ProfitMargin)
	}
}

func TestExpandToDaily(t *testing.T) {
	month := MonthRecord{Month: "2025 Jan", Revenue: 30000, COGS: 12000, OperatingExpenses: 3000, NetProfit: 15000, Volume: 6000}

	days := ExpandToDaily(month)
	if len(days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(days))
	}
	for i, day := range days {
		if day.Day != i+1 {
			t.Errorf("day %d numbered %d", i, day.Day)
		}
		if day.Revenue != 1000 || day.COGS != 400 || day.OperatingExpenses != 100 || day.Volume != 200 {
			t.Errorf("day %d = %+v", i, day)
		}
		if day.NetProfit != 500 {
			t.Errorf("day %d net profit = %v, expected 500", i, day.NetProfit)
		}
		if day.ProfitMargin != 50 {
			t.Errorf("day %d margin = %v, expected 50", i, day.ProfitMargin)
		}
	}
	if days[0].Label != "Day 1" || days[29].Label != "Day 30" {
		t.Errorf("unexpected labels %q, %q", days[0].Label, days[29].Label)
	}

	zero := ExpandToDaily(MonthRecord{OperatingExpenses: 300})
	if zero[0].ProfitMargin != 0 {
		t.Errorf("zero revenue day margin = %v, expected 0", zero[0].ProfitMargin)
	}
}

func TestSlicePeriod(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	params := sampleParams()
	params.Months = 36

	result, err := engine.Run(sampleSegments(), params)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tests := []struct {
		period  Period
		monthly int
		daily   int
	}{
		{PeriodOneMonth, 0, 30},
		{PeriodOneYear, 12, 0},
		{PeriodTwoYears, 24, 0},
		{PeriodFiveYears, 36, 0},
		{PeriodTenYears, 36, 0},
		{PeriodAll, 36, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			view, err := SlicePeriod(result, tt.period)
			if err != nil {
				t.Fatalf("SlicePeriod() error = %v", err)
			}
			if len(view.Monthly) != tt.monthly || len(view.Daily) != tt.daily {
				t.Errorf("SlicePeriod(%s) = %d months, %d days; expected %d, %d",
					tt.period, len(view.Monthly), len(view.Daily), tt.monthly, tt.daily)
			}
		})
	}

	if _, err := SlicePeriod(result, Period("3Q")); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input    string
		expected Period
		wantErr  bool
	}{
		{"1m", PeriodOneMonth, false},
		{" 10y ", PeriodTenYears, false},
		{"", PeriodAll, false},
		{"all", PeriodAll, false},
		{"3Y", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.input)
		if (err != nil) != tt.wantErr || got != tt.expected {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestSegmentBreakdownAndModelTotal(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	segments := sampleSegments()
	params := Parameters{Months: 12, Seasonality: SeasonalityNone}

	result, err := engine.Run(segments, params)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	breakdown := SegmentBreakdown(result)
	if len(breakdown) != len(segments) {
		t.Fatalf("expected %d segment totals, got %d", len(segments), len(breakdown))
	}
	var share, revenue float64
	for i, total := range breakdown {
		if i > 0 && total.Revenue > breakdown[i-1].Revenue {
			t.Errorf("breakdown not sorted by revenue at %d", i)
		}
		share += total.RevenueShare
		revenue += total.Revenue
	}
	if math.Abs(share-100) > 1e-9 {
		t.Errorf("revenue shares sum to %v, expected 100", share)
	}

	modelTotal := ModelTotalRevenue(segments, params.Months)
	if !withinRelative(modelTotal, result.Totals().TotalRevenue, 1e-9) {
		t.Errorf("ModelTotalRevenue() = %v, expected %v", modelTotal, result.Totals().TotalRevenue)
	}
	if !withinRelative(revenue, result.Totals().TotalRevenue, 1e-9) {
		t.Errorf("breakdown revenue %v, expected %v", revenue, result.Totals().TotalRevenue)
	}
}

func withinRelative(a, b, rel float64) bool {
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}

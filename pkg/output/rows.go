// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"fmt"

	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// Options controls which table is rendered.
type Options struct {
	// Period is monthly, yearly or daily.
	Period string
	// Window limits the rows to a chart period such as 1Y. Empty means ALL.
	Window projection.Period
}

type row struct {
	Label     string
	Revenue   float64
	COGS      float64
	Opex      float64
	NetProfit float64
	Margin    float64
	Volume    float64
}

// rows returns the table rows for the options and the heading of the label
// column.
func rows(result *forecast.Result, opts Options) ([]row, string, error) {
	if result == nil || result.Projection == nil {
		return nil, "", fmt.Errorf("no forecast result to render")
	}

	window := opts.Window
	if window == "" {
		window = projection.PeriodAll
	}
	if opts.Period == constants.PeriodDaily {
		window = projection.PeriodOneMonth
	}

	view, err := projection.SlicePeriod(result.Projection, window)
	if err != nil {
		return nil, "", err
	}

	if len(view.Daily) > 0 {
		out := make([]row, len(view.Daily))
		for i, d := range view.Daily {
			out[i] = row{d.Label, d.Revenue, d.COGS, d.OperatingExpenses, d.NetProfit, d.ProfitMargin, d.Volume}
		}
		return out, "Period", nil
	}

	switch opts.Period {
	case "", constants.PeriodMonthly:
		out := make([]row, len(view.Monthly))
		for i, m := range view.Monthly {
			out[i] = row{m.Month, m.Revenue, m.COGS, m.OperatingExpenses, m.NetProfit, m.ProfitMargin, m.Volume}
		}
		return out, "Period", nil
	case constants.PeriodYearly:
		years, err := projection.AggregateByYear(view.Monthly)
		if err != nil {
			return nil, "", err
		}
		out := make([]row, len(years))
		for i, y := range years {
			out[i] = row{fmt.Sprint(y.Year), y.Revenue, y.COGS, y.OperatingExpenses, y.NetProfit, y.ProfitMargin, y.Volume}
		}
		return out, "Year", nil
	default:
		return nil, "", fmt.Errorf("unsupported output period %q", opts.Period)
	}
}

package output

import (
	"io"

	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/datetime"
	"github.com/iwvelando/revenue-forecast/pkg/format"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Pretty writes a human-readable rather than machine-readable report: the
// period table, scenario comparison and segment breakdown.
func Pretty(w io.Writer, result *forecast.Result, opts Options) error {
	table, heading, err := rows(result, opts)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	params := result.Parameters

	p.Fprintf(w, "--- Revenue forecast for %s ---\n", result.Name)
	if params.StartDate.IsZero() {
		p.Fprintf(w, "Horizon: %d months", params.Months)
	} else {
		p.Fprintf(w, "Horizon: %s to %s (%d months)", params.StartDate.Format(datetime.DateTimeLayout),
			datetime.EndMonth(params.StartDate, params.Months), params.Months)
	}
	p.Fprintf(w, " | Seasonality: %s | Opex: %s | USD rate: %.2f\n\n", params.Seasonality, params.OperatingExpense.Type, result.ExchangeRate)

	p.Fprintf(w, "%-10s | %22s | %22s | %22s | %22s | %8s | %18s\n", heading, "Revenue", "COGS", "Opex", "Net Profit", "Margin", "Volume")
	p.Fprintf(w, "%-10s | %22s | %22s | %22s | %22s | %8s | %18s\n", "______", "_______", "____", "____", "__________", "______", "______")
	for _, r := range table {
		p.Fprintf(w, "%-10s | %22s | %22s | %22s | %22s | %8s | %18.0f\n",
			r.Label, format.INR(r.Revenue), format.INR(r.COGS), format.INR(r.Opex), format.INR(r.NetProfit), format.Percent(r.Margin), r.Volume)
	}

	s := result.Summary
	p.Fprintf(w, "\nTotal revenue %s (%s), net profit %s (%s), margin %s\n",
		format.INR(s.TotalRevenue), format.USD(format.Convert(s.TotalRevenue, result.ExchangeRate)),
		format.INR(s.NetProfit), format.USD(format.Convert(s.NetProfit, result.ExchangeRate)),
		format.Percent(s.ProfitMargin))

	if len(result.Scenarios) > 0 {
		writeScenarios(p, w, result)
	}
	if len(result.Breakdown) > 0 {
		writeBreakdown(p, w, result.Breakdown)
	}
	if len(result.Optimizations) > 0 {
		p.Fprintf(w, "\n--- Optimizer results ---\n")
		for _, o := range result.Optimizations {
			p.Fprintf(w, "%s: %s multiplier %.4f (converged: %t, iterations: %d)\n", o.TargetName, o.Field, o.Value, o.Converged, o.Iterations)
			for _, note := range o.Notes {
				p.Fprintf(w, "  note: %s\n", note)
			}
		}
	}
	if len(result.Warnings) > 0 {
		p.Fprintf(w, "\n--- Warnings ---\n")
		for _, warning := range result.Warnings {
			p.Fprintf(w, "- %s\n", warning)
		}
	}
	return nil
}

func writeScenarios(p *message.Printer, w io.Writer, result *forecast.Result) {
	base, hasBase := result.Scenario(projection.ScenarioBaseCase)

	p.Fprintf(w, "\n--- Scenario comparison ---\n")
	p.Fprintf(w, "%-16s | %22s | %22s | %8s | %10s\n", "Scenario", "Revenue", "Net Profit", "Margin", "vs Base")
	for _, sr := range result.Scenarios {
		delta := "-"
		if hasBase && base.Summary.TotalRevenue != 0 {
			delta = format.Percent((sr.Summary.TotalRevenue - base.Summary.TotalRevenue) / base.Summary.TotalRevenue * 100)
		}
		p.Fprintf(w, "%-16s | %22s | %22s | %8s | %10s\n",
			sr.Scenario.Name, format.INR(sr.Summary.TotalRevenue), format.INR(sr.Summary.NetProfit), format.Percent(sr.Summary.ProfitMargin), delta)
	}
}

func writeBreakdown(p *message.Printer, w io.Writer, breakdown []projection.SegmentTotal) {
	p.Fprintf(w, "\n--- Segment breakdown ---\n")
	p.Fprintf(w, "%-32s | %14s | %14s | %8s | %8s\n", "Segment", "Revenue", "Profit", "Margin", "Share")
	for _, total := range breakdown {
		p.Fprintf(w, "%-32s | %14s | %14s | %8s | %8s\n",
			total.Name, format.Compact(total.Revenue), format.Compact(total.Profit), format.Percent(total.Margin), format.Percent(total.RevenueShare))
	}
}

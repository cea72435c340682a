// Package projection implements the revenue projection engine: seasonality,
// per-segment projection, operating expenses, consolidated monthly series,
// scenario re-runs and period roll-ups. Everything here is pure computation.
package projection

import (
	"fmt"
	"time"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// Engine runs projections. It holds no state between calls and is safe for
// concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a projection engine with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run projects every segment over params.Months and consolidates the result.
func (e *Engine) Run(segments []Segment, params Parameters) (*Projection, error) {
	return e.run(segments, params, 1)
}

// run is the single projection algorithm. opexScale multiplies the
// operating expense of each month and is 1 outside scenario runs.
func (e *Engine) run(segments []Segment, params Parameters, opexScale float64) (*Projection, error) {
	if len(segments) == 0 {
		return nil, ErrEmptySegmentSet
	}
	if params.Months <= 0 {
		return nil, &ParameterError{Field: "months", Value: params.Months, Err: ErrInvalidMonths}
	}

	keys := segmentKeys(segments)
	result := &Projection{
		Monthly:      make([]MonthRecord, 0, params.Months),
		PerSegment:   make(map[string][]SegmentMonth, len(segments)),
		SegmentOrder: keys,
	}
	for _, key := range keys {
		result.PerSegment[key] = make([]SegmentMonth, 0, params.Months)
	}

	cumulativeRevenue := 0.0
	for i := 0; i < params.Months; i++ {
		label := MonthLabel(params.StartDate, i)
		seasonal := SeasonalityMultiplier(i, params.Seasonality)

		var totalRevenue, totalCost, totalVolume float64
		for j, segment := range segments {
			record := ProjectSegment(segment, i, seasonal)
			record.Month = label
			result.PerSegment[keys[j]] = append(result.PerSegment[keys[j]], record)

			totalRevenue += record.Revenue
			totalCost += record.Cost
			totalVolume += record.Volume
		}

		opex := params.OperatingExpense.Compute(totalRevenue) * opexScale
		grossProfit := totalRevenue - totalCost
		netProfit := grossProfit - opex
		cumulativeRevenue += totalRevenue

		result.Monthly = append(result.Monthly, MonthRecord{
			Index:             i,
			Month:             label,
			Revenue:           totalRevenue,
			COGS:              totalCost,
			GrossProfit:       grossProfit,
			OperatingExpenses: opex,
			NetProfit:         netProfit,
			ProfitMargin:      mathutil.Margin(netProfit, totalRevenue),
			Volume:            totalVolume,
			CumulativeRevenue: cumulativeRevenue,
		})
	}

	e.logger.Debug("projection computed",
		zap.String("op", "projection.Run"),
		zap.Int("segments", len(segments)),
		zap.Int("months", params.Months),
		zap.String("seasonality", string(params.Seasonality)),
		zap.String("opexType", string(params.OperatingExpense.Type)),
		zap.Float64("cumulativeRevenue", cumulativeRevenue),
	)

	return result, nil
}

// Totals sums the consolidated series.
func (p *Projection) Totals() Summary {
	var s Summary
	if p == nil {
		return s
	}
	for _, month := range p.Monthly {
		s.TotalRevenue += month.Revenue
		s.TotalCosts += month.COGS
		s.TotalOperatingExpenses += month.OperatingExpenses
		s.NetProfit += month.NetProfit
		s.TotalVolume += month.Volume
	}
	s.ProfitMargin = mathutil.Margin(s.NetProfit, s.TotalRevenue)
	return s
}

// MonthLabel returns the label of month i relative to start, e.g. "2025 Jan".
// Only the year and month of start count. A zero start yields "Month 1", "Month 2", ...
func MonthLabel(start time.Time, i int) string {
	if start.IsZero() {
		return fmt.Sprintf("%s%d", monthLabelPrefix, i+1)
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	return first.AddDate(0, i, 0).Format(constants.MonthLabelLayout)
}

const monthLabelPrefix = "Month "

// segmentKeys returns per-segment series keys in input order. Names are used
// as keys; a repeated name gets a numeric suffix so no series is overwritten.
func segmentKeys(segments []Segment) []string {
	keys := make([]string, len(segments))
	taken := make(map[string]struct{}, len(segments))
	for i, segment := range segments {
		key := segment.Name
		for n := 2; ; n++ {
			if _, exists := taken[key]; !exists {
				break
			}
			key = fmt.Sprintf("%s (%d)", segment.Name, n)
		}
		taken[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

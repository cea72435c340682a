package projection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/mathutil"
)

// Period is a chart window over a projection.
type Period string

// Supported periods.
const (
	PeriodOneMonth  Period = "1M"
	PeriodOneYear   Period = "1Y"
	PeriodTwoYears  Period = "2Y"
	PeriodFiveYears Period = "5Y"
	PeriodTenYears  Period = "10Y"
	PeriodAll       Period = "ALL"
)

// periodMonthsNone marks a period without a month limit.
const periodMonthsNone = -1

var periodMonths = map[Period]int{
	PeriodOneYear:   12,
	PeriodTwoYears:  24,
	PeriodFiveYears: 60,
	PeriodTenYears:  120,
	PeriodAll:       periodMonthsNone,
}

// ParsePeriod canonicalises a period such as "1y" or "10Y". Empty means ALL.
func ParsePeriod(value string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(value)))
	if p == "" {
		return PeriodAll, nil
	}
	if p == PeriodOneMonth {
		return p, nil
	}
	if _, ok := periodMonths[p]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPeriod, value)
}

// PeriodView is the slice of a projection selected by a Period. Exactly one
// of Monthly or Daily is populated.
type PeriodView struct {
	Period  Period        `json:"period"`
	Monthly []MonthRecord `json:"monthly,omitempty"`
	Daily   []DayRecord   `json:"daily,omitempty"`
}

// SlicePeriod selects the records charted for a period. 1M expands the first
// month into days; the yearly periods take the leading months, clamped to
// what the projection holds.
func SlicePeriod(p *Projection, period Period) (PeriodView, error) {
	view := PeriodView{Period: period}
	if p == nil || len(p.Monthly) == 0 {
		return view, nil
	}

	if period == PeriodOneMonth {
		view.Daily = ExpandToDaily(p.Monthly[0])
		return view, nil
	}

	months, ok := periodMonths[period]
	if !ok {
		return view, fmt.Errorf("%w: %s", ErrUnknownPeriod, period)
	}
	if months == periodMonthsNone || months > len(p.Monthly) {
		months = len(p.Monthly)
	}
	view.Monthly = p.Monthly[:months:months]
	return view, nil
}

// SegmentTotal is one segment's totals over a projection.
type SegmentTotal struct {
	Name         string  `json:"name"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
	Volume       float64 `json:"volume"`
	RevenueShare float64 `json:"revenueShare"`
}

// SegmentBreakdown totals each segment's series, largest revenue first.
func SegmentBreakdown(p *Projection) []SegmentTotal {
	if p == nil {
		return nil
	}

	totals := make([]SegmentTotal, 0, len(p.SegmentOrder))
	grandRevenue := 0.0
	for _, name := range p.SegmentOrder {
		total := SegmentTotal{Name: name}
		for _, month := range p.PerSegment[name] {
			total.Revenue += month.Revenue
			total.Cost += month.Cost
			total.Profit += month.Profit
			total.Volume += month.Volume
		}
		total.Margin = mathutil.Margin(total.Profit, total.Revenue)
		grandRevenue += total.Revenue
		totals = append(totals, total)
	}

	for i := range totals {
		totals[i].RevenueShare = mathutil.CalculatePercentage(totals[i].Revenue, grandRevenue)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Revenue > totals[j].Revenue
	})
	return totals
}

// ModelTotalRevenue is the baseline revenue of a segment set over a horizon,
// compounding growth without any seasonality. Used for saved-model listings.
func ModelTotalRevenue(segments []Segment, months int) float64 {
	total := 0.0
	for _, segment := range segments {
		for i := 0; i < months; i++ {
			total += mathutil.Compound(segment.MonthlyVolume, segment.VolumeGrowth, i) * segment.PricePerTransaction
		}
	}
	return total
}

package projection

import (
	"math"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/mathutil"
)

// ProjectSegment computes one segment's figures for a month. Growth is
// compounded from month 0 before the seasonality overlay is applied.
// Growth below -100% is not guarded here and can produce NaN.
func ProjectSegment(segment Segment, monthIndex int, seasonality float64) SegmentMonth {
	rate := segment.VolumeGrowth / constants.PercentageMultiplier
	volume := segment.MonthlyVolume * math.Pow(1+rate, float64(monthIndex)) * seasonality
	revenue := volume * segment.PricePerTransaction
	cost := volume * segment.CostPerTransaction
	profit := revenue - cost

	return SegmentMonth{
		Index:   monthIndex,
		Volume:  volume,
		Revenue: revenue,
		Cost:    cost,
		Profit:  profit,
		Margin:  mathutil.Margin(profit, revenue),
	}
}

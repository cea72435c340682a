package projection

import "github.com/iwvelando/revenue-forecast/pkg/constants"

const (
	seasonalPeak     = 1.2
	festivalLean     = 0.8
	summerWinterDip  = 0.9
	seasonalBaseline = 1.0
)

// SeasonalityMultiplier maps a month index to the profile's volume multiplier.
// Month index 0 is treated as January. Unknown profiles behave like none.
func SeasonalityMultiplier(monthIndex int, profile SeasonalityProfile) float64 {
	month := monthIndex % constants.MonthsPerYear
	if month < 0 {
		month += constants.MonthsPerYear
	}

	switch profile {
	case SeasonalityFestival:
		// Oct-Dec festive peak, Feb-Apr lean months.
		switch month {
		case 9, 10, 11:
			return seasonalPeak
		case 1, 2, 3:
			return festivalLean
		}
	case SeasonalitySummer:
		// Jun-Aug peak, Dec-Feb winter dip.
		switch month {
		case 5, 6, 7:
			return seasonalPeak
		case 11, 0, 1:
			return summerWinterDip
		}
	}
	return seasonalBaseline
}

package projection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/mathutil"
)

// YearRecord is a yearly roll-up of monthly records.
type YearRecord struct {
	Year              int           `json:"year"`
	Revenue           float64       `json:"revenue"`
	COGS              float64       `json:"cogs"`
	NetProfit         float64       `json:"netProfit"`
	OperatingExpenses float64       `json:"operatingExpenses"`
	Volume            float64       `json:"volume"`
	ProfitMargin      float64       `json:"profitMargin"`
	Months            []MonthRecord `json:"months"`
}

// DayRecord is a synthetic daily slice of a month.
type DayRecord struct {
	Day               int     `json:"day"`
	Label             string  `json:"label"`
	Revenue           float64 `json:"revenue"`
	COGS              float64 `json:"cogs"`
	OperatingExpenses float64 `json:"operatingExpenses"`
	NetProfit         float64 `json:"netProfit"`
	ProfitMargin      float64 `json:"profitMargin"`
	Volume            float64 `json:"volume"`
}

// AggregateByYear groups monthly records by calendar year, summing flows and
// recomputing the margin from the sums. Years are returned in ascending
// order. Records labelled "Month N" are grouped as projection years 1, 2, ...
func AggregateByYear(monthly []MonthRecord) ([]YearRecord, error) {
	byYear := make(map[int]*YearRecord)
	for _, month := range monthly {
		year, ok := ParseLabelYear(month.Month)
		if !ok {
			if !strings.HasPrefix(month.Month, monthLabelPrefix) {
				return nil, fmt.Errorf("month %q: %w", month.Month, ErrUnparseableLabel)
			}
			year = month.Index/constants.MonthsPerYear + 1
		}

		record, exists := byYear[year]
		if !exists {
			record = &YearRecord{Year: year}
			byYear[year] = record
		}
		record.Revenue += month.Revenue
		record.COGS += month.COGS
		record.NetProfit += month.NetProfit
		record.OperatingExpenses += month.OperatingExpenses
		record.Volume += month.Volume
		record.Months = append(record.Months, month)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	result := make([]YearRecord, 0, len(years))
	for _, year := range years {
		record := byYear[year]
		record.ProfitMargin = mathutil.Margin(record.NetProfit, record.Revenue)
		result = append(result, *record)
	}
	return result, nil
}

// ParseLabelYear extracts the year from a "2025 Jan" or "Jan 2025" label.
func ParseLabelYear(label string) (int, bool) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, false
	}
	for _, candidate := range []string{fields[0], fields[len(fields)-1]} {
		if len(candidate) != 4 {
			continue
		}
		if year, err := strconv.Atoi(candidate); err == nil {
			return year, true
		}
	}
	return 0, false
}

// ExpandToDaily splits a month evenly into DaysPerMonth synthetic days.
func ExpandToDaily(month MonthRecord) []DayRecord {
	const days = constants.DaysPerMonth
	revenue := month.Revenue / days
	cogs := month.COGS / days
	opex := month.OperatingExpenses / days
	volume := month.Volume / days
	netProfit := revenue - cogs - opex
	margin := mathutil.Margin(netProfit, revenue)

	daily := make([]DayRecord, 0, days)
	for day := 1; day <= days; day++ {
		daily = append(daily, DayRecord{
			Day:               day,
			Label:             fmt.Sprintf("Day %d", day),
			Revenue:           revenue,
			COGS:              cogs,
			OperatingExpenses: opex,
			NetProfit:         netProfit,
			ProfitMargin:      margin,
			Volume:            volume,
		})
	}
	return daily
}

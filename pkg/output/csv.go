package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/format"
)

// CSV writes the period table with INR and USD columns.
func CSV(w io.Writer, result *forecast.Result, opts Options) error {
	table, heading, err := rows(result, opts)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{heading, "Revenue (INR)", "Revenue (USD)", "COGS (INR)", "COGS (USD)",
		"Net Profit (INR)", "Net Profit (USD)", "Transaction Volume", "Profit Margin (%)"}
	if err := writer.Write(header); err != nil {
		return err
	}

	rate := result.ExchangeRate
	for _, r := range table {
		record := []string{
			r.Label,
			format.INR(r.Revenue),
			format.USD(format.Convert(r.Revenue, rate)),
			format.INR(r.COGS),
			format.USD(format.Convert(r.COGS, rate)),
			format.INR(r.NetProfit),
			format.USD(format.Convert(r.NetProfit, rate)),
			strconv.FormatFloat(r.Volume, 'f', 0, 64),
			strconv.FormatFloat(r.Margin, 'f', 1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CSVString renders CSV to a string.
func CSVString(result *forecast.Result, opts Options) (string, error) {
	var b strings.Builder
	if err := CSV(&b, result, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

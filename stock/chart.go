package stock

import (
	"encoding/json"
	"fmt"
	"strings"

	"bitwise74/labyrinth-api/model"
)

// ChartData reshapes the series into one line chart with a label per symbol
func ChartData(series []model.StockSeries, interval string) model.StockChartData {
	symbols := make([]string, len(series))
	elements := make([]model.StockChartElement, len(series))

	for i, s := range series {
		symbols[i] = s.Symbol

		points := make([]model.ChartPoint, len(s.Prices))
		for j, bar := range s.Prices {
			points[j] = model.ChartPoint{Date: bar.Date, Close: bar.Close}
		}

		elements[i] = model.StockChartElement{Label: s.Symbol, Points: points}
	}

	title := "Stock Price: "
	if len(symbols) > 1 {
		title = "Stock Price Comparison: "
	}

	return model.StockChartData{
		Title:        title + strings.Join(symbols, ", "),
		StockSymbols: symbols,
		Interval:     interval,
		Chart: model.StockChart{
			Type:     "line",
			XLabel:   "Date",
			YLabel:   "Price",
			XScale:   "time",
			Elements: elements,
		},
	}
}

func signedDollars(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}

	return fmt.Sprintf("+$%.2f", v)
}

func signedPercent(v float64) string {
	if v < 0 {
		return fmt.Sprintf("%.2f%%", v)
	}

	return fmt.Sprintf("+%.2f%%", v)
}

// Summary renders a markdown overview with the day change against the
// previous close and the change over the whole interval
func Summary(series []model.StockSeries, interval string) string {
	symbols := make([]string, len(series))
	for i, s := range series {
		symbols[i] = s.Symbol
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Stock Data for %s\n\n", strings.Join(symbols, ", "))

	for _, s := range series {
		name := s.Name
		if name == "" {
			name = s.Symbol
		}

		fmt.Fprintf(&b, "## %s (%s)\n", name, s.Symbol)

		if s.CurrentPrice != nil && s.PreviousClose != nil && *s.PreviousClose != 0 {
			change := *s.CurrentPrice - *s.PreviousClose

			fmt.Fprintf(&b, "Current Price: $%.2f\n", *s.CurrentPrice)
			fmt.Fprintf(&b, "Previous Close: $%.2f\n", *s.PreviousClose)
			fmt.Fprintf(&b, "Change: %s (%s)\n", signedDollars(change), signedPercent(change / *s.PreviousClose * 100))
		} else {
			b.WriteString("Price data unavailable for this stock.\n")
		}

		if n := len(s.Prices); n > 0 {
			first, last := s.Prices[0].Close, s.Prices[n-1].Close

			if first != 0 {
				change := last - first
				fmt.Fprintf(&b, "%s Change: %s (%s)\n\n", IntervalName(interval), signedDollars(change), signedPercent(change/first*100))
			} else {
				b.WriteString("Historical price data unavailable for this period.\n\n")
			}
		}
	}

	return b.String()
}

func formatContent(summary string, data model.StockChartData) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}

	return summary + "\n\n```json\n" + string(raw) + "\n```", nil
}

package stock

import (
	"slices"
	"time"
)

const DefaultInterval = "1mo"

var intervals = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

var intervalNames = map[string]string{
	"1d":  "1 Day",
	"5d":  "5 Day",
	"1mo": "1 Month",
	"3mo": "3 Month",
	"6mo": "6 Month",
	"1y":  "1 Year",
	"2y":  "2 Year",
	"5y":  "5 Year",
	"10y": "10 Year",
	"ytd": "Year to Date",
	"max": "Maximum",
}

// Window is a polygon aggregates range
type Window struct {
	Multiplier int
	Timespan   string
	From       string
	To         string
}

func ValidInterval(i string) bool {
	return slices.Contains(intervals, i)
}

// IntervalName is the human readable label used in summaries
func IntervalName(i string) string {
	if n, ok := intervalNames[i]; ok {
		return n
	}

	return i
}

// MapInterval translates an interval token into bar size and lookback
// relative to now. Unknown tokens get the one month default.
func MapInterval(interval string, now time.Time) Window {
	now = now.UTC()
	from := now
	timespan := "day"

	switch interval {
	case "1d":
		from, timespan = now.AddDate(0, 0, -1), "hour"
	case "5d":
		from, timespan = now.AddDate(0, 0, -5), "hour"
	case "3mo":
		from = now.AddDate(0, -3, 0)
	case "6mo":
		from = now.AddDate(0, -6, 0)
	case "1y":
		from = now.AddDate(-1, 0, 0)
	case "2y":
		from, timespan = now.AddDate(-2, 0, 0), "week"
	case "5y":
		from, timespan = now.AddDate(-5, 0, 0), "week"
	case "10y":
		from, timespan = now.AddDate(-10, 0, 0), "month"
	case "ytd":
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case "max":
		from, timespan = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), "month"
	default:
		from = now.AddDate(0, -1, 0)
	}

	return Window{
		Multiplier: 1,
		Timespan:   timespan,
		From:       from.Format(time.DateOnly),
		To:         now.Format(time.DateOnly),
	}
}

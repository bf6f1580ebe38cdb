package stock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapInterval(t *testing.T) {
	now := time.Date(2025, 5, 15, 18, 30, 0, 0, time.UTC)

	cases := map[string]Window{
		"1d":    {1, "hour", "2025-05-14", "2025-05-15"},
		"5d":    {1, "hour", "2025-05-10", "2025-05-15"},
		"1mo":   {1, "day", "2025-04-15", "2025-05-15"},
		"3mo":   {1, "day", "2025-02-15", "2025-05-15"},
		"6mo":   {1, "day", "2024-11-15", "2025-05-15"},
		"1y":    {1, "day", "2024-05-15", "2025-05-15"},
		"2y":    {1, "week", "2023-05-15", "2025-05-15"},
		"5y":    {1, "week", "2020-05-15", "2025-05-15"},
		"10y":   {1, "month", "2015-05-15", "2025-05-15"},
		"ytd":   {1, "day", "2025-01-01", "2025-05-15"},
		"max":   {1, "month", "2000-01-01", "2025-05-15"},
		"bogus": {1, "day", "2025-04-15", "2025-05-15"},
	}

	for interval, want := range cases {
		t.Run(interval, func(t *testing.T) {
			assert.Equal(t, want, MapInterval(interval, now))
		})
	}

	assert.True(t, ValidInterval("ytd"))
	assert.False(t, ValidInterval("bogus"))
}

// fakePolygon knows AAPL and MSFT, everything else is a 404
func fakePolygon(t *testing.T, detailCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	known := map[string]string{"AAPL": "Apple Inc.", "MSFT": "Microsoft Corp"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

		switch {
		case strings.HasPrefix(r.URL.Path, "/v3/reference/tickers/"):
			detailCalls.Add(1)
			name, ok := known[parts[3]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`{"results": {"name": "` + name + `"}}`))

		case strings.HasSuffix(r.URL.Path, "/prev"):
			if parts[3] == "MSFT" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"results": [{"c": 100}]}`))

		case strings.HasPrefix(r.URL.Path, "/v2/aggs/ticker/"):
			if _, ok := known[parts[3]]; !ok {
				http.NotFound(w, r)
				return
			}
			assert.Equal(t, "asc", r.URL.Query().Get("sort"))
			w.Write([]byte(`{"results": [
				{"t": 1735689600000, "o": 90, "h": 95, "l": 89, "c": 90, "v": 1000},
				{"t": 1735776000000, "o": 101, "h": 111, "l": 100, "c": 110, "v": 2000}
			]}`))

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestService(t *testing.T, calls *atomic.Int32) *Service {
	srv := fakePolygon(t, calls)

	s := New(config.Stock{PolygonKey: "test-key"}, WithPolygon(NewPolygon("test-key", srv.URL, srv.Client())))
	s.now = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSeries(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, &calls)

	series, err := s.Series(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", series.Name)
	assert.Equal(t, "USD", series.Currency)
	require.Len(t, series.Prices, 2)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", series.Prices[0].Date)
	assert.Equal(t, 110.0, *series.CurrentPrice)
	assert.Equal(t, 100.0, *series.PreviousClose)
	assert.Equal(t, 111.0, *series.DayHigh)

	_, err = s.Series(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "ticker names are cached")

	_, err = s.Series(context.Background(), "NOPE", "1mo")
	assert.True(t, IsNotFound(err))
}

func TestChart_DropsFailedSymbols(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, &calls)

	res := s.Chart(context.Background(), []string{"AAPL", "NOPE", "MSFT"}, "1mo")
	require.NotNil(t, res.UI)

	data := res.UI.Data
	assert.Equal(t, "StockChart", res.UI.Type)
	assert.Equal(t, []string{"AAPL", "MSFT"}, data.StockSymbols)
	assert.Equal(t, "Stock Price Comparison: AAPL, MSFT", data.Title)
	require.Len(t, data.Chart.Elements, 2)
	assert.Equal(t, model.ChartPoint{Date: "2025-01-02T00:00:00.000Z", Close: 110}, data.Chart.Elements[0].Points[1])

	assert.Contains(t, res.Content, "## Apple Inc. (AAPL)\nCurrent Price: $110.00\nPrevious Close: $100.00\nChange: +$10.00 (+10.00%)\n1 Month Change: +$20.00 (+22.22%)")
	assert.Contains(t, res.Content, "## Microsoft Corp (MSFT)\nPrice data unavailable for this stock.")
	assert.Contains(t, res.Content, "```json\n{\n  \"title\": \"Stock Price Comparison: AAPL, MSFT\"")
}

func TestChart_NothingValid(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, &calls)

	res := s.Chart(context.Background(), []string{"NOPE"}, "1mo")
	assert.Nil(t, res.UI)
	assert.Equal(t, "No valid stock data found for the requested symbol(s): NOPE. Please check the symbol and try again.", res.Content)
}

func TestChart_NoKey(t *testing.T) {
	s := New(config.Stock{})
	defer s.Close()

	res := s.Chart(context.Background(), []string{"AAPL"}, "1mo")
	assert.Nil(t, res.UI)
	assert.Equal(t, "Failed to get stock data: polygon API key is not configured", res.Content)
}

func TestSummary_NegativeChange(t *testing.T) {
	cur, prev := 95.0, 100.0
	out := Summary([]model.StockSeries{{
		Symbol:        "X",
		CurrentPrice:  &cur,
		PreviousClose: &prev,
		Prices:        []model.PriceBar{{Close: 100}, {Close: 95}},
	}}, "ytd")

	assert.Contains(t, out, "## X (X)\n")
	assert.Contains(t, out, "Change: -$5.00 (-5.00%)\n")
	assert.Contains(t, out, "Year to Date Change: -$5.00 (-5.00%)\n\n")
}

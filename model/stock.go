package model

import (
	"encoding/json"
	"fmt"
)

type StockSeries struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Currency      string     `json:"currency"`
	CurrentPrice  *float64   `json:"current_price"`
	PreviousClose *float64   `json:"previous_close"`
	Open          *float64   `json:"open"`
	DayHigh       *float64   `json:"day_high"`
	DayLow        *float64   `json:"day_low"`
	Prices        []PriceBar `json:"prices"`
}

type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type StockChart struct {
	Type     string              `json:"type"`
	XLabel   string              `json:"x_label"`
	YLabel   string              `json:"y_label"`
	XScale   string              `json:"x_scale"`
	Elements []StockChartElement `json:"elements"`
}

type StockChartElement struct {
	Label  string       `json:"label"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint serializes as a [date, close] pair
type ChartPoint struct {
	Date  string
	Close float64
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Date, p.Close})
}

func (p *ChartPoint) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("chart point must be a pair, got %d values", len(pair))
	}

	if err := json.Unmarshal(pair[0], &p.Date); err != nil {
		return err
	}

	return json.Unmarshal(pair[1], &p.Close)
}

type StockChartData struct {
	Title        string     `json:"title"`
	StockSymbols []string   `json:"stock_symbols"`
	Interval     string     `json:"interval"`
	Chart        StockChart `json:"chart"`
}

type StockUI struct {
	Type string         `json:"type"`
	Data StockChartData `json:"data"`
}

// StockResult is what the stock tool hands back: always a text content,
// the UI part is nil when nothing could be charted
type StockResult struct {
	Content string   `json:"content"`
	UI      *StockUI `json:"ui"`
}

package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bitwise74/labyrinth-api/model"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var ErrNoAPIKey = errors.New("polygon API key is not configured")

// StatusError is a non 2xx answer from polygon
type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("polygon %s returned %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Polygon is a minimal client for the polygon.io REST API
type Polygon struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewPolygon(key, baseURL string, client *http.Client) *Polygon {
	if baseURL == "" {
		baseURL = "https://api.polygon.io"
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Polygon{key: key, baseURL: baseURL, client: client}
}

func (p *Polygon) get(ctx context.Context, path string, q url.Values, out any) error {
	if p.key == "" {
		return ErrNoAPIKey
	}

	if q == nil {
		q = url.Values{}
	}
	q.Set("apiKey", p.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("polygon request failed, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode polygon response, %w", err)
	}

	return nil
}

// TickerName returns the company name of sym, or sym itself when polygon
// doesn't know a name
func (p *Polygon) TickerName(ctx context.Context, sym string) (string, error) {
	var data struct {
		Results struct {
			Name string `json:"name"`
		} `json:"results"`
	}

	if err := p.get(ctx, "/v3/reference/tickers/"+url.PathEscape(sym), nil, &data); err != nil {
		return "", err
	}

	if data.Results.Name == "" {
		return sym, nil
	}

	return data.Results.Name, nil
}

type aggBar struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// Aggregates returns the bars of sym in w, oldest first
func (p *Polygon) Aggregates(ctx context.Context, sym string, w Window) ([]model.PriceBar, error) {
	var data struct {
		Results []aggBar `json:"results"`
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s", url.PathEscape(sym), w.Multiplier, w.Timespan, w.From, w.To)
	q := url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"5000"}}

	if err := p.get(ctx, path, q, &data); err != nil {
		return nil, err
	}

	bars := make([]model.PriceBar, 0, len(data.Results))
	for _, b := range data.Results {
		bars = append(bars, model.PriceBar{
			Date:   time.UnixMilli(b.T).UTC().Format(isoMillis),
			Open:   b.O,
			High:   b.H,
			Low:    b.L,
			Close:  b.C,
			Volume: b.V,
		})
	}

	return bars, nil
}

// PreviousClose returns nil when polygon has no previous session for sym
func (p *Polygon) PreviousClose(ctx context.Context, sym string) (*float64, error) {
	var data struct {
		Results []aggBar `json:"results"`
	}

	path := "/v2/aggs/ticker/" + url.PathEscape(sym) + "/prev"
	if err := p.get(ctx, path, url.Values{"adjusted": {"true"}}, &data); err != nil {
		return nil, err
	}

	if len(data.Results) == 0 {
		return nil, nil
	}

	c := data.Results[0].C
	return &c, nil
}

// Package stock fetches price series from polygon and shapes them into
// charts and text summaries
package stock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/model"

	"github.com/jellydator/ttlcache/v2"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DisabledMessage = "Stock mode is disabled. Please enable stock mode in the header to use this feature."

type Service struct {
	polygon *Polygon
	names   *ttlcache.Cache
	now     func() time.Time
}

type Option func(*Service)

// WithPolygon swaps the polygon client, used to point at fake servers
func WithPolygon(p *Polygon) Option {
	return func(s *Service) { s.polygon = p }
}

func New(cfg config.Stock, opts ...Option) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	names := ttlcache.NewCache()
	names.SetTTL(ttl)
	names.SkipTTLExtensionOnHit(true)

	s := &Service{
		polygon: NewPolygon(cfg.PolygonKey, "", nil),
		names:   names,
		now:     time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

func (s *Service) Close() error {
	return s.names.Close()
}

func (s *Service) tickerName(ctx context.Context, sym string) (string, error) {
	if v, err := s.names.Get(sym); err == nil {
		return v.(string), nil
	}

	name, err := s.polygon.TickerName(ctx, sym)
	if err != nil {
		return "", err
	}

	_ = s.names.Set(sym, name)
	return name, nil
}

// Series fetches one symbol. Ticker details and bars are required, a
// missing previous close only leaves PreviousClose nil.
func (s *Service) Series(ctx context.Context, sym, interval string) (*model.StockSeries, error) {
	w := MapInterval(interval, s.now())

	var (
		name      string
		bars      []model.PriceBar
		prevClose *float64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		name, err = s.tickerName(gctx, sym)
		return err
	})

	g.Go(func() (err error) {
		bars, err = s.polygon.Aggregates(gctx, sym, w)
		return err
	})

	g.Go(func() error {
		pc, err := s.polygon.PreviousClose(gctx, sym)
		if err != nil {
			zap.L().Debug("Previous close unavailable", zap.String("symbol", sym), zap.Error(err))
			return nil
		}

		prevClose = pc
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := &model.StockSeries{
		Symbol:        sym,
		Name:          name,
		Currency:      "USD",
		PreviousClose: prevClose,
		Prices:        bars,
	}

	if n := len(bars); n > 0 {
		last := bars[n-1]
		series.CurrentPrice = &last.Close
		series.Open = &last.Open
		series.DayHigh = &last.High
		series.DayLow = &last.Low
	}

	return series, nil
}

// IsNotFound reports whether polygon didn't know the symbol
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Chart fetches every symbol concurrently and builds the chart payload
// out of the ones that succeeded. Failures are reported in Content with a
// nil UI.
func (s *Service) Chart(ctx context.Context, symbols []string, interval string) *model.StockResult {
	if s.polygon.key == "" {
		return &model.StockResult{Content: "Failed to get stock data: " + ErrNoAPIKey.Error()}
	}

	all := iter.Map(symbols, func(sym *string) *model.StockSeries {
		series, err := s.Series(ctx, *sym, interval)
		if err != nil {
			zap.L().Warn("Failed to fetch stock data", zap.String("symbol", *sym), zap.Error(err))
			return nil
		}

		return series
	})

	valid := make([]model.StockSeries, 0, len(all))
	for _, series := range all {
		if series != nil {
			valid = append(valid, *series)
		}
	}

	if len(valid) == 0 {
		return &model.StockResult{
			Content: "No valid stock data found for the requested symbol(s): " + strings.Join(symbols, ", ") + ". Please check the symbol and try again.",
		}
	}

	data := ChartData(valid, interval)

	content, err := formatContent(Summary(valid, interval), data)
	if err != nil {
		return &model.StockResult{Content: "Failed to get stock data: " + err.Error()}
	}

	return &model.StockResult{
		Content: content,
		UI: &model.StockUI{
			Type: "StockChart",
			Data: data,
		},
	}
}

// Package market provides market data services
package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	DefaultMaxConcurrency = 4
	DefaultSeriesTTL      = 6 * time.Hour
	DefaultPriceTTL       = time.Minute

	// Windows longer than this are fetched weekly unless an aggregation is requested
	weeklyThresholdDays = 365
)

// Service implements MarketService. Prices are fetched through the cache and
// every failure is reported as absent data.
type Service struct {
	client         interfaces.MarketDataClient
	cache          interfaces.PriceCache
	logger         *common.Logger
	metrics        *metrics.Recorder
	maxConcurrency int
	seriesTTL      time.Duration
	priceTTL       time.Duration
	now            func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithMaxConcurrency bounds the number of in-flight fetches in FetchMany and CurrentPrices
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithTTL sets cache lifetimes for series and current prices
func WithTTL(series, price time.Duration) Option {
	return func(s *Service) {
		s.seriesTTL = series
		s.priceTTL = price
	}
}

// WithMetrics records cache hits and misses
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source used to resolve relative windows
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new market service
func NewService(client interfaces.MarketDataClient, cache interfaces.PriceCache, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client:         client,
		cache:          cache,
		logger:         logger,
		maxConcurrency: DefaultMaxConcurrency,
		seriesTTL:      DefaultSeriesTTL,
		priceTTL:       DefaultPriceTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectPeriod maps an aggregation to an EOD period. Without one, windows
// over a year are fetched weekly.
func SelectPeriod(aggregation string, from, to time.Time) string {
	switch strings.ToLower(strings.TrimSpace(aggregation)) {
	case "d", "day", "daily":
		return models.PeriodDaily
	case "w", "week", "weekly":
		return models.PeriodWeekly
	case "m", "month", "monthly":
		return models.PeriodMonthly
	}
	if to.Sub(from) > weeklyThresholdDays*24*time.Hour {
		return models.PeriodWeekly
	}
	return models.PeriodDaily
}

func seriesKey(req models.SeriesRequest) string {
	return fmt.Sprintf("%s:%s:%s:%s", req.Symbol, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), req.Period)
}

// FetchSeries returns the price frame for a symbol, or false when no data is available
func (s *Service) FetchSeries(ctx context.Context, symbol string, tr models.TimeRange, aggregation string) (*models.PriceFrame, bool) {
	from, to := tr.Window(s.now())
	req := models.SeriesRequest{
		Symbol: symbol,
		From:   from,
		To:     to,
		Period: SelectPeriod(aggregation, from, to),
	}
	key := seriesKey(req)

	if s.cache != nil {
		bars, err := s.cache.GetSeries(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
		} else if len(bars) > 0 {
			s.metrics.RecordFetch("series", metrics.ResultHit)
			return &models.PriceFrame{Symbol: symbol, Bars: bars}, true
		}
	}

	bars, err := s.client.GetEOD(ctx, symbol,
		interfaces.WithDateRange(req.From, req.To),
		interfaces.WithPeriod(req.Period),
	)
	if err != nil {
		s.metrics.RecordFetch("series", metrics.ResultError)
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch price series")
		return nil, false
	}
	if len(bars) == 0 {
		s.metrics.RecordFetch("series", metrics.ResultMiss)
		s.logger.Debug().Str("symbol", symbol).Msg("No price data returned")
		return nil, false
	}
	s.metrics.RecordFetch("series", metrics.ResultMiss)

	if s.cache != nil {
		if err := s.cache.SetSeries(ctx, key, bars, s.seriesTTL); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache write failed")
		}
	}

	return &models.PriceFrame{Symbol: symbol, Bars: bars}, true
}

// FetchCurrentPrice returns the latest price, falling back to the previous
// close when the market has not traded
func (s *Service) FetchCurrentPrice(ctx context.Context, symbol string) (float64, bool) {
	if s.cache != nil {
		price, ok, err := s.cache.GetPrice(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
		} else if ok {
			s.metrics.RecordFetch("price", metrics.ResultHit)
			return price, true
		}
	}

	quote, err := s.client.GetRealTimeQuote(ctx, symbol)
	if err != nil {
		s.metrics.RecordFetch("price", metrics.ResultError)
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch current price")
		return 0, false
	}
	s.metrics.RecordFetch("price", metrics.ResultMiss)

	price := quote.Close
	if price <= 0 {
		price = quote.PreviousClose
	}
	if price <= 0 {
		return 0, false
	}

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, symbol, price, s.priceTTL); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache write failed")
		}
	}
	return price, true
}

// fanOut runs fn for each symbol with at most maxConcurrency in flight.
// Stops launching new work once ctx is done.
func (s *Service) fanOut(ctx context.Context, symbols []string, fn func(i int, symbol string)) {
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i, symbol)
		}(i, symbol)
	}

	wg.Wait()
}

// FetchMany fetches series concurrently. Results keep the order of symbols;
// symbols without data are dropped.
func (s *Service) FetchMany(ctx context.Context, symbols []string, tr models.TimeRange, aggregation string) []models.PriceFrame {
	slots := make([]*models.PriceFrame, len(symbols))
	s.fanOut(ctx, symbols, func(i int, symbol string) {
		if frame, ok := s.FetchSeries(ctx, symbol, tr, aggregation); ok {
			slots[i] = frame
		}
	})

	frames := make([]models.PriceFrame, 0, len(symbols))
	for _, f := range slots {
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames
}

// CurrentPrices fetches current prices concurrently, omitting symbols without a price
func (s *Service) CurrentPrices(ctx context.Context, symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	var mu sync.Mutex
	s.fanOut(ctx, symbols, func(_ int, symbol string) {
		if price, ok := s.FetchCurrentPrice(ctx, symbol); ok {
			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
		}
	})
	return prices
}

// Compile-time check
var _ interfaces.MarketService = (*Service)(nil)

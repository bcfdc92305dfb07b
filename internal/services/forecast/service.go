// Package forecast projects a symbol's price forward from its recent trend.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/analytics"
	"github.com/bobmcallan/copilot/internal/signals"
)

const (
	ModelName = "Least-squares linear trend"
	ModelURL  = "https://en.wikipedia.org/wiki/Ordinary_least_squares"

	DefaultHorizonDays = 30
	maxHorizonDays     = 365
	minHistory         = 20
	maxFitPoints       = 250
	historyChartPoints = 90

	// two-sided 95% band
	bandZ = 1.96
)

// Service implements interfaces.ForecastService.
type Service struct {
	holdings       interfaces.HoldingStore
	market         interfaces.MarketService
	logger         *common.Logger
	defaultHorizon int
	now            func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithDefaultHorizon sets the horizon used when the query has no usable time range
func WithDefaultHorizon(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.defaultHorizon = days
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a forecast service
func NewService(holdings interfaces.HoldingStore, market interfaces.MarketService, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		holdings:       holdings,
		market:         market,
		logger:         logger,
		defaultHorizon: DefaultHorizonDays,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func failed(msg string) *models.ForecastResult {
	return &models.ForecastResult{Success: false, Text: msg, Error: msg, Forecast: []models.ForecastPoint{}}
}

func (s *Service) horizon(tr models.TimeRange) int {
	if tr.Value <= 0 && tr.StartDate == "" {
		return s.defaultHorizon
	}
	days := tr.Days(s.now())
	if days <= 0 {
		return s.defaultHorizon
	}
	if days > maxHorizonDays {
		return maxHorizonDays
	}
	return days
}

// Forecast projects the first resolved asset of the query.
func (s *Service) Forecast(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.ForecastResult {
	var holdings []models.Holding
	if s.holdings != nil {
		h, err := s.holdings.ListHoldings(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to list holdings for forecast")
		}
		holdings = h
	}

	symbols, _ := analytics.ResolveAssets(q.Entities.Assets, holdings, true)
	if len(symbols) == 0 {
		return failed("Please specify an asset to forecast.")
	}
	symbol := symbols[0]
	horizon := s.horizon(q.Entities.TimeRange)

	history := models.TimeRange{Mode: models.RangeRelative, Value: 1, Unit: models.UnitYears}
	frame, ok := s.market.FetchSeries(ctx, symbol, history, "daily")
	if !ok {
		return failed(fmt.Sprintf("Could not fetch historical data for %s.", symbol))
	}
	if frame.Len() < minHistory {
		return failed(fmt.Sprintf("Not enough price history to forecast %s.", symbol))
	}

	closes := frame.Closes()
	if len(closes) > maxFitPoints {
		closes = closes[len(closes)-maxFitPoints:]
	}
	fit := signals.FitLine(closes)
	lastDate := frame.Bars[frame.Len()-1].Date

	points := make([]models.ForecastPoint, 0, horizon)
	for k := 1; k <= horizon; k++ {
		// calendar days to trading days
		x := float64(fit.N-1) + float64(k)*signals.TradingDaysPerYear/365
		value := math.Max(fit.At(x), 0)
		band := bandZ * fit.StdErr
		points = append(points, models.ForecastPoint{
			Date:  lastDate.AddDate(0, 0, k).Format("2006-01-02"),
			Value: signals.Round2(value),
			Lower: signals.Round2(math.Max(value-band, 0)),
			Upper: signals.Round2(value + band),
		})
	}
	final := points[len(points)-1]

	s.logger.Debug().
		Str("symbol", symbol).
		Int("horizon_days", horizon).
		Int("records", fit.N).
		Float64("slope", fit.Slope).
		Msg("Forecast computed")

	return &models.ForecastResult{
		Success: true,
		Text: fmt.Sprintf("%s is projected at %.2f in %d days (range %.2f to %.2f), based on a linear trend over the last %d closes.",
			symbol, final.Value, horizon, final.Lower, final.Upper, fit.N),
		Forecast: points,
		Metadata: models.ForecastMetadata{
			Entity:            symbol,
			HorizonDays:       horizon,
			HistoricalRecords: fit.N,
			Model:             ModelName,
		},
		Technical: signals.Technicals(*frame),
		ChartData: forecastChart(symbol, *frame, points),
	}
}

func forecastChart(symbol string, frame models.PriceFrame, points []models.ForecastPoint) *models.ChartData {
	bars := frame.Bars
	if len(bars) > historyChartPoints {
		bars = bars[len(bars)-historyChartPoints:]
	}
	history := models.ChartSeries{Name: symbol, Data: make([]models.ChartPoint, 0, len(bars))}
	for _, b := range bars {
		history.Data = append(history.Data, models.ChartPoint{X: b.Date.Format("2006-01-02"), Y: signals.Round2(b.Close)})
	}
	projected := models.ChartSeries{Name: symbol + " forecast", Data: make([]models.ChartPoint, 0, len(points))}
	for _, p := range points {
		projected.Data = append(projected.Data, models.ChartPoint{X: p.Date, Y: p.Value})
	}
	return &models.ChartData{Type: models.ChartLine, Series: []models.ChartSeries{history, projected}}
}

// Compile-time check
var _ interfaces.ForecastService = (*Service)(nil)

package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/models"
)

type mockMarket struct {
	frames map[string]*models.PriceFrame
	asked  []string
}

func (m *mockMarket) FetchSeries(ctx context.Context, symbol string, tr models.TimeRange, aggregation string) (*models.PriceFrame, bool) {
	m.asked = append(m.asked, symbol)
	f, ok := m.frames[symbol]
	return f, ok
}
func (m *mockMarket) FetchCurrentPrice(ctx context.Context, symbol string) (float64, bool) {
	return 0, false
}
func (m *mockMarket) FetchMany(ctx context.Context, symbols []string, tr models.TimeRange, aggregation string) []models.PriceFrame {
	return nil
}
func (m *mockMarket) CurrentPrices(ctx context.Context, symbols []string) map[string]float64 {
	return nil
}

type mockHoldings struct{ holdings []models.Holding }

func (m *mockHoldings) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	return m.holdings, nil
}
func (m *mockHoldings) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	return nil, nil
}
func (m *mockHoldings) SaveHolding(ctx context.Context, h *models.Holding) error { return nil }
func (m *mockHoldings) DeleteHolding(ctx context.Context, userID, symbol string) error {
	return nil
}

var fixedNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func linearFrame(symbol string, n int) *models.PriceFrame {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	return &models.PriceFrame{Symbol: symbol, Bars: bars}
}

func forecastQuery(tr models.TimeRange, assets ...string) *models.ClassifiedQuery {
	return &models.ClassifiedQuery{
		Intent:   models.Intent{Pipeline: models.PipelineForecasting, Task: models.TaskForecast},
		Entities: models.Entities{Assets: assets, TimeRange: tr},
	}
}

func newService(market *mockMarket, holdings ...models.Holding) *Service {
	return NewService(&mockHoldings{holdings: holdings}, market, common.NewSilentLogger(),
		WithClock(func() time.Time { return fixedNow }))
}

func TestForecastLinearTrend(t *testing.T) {
	market := &mockMarket{frames: map[string]*models.PriceFrame{"BTC-USD": linearFrame("BTC-USD", 60)}}
	tr := models.TimeRange{Mode: models.RangeRelative, Value: 10, Unit: models.UnitDays}

	res := newService(market).Forecast(context.Background(), "u1", forecastQuery(tr, "bitcoin"))
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{"BTC-USD"}, market.asked)
	require.Len(t, res.Forecast, 10)
	last := res.Forecast[9]
	assert.InDelta(t, 165.90, last.Value, 0.01)
	assert.Equal(t, last.Value, last.Lower, "perfect fit has no band")
	assert.Equal(t, "2025-05-09", last.Date)

	assert.Equal(t, models.ForecastMetadata{Entity: "BTC-USD", HorizonDays: 10, HistoricalRecords: 60, Model: ModelName}, res.Metadata)
	assert.Equal(t, "overbought", res.Technical.RSIState)
	require.NotNil(t, res.ChartData)
	assert.Len(t, res.ChartData.Series, 2)
	assert.Contains(t, res.Text, "BTC-USD")
}

func TestForecastDefaultsToFirstHolding(t *testing.T) {
	market := &mockMarket{frames: map[string]*models.PriceFrame{"AAPL": linearFrame("AAPL", 30)}}
	res := newService(market, models.Holding{Symbol: "AAPL"}, models.Holding{Symbol: "MSFT"}).
		Forecast(context.Background(), "u1", forecastQuery(models.TimeRange{}, models.AllAssets))

	require.True(t, res.Success)
	assert.Equal(t, "AAPL", res.Metadata.Entity)
	assert.Equal(t, DefaultHorizonDays, res.Metadata.HorizonDays)
}

func TestForecastHorizonCapped(t *testing.T) {
	market := &mockMarket{frames: map[string]*models.PriceFrame{"AAPL": linearFrame("AAPL", 30)}}
	tr := models.TimeRange{Mode: models.RangeRelative, Value: 5, Unit: models.UnitYears}
	res := newService(market).Forecast(context.Background(), "u1", forecastQuery(tr, "AAPL"))
	require.True(t, res.Success)
	assert.Equal(t, maxHorizonDays, res.Metadata.HorizonDays)
}

func TestForecastFailures(t *testing.T) {
	market := &mockMarket{frames: map[string]*models.PriceFrame{"SHORT": linearFrame("SHORT", 5)}}
	svc := newService(market)
	ctx := context.Background()

	res := svc.Forecast(ctx, "u1", forecastQuery(models.DefaultTimeRange()))
	assert.False(t, res.Success)
	assert.Equal(t, "Please specify an asset to forecast.", res.Error)

	res = svc.Forecast(ctx, "u1", forecastQuery(models.DefaultTimeRange(), "NOPE"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Could not fetch historical data for NOPE")

	res = svc.Forecast(ctx, "u1", forecastQuery(models.DefaultTimeRange(), "SHORT"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Not enough price history")
	assert.NotNil(t, res.Forecast)
}

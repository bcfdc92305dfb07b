package analytics

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/models"
)

// --- mocks ---

type mockHoldings struct {
	holdings []models.Holding
	err      error
}

func (m *mockHoldings) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	return m.holdings, m.err
}
func (m *mockHoldings) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	return nil, nil
}
func (m *mockHoldings) SaveHolding(ctx context.Context, h *models.Holding) error { return nil }
func (m *mockHoldings) DeleteHolding(ctx context.Context, userID, symbol string) error {
	return nil
}

type mockMarket struct {
	mu     sync.Mutex
	series map[string][]float64
	prices map[string]float64
	calls  int
	panics bool
}

func (m *mockMarket) frame(symbol string) (*models.PriceFrame, bool) {
	closes, ok := m.series[symbol]
	if !ok {
		return nil, false
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return &models.PriceFrame{Symbol: symbol, Bars: bars}, true
}

func (m *mockMarket) FetchSeries(ctx context.Context, symbol string, tr models.TimeRange, aggregation string) (*models.PriceFrame, bool) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.panics {
		panic("feed exploded")
	}
	return m.frame(symbol)
}

func (m *mockMarket) FetchCurrentPrice(ctx context.Context, symbol string) (float64, bool) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	p, ok := m.prices[symbol]
	return p, ok
}

func (m *mockMarket) FetchMany(ctx context.Context, symbols []string, tr models.TimeRange, aggregation string) []models.PriceFrame {
	var out []models.PriceFrame
	for _, s := range symbols {
		if f, ok := m.FetchSeries(ctx, s, tr, aggregation); ok {
			out = append(out, *f)
		}
	}
	return out
}

func (m *mockMarket) CurrentPrices(ctx context.Context, symbols []string) map[string]float64 {
	out := map[string]float64{}
	for _, s := range symbols {
		if p, ok := m.FetchCurrentPrice(ctx, s); ok {
			out[s] = p
		}
	}
	return out
}

func newExecutor(h []models.Holding, market *mockMarket) *Executor {
	return NewExecutor(&mockHoldings{holdings: h}, market, common.NewSilentLogger())
}

func q(task models.Task, assets ...string) *models.ClassifiedQuery {
	return &models.ClassifiedQuery{
		Intent:   models.Intent{Pipeline: models.PipelineAnalytics, Task: task},
		Entities: models.Entities{Assets: assets, TimeRange: models.DefaultTimeRange()},
	}
}

func TestPortfolioTasksFailWithoutHoldings(t *testing.T) {
	for _, task := range []models.Task{models.TaskPnL, models.TaskAllocation, models.TaskRank} {
		t.Run(string(task), func(t *testing.T) {
			market := &mockMarket{series: map[string][]float64{"AAPL": {1, 2}}, prices: map[string]float64{"AAPL": 1}}
			res := newExecutor(nil, market).Execute(context.Background(), "u1", q(task, "AAPL"))

			assert.False(t, res.Success)
			assert.Equal(t, errNoPortfolio, res.Error)
			assert.Equal(t, models.EmptyPayload{}, res.Data)
			assert.Zero(t, market.calls, "no fetch attempted")
		})
	}
}

func TestHoldingStoreFailureIsEmptyPortfolio(t *testing.T) {
	e := NewExecutor(&mockHoldings{err: fmt.Errorf("db down")}, &mockMarket{}, common.NewSilentLogger())
	res := e.Execute(context.Background(), "u1", q(models.TaskPnL))
	assert.False(t, res.Success)
	assert.Equal(t, errNoPortfolio, res.Error)
}

func TestUnresolvedAssets(t *testing.T) {
	res := newExecutor(holdings("AAPL"), &mockMarket{}).Execute(context.Background(), "u1", q(models.TaskTrend))
	assert.Equal(t, errNoMarketData, res.Error, "empty request resolves to holdings")

	res = newExecutor(nil, &mockMarket{}).Execute(context.Background(), "u1", q(models.TaskTrend, models.AllAssets))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

func TestTrendExternalQuery(t *testing.T) {
	market := &mockMarket{series: map[string][]float64{
		"GC=F": {2000, 2100},
	}}
	res := newExecutor(holdings("AAPL"), market).Execute(context.Background(), "u1", q(models.TaskTrend, "gold", "NOPE"))

	require.True(t, res.Success, res.Error)
	payload, ok := res.Data.(models.TrendPayload)
	require.True(t, ok)
	require.Len(t, payload.Trends, 1, "missing symbols are dropped")
	assert.Equal(t, "GC=F", payload.Trends[0].Symbol)
	assert.Equal(t, 5.0, payload.Trends[0].ChangePercent)
	assert.Equal(t, models.TrendUp, payload.Trends[0].TrendDirection)
	require.NotNil(t, res.ChartData)
	assert.Equal(t, models.ChartLine, res.ChartData.Type)
	assert.Len(t, res.ChartData.Series, 1)
}

func TestFetchFailureIsEmptyFailure(t *testing.T) {
	for _, task := range []models.Task{models.TaskTrend, models.TaskChange, models.TaskVolatility, models.TaskDrawdown} {
		res := newExecutor(holdings("AAPL"), &mockMarket{}).Execute(context.Background(), "u1", q(task, "AAPL"))
		assert.False(t, res.Success, task)
		assert.Equal(t, errNoMarketData, res.Error, task)
		assert.Equal(t, models.EmptyPayload{}, res.Data, task)
	}
}

func TestChange(t *testing.T) {
	market := &mockMarket{series: map[string][]float64{"AAPL": {100, 90}}}
	res := newExecutor(holdings("AAPL"), market).Execute(context.Background(), "u1", q(models.TaskChange, "AAPL"))

	require.True(t, res.Success)
	payload := res.Data.(models.ChangePayload)
	assert.Equal(t, -10.0, payload.Changes[0].Percent.ChangePercent)
	assert.Equal(t, -10.0, payload.Changes[0].Absolute.ChangeAbsolute)
	assert.Equal(t, models.ChartBar, res.ChartData.Type)
	assert.Equal(t, []string{"AAPL"}, res.ChartData.Labels)
}

func TestRankUsesWholePortfolio(t *testing.T) {
	market := &mockMarket{series: map[string][]float64{
		"A": {100, 110},
		"B": {100, 95},
		"C": {100, 100},
	}}
	e := newExecutor(holdings("A", "B", "C"), market)

	top := q(models.TaskRank, "A")
	top.Operations.RankN = 2
	res := e.Execute(context.Background(), "u1", top)
	require.True(t, res.Success)
	rank := res.Data.(models.RankPayload).Rankings
	assert.Equal(t, models.DirectionTop, rank.Direction)
	require.Len(t, rank.Rankings, 2)
	assert.Equal(t, "A", rank.Rankings[0].Symbol)
	assert.Equal(t, 1, rank.Rankings[0].Rank)
	assert.Equal(t, "C", rank.Rankings[1].Symbol)
	assert.Equal(t, []string{"A", "C"}, res.ChartData.Labels)

	bottom := q(models.TaskRank)
	bottom.Operations.Direction = models.DirectionBottom
	bottom.Operations.RankN = 2
	res = e.Execute(context.Background(), "u1", bottom)
	require.True(t, res.Success)
	assert.Equal(t, []string{"B", "C"}, res.Data.Symbols())
}

func TestRankDefaultN(t *testing.T) {
	series := map[string][]float64{}
	var syms []string
	for i := 0; i < 8; i++ {
		s := fmt.Sprintf("S%d", i)
		syms = append(syms, s)
		series[s] = []float64{100, 100 + float64(i)}
	}
	market := &mockMarket{series: series}

	res := newExecutor(holdings(syms...), market).Execute(context.Background(), "u1", q(models.TaskRank))
	require.True(t, res.Success)
	assert.Len(t, res.Data.(models.RankPayload).Rankings.Rankings, DefaultRankN)

	e := NewExecutor(&mockHoldings{holdings: holdings(syms...)}, market, common.NewSilentLogger(), WithDefaultRankN(3))
	res = e.Execute(context.Background(), "u1", q(models.TaskRank))
	assert.Len(t, res.Data.(models.RankPayload).Rankings.Rankings, 3)
}

func TestPnLEndToEnd(t *testing.T) {
	h := []models.Holding{{Symbol: "AAPL", Quantity: 10, AvgBuyPrice: 100}, {Symbol: "MSFT", Quantity: 1, AvgBuyPrice: 1}}
	market := &mockMarket{prices: map[string]float64{"AAPL": 150, "MSFT": 2}}

	res := newExecutor(h, market).Execute(context.Background(), "u1", q(models.TaskPnL, "AAPL"))
	require.True(t, res.Success, res.Error)

	payload := res.Data.(models.PnLPayload)
	require.Len(t, payload.Positions, 1)
	p := payload.Positions[0]
	assert.Equal(t, 1000.0, p.CostBasis)
	assert.Equal(t, 1500.0, p.CurrentValue)
	assert.Equal(t, 500.0, p.UnrealizedPnL)
	assert.Equal(t, 50.0, p.PnLPercent)
	assert.Equal(t, 500.0, payload.Total.TotalUnrealizedPnL)
	assert.Equal(t, models.ChartTable, res.ChartData.Type)
}

func TestPnLFailures(t *testing.T) {
	e := newExecutor(holdings("AAPL"), &mockMarket{})
	res := e.Execute(context.Background(), "u1", q(models.TaskPnL, "AAPL"))
	assert.Equal(t, errNoCurrentPrices, res.Error)

	res = e.Execute(context.Background(), "u1", q(models.TaskPnL, "TSLA"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

func TestAllocation(t *testing.T) {
	h := []models.Holding{{Symbol: "MSFT", Quantity: 5}, {Symbol: "AAPL", Quantity: 10}}
	market := &mockMarket{prices: map[string]float64{"AAPL": 150, "MSFT": 100}}

	res := newExecutor(h, market).Execute(context.Background(), "u1", q(models.TaskAllocation, "MSFT"))
	require.True(t, res.Success)

	alloc := res.Data.(models.AllocationPayload).Allocation
	require.Len(t, alloc.Allocations, 2)
	assert.Equal(t, "AAPL", alloc.Allocations[0].Symbol)
	assert.Equal(t, 75.0, alloc.Allocations[0].Percentage)
	assert.Equal(t, 25.0, alloc.Allocations[1].Percentage)
	assert.InDelta(t, 100.0, alloc.Allocations[0].Percentage+alloc.Allocations[1].Percentage, 0.01)
	assert.Equal(t, 2000.0, alloc.TotalValue)
	assert.Equal(t, models.ChartPie, res.ChartData.Type)
}

func TestComparison(t *testing.T) {
	market := &mockMarket{series: map[string][]float64{
		"AAPL": {100, 120, 90, 110},
		"MSFT": {50, 50, 51, 52},
	}}
	e := newExecutor(holdings("AAPL", "MSFT"), market)

	res := e.Execute(context.Background(), "u1", q(models.TaskComparison, "AAPL"))
	assert.Equal(t, errNeedTwoAssets, res.Error)

	res = e.Execute(context.Background(), "u1", q(models.TaskComparison, "AAPL", "MSFT"))
	require.True(t, res.Success)
	cmp := res.Data.(models.ComparisonPayload).Comparison
	assert.Equal(t, 2, cmp.Count)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Data.Symbols())
	assert.Equal(t, -25.0, cmp.Assets[0].MaxDrawdown)

	partial := newExecutor(holdings("AAPL", "TSLA"), market)
	res = partial.Execute(context.Background(), "u1", q(models.TaskComparison, "AAPL", "TSLA"))
	assert.Equal(t, errComparisonData, res.Error)
}

func TestVolatilityAndDrawdown(t *testing.T) {
	market := &mockMarket{series: map[string][]float64{"AAPL": {100, 110, 99, 120}}}
	e := newExecutor(holdings("AAPL"), market)

	res := e.Execute(context.Background(), "u1", q(models.TaskVolatility, "AAPL"))
	require.True(t, res.Success)
	vols := res.Data.(models.VolatilityPayload).Volatilities
	assert.Greater(t, vols[0].Volatility, 0.0)
	assert.Equal(t, models.ChartBar, res.ChartData.Type)

	res = e.Execute(context.Background(), "u1", q(models.TaskDrawdown, "AAPL"))
	require.True(t, res.Success)
	dd := res.Data.(models.DrawdownPayload).Drawdowns[0]
	assert.Equal(t, -10.0, dd.MaxDrawdownPercent)
	assert.Equal(t, 110.0, dd.Peak)
	assert.Equal(t, 99.0, dd.Trough)
	assert.Nil(t, res.ChartData)
}

func TestUnknownTask(t *testing.T) {
	res := newExecutor(holdings("AAPL"), &mockMarket{}).Execute(context.Background(), "u1", q(models.TaskGeneralQuestion))
	assert.False(t, res.Success)
	assert.Equal(t, "Unknown analytics task: general_question", res.Error)
}

func TestPanicBecomesFailure(t *testing.T) {
	market := &mockMarket{panics: true}
	res := newExecutor(holdings("AAPL"), market).Execute(context.Background(), "u1", q(models.TaskTrend, "AAPL"))
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "Analytics error: feed exploded", res.Error)
	assert.Equal(t, models.EmptyPayload{}, res.Data)
}

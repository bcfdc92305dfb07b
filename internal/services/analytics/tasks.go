package analytics

import (
	"context"
	"strings"

	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/signals"
)

func success(task models.Task, data models.Payload, chart *models.ChartData) *models.AnalyticsResult {
	return &models.AnalyticsResult{Task: task, Success: true, Data: data, ChartData: chart}
}

func fetch(ctx context.Context, market interfaces.MarketService, symbols []string, in *taskInput) []models.PriceFrame {
	return market.FetchMany(ctx, symbols, in.timeRange, in.aggregation)
}

type trendTask struct{ market interfaces.MarketService }

func (trendTask) task() models.Task { return models.TaskTrend }

func (t trendTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	frames := fetch(ctx, t.market, in.symbols, in)
	if len(frames) == 0 {
		return models.FailedResult(models.TaskTrend, errNoMarketData)
	}
	trends := make([]models.TrendResult, 0, len(frames))
	for _, f := range frames {
		trends = append(trends, signals.CalculateTrend(f))
	}
	return success(models.TaskTrend, models.TrendPayload{Trends: trends}, signals.LineChart(frames))
}

type changeTask struct{ market interfaces.MarketService }

func (changeTask) task() models.Task { return models.TaskChange }

func (t changeTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	frames := fetch(ctx, t.market, in.symbols, in)
	if len(frames) == 0 {
		return models.FailedResult(models.TaskChange, errNoMarketData)
	}
	changes := make([]models.ChangeResult, 0, len(frames))
	for _, f := range frames {
		changes = append(changes, models.ChangeResult{
			Symbol:   f.Symbol,
			Percent:  signals.PercentageChange(f),
			Absolute: signals.AbsoluteChange(f),
		})
	}
	return success(models.TaskChange, models.ChangePayload{Changes: changes}, signals.BarChart(frames))
}

// rankTask always ranks the whole portfolio.
type rankTask struct{ market interfaces.MarketService }

func (rankTask) task() models.Task { return models.TaskRank }

func (t rankTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	frames := fetch(ctx, t.market, models.HoldingSymbols(in.holdings), in)
	if len(frames) == 0 {
		return models.FailedResult(models.TaskRank, errNoMarketData)
	}
	ranking := signals.RankByPerformance(frames, in.direction, in.rankN)

	chart := &models.ChartData{
		Type:   models.ChartBar,
		Labels: make([]string, 0, len(ranking.Rankings)),
		Values: make([]float64, 0, len(ranking.Rankings)),
	}
	for _, r := range ranking.Rankings {
		chart.Labels = append(chart.Labels, r.Symbol)
		chart.Values = append(chart.Values, r.ChangePercent)
	}
	return success(models.TaskRank, models.RankPayload{Rankings: ranking}, chart)
}

// pnlTask values resolved symbols that are also holdings.
type pnlTask struct{ market interfaces.MarketService }

func (pnlTask) task() models.Task { return models.TaskPnL }

func (t pnlTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	wanted := make(map[string]bool, len(in.symbols))
	for _, s := range in.symbols {
		wanted[strings.ToUpper(s)] = true
	}
	var relevant []models.Holding
	for _, h := range in.holdings {
		if wanted[strings.ToUpper(h.Symbol)] {
			relevant = append(relevant, h)
		}
	}
	if len(relevant) == 0 {
		return models.FailedResult(models.TaskPnL, errNoMatchingAssets)
	}

	prices := t.market.CurrentPrices(ctx, models.HoldingSymbols(relevant))
	if len(prices) == 0 {
		return models.FailedResult(models.TaskPnL, errNoCurrentPrices)
	}

	positions := signals.UnrealizedPnL(relevant, prices)
	payload := models.PnLPayload{Positions: positions, Total: signals.TotalPnL(positions)}
	return success(models.TaskPnL, payload, &models.ChartData{Type: models.ChartTable, Rows: positions})
}

type comparisonTask struct{ market interfaces.MarketService }

func (comparisonTask) task() models.Task { return models.TaskComparison }

func (t comparisonTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	if len(in.symbols) < 2 {
		return models.FailedResult(models.TaskComparison, errNeedTwoAssets)
	}
	frames := fetch(ctx, t.market, in.symbols, in)
	if len(frames) < 2 {
		return models.FailedResult(models.TaskComparison, errComparisonData)
	}
	payload := models.ComparisonPayload{Comparison: signals.CompareAssets(frames)}
	return success(models.TaskComparison, payload, signals.LineChart(frames))
}

type volatilityTask struct{ market interfaces.MarketService }

func (volatilityTask) task() models.Task { return models.TaskVolatility }

func (t volatilityTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	frames := fetch(ctx, t.market, in.symbols, in)
	if len(frames) == 0 {
		return models.FailedResult(models.TaskVolatility, errNoMarketData)
	}
	vols := make([]models.VolatilityResult, 0, len(frames))
	chart := &models.ChartData{Type: models.ChartBar, Labels: []string{}, Values: []float64{}}
	for _, f := range frames {
		v := signals.Volatility(f)
		vols = append(vols, models.VolatilityResult{Symbol: f.Symbol, Volatility: v})
		chart.Labels = append(chart.Labels, f.Symbol)
		chart.Values = append(chart.Values, v)
	}
	return success(models.TaskVolatility, models.VolatilityPayload{Volatilities: vols}, chart)
}

type drawdownTask struct{ market interfaces.MarketService }

func (drawdownTask) task() models.Task { return models.TaskDrawdown }

func (t drawdownTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	frames := fetch(ctx, t.market, in.symbols, in)
	if len(frames) == 0 {
		return models.FailedResult(models.TaskDrawdown, errNoMarketData)
	}
	drawdowns := make([]models.DrawdownResult, 0, len(frames))
	for _, f := range frames {
		drawdowns = append(drawdowns, signals.Drawdown(f))
	}
	return success(models.TaskDrawdown, models.DrawdownPayload{Drawdowns: drawdowns}, nil)
}

// allocationTask splits the whole portfolio. Holdings without a current
// price are left out.
type allocationTask struct{ market interfaces.MarketService }

func (allocationTask) task() models.Task { return models.TaskAllocation }

func (t allocationTask) run(ctx context.Context, in *taskInput) *models.AnalyticsResult {
	if len(in.holdings) == 0 {
		return models.FailedResult(models.TaskAllocation, errNoAllocation)
	}
	prices := t.market.CurrentPrices(ctx, models.HoldingSymbols(in.holdings))
	if len(prices) == 0 {
		return models.FailedResult(models.TaskAllocation, errNoCurrentPrices)
	}

	allocation := signals.Allocation(in.holdings, prices)
	chart := &models.ChartData{
		Type:   models.ChartPie,
		Labels: make([]string, 0, len(allocation.Allocations)),
		Values: make([]float64, 0, len(allocation.Allocations)),
	}
	for _, a := range allocation.Allocations {
		chart.Labels = append(chart.Labels, a.Symbol)
		chart.Values = append(chart.Values, a.Percentage)
	}
	return success(models.TaskAllocation, models.AllocationPayload{Allocation: allocation}, chart)
}

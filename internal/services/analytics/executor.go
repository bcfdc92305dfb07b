// Package analytics runs analytics tasks over a user's holdings and market data.
package analytics

import (
	"context"
	"fmt"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const DefaultRankN = 5

// Failure messages returned in the result envelope
const (
	errNoPortfolio      = "No assets found in your portfolio. Please add some assets first."
	errNoMarketData     = "Could not fetch market data."
	errNoMatchingAssets = "No matching assets found."
	errNoCurrentPrices  = "Could not fetch current prices."
	errNeedTwoAssets    = "Need at least 2 assets to compare."
	errComparisonData   = "Could not fetch data for comparison."
	errNoAllocation     = "No assets found."
)

// taskInput is everything a task needs once assets are resolved.
type taskInput struct {
	holdings    []models.Holding
	symbols     []string
	external    bool
	timeRange   models.TimeRange
	aggregation string
	direction   string
	rankN       int
}

// taskRunner computes one analytics task.
type taskRunner interface {
	task() models.Task
	run(ctx context.Context, in *taskInput) *models.AnalyticsResult
}

// Executor implements interfaces.AnalyticsExecutor.
type Executor struct {
	holdings     interfaces.HoldingStore
	market       interfaces.MarketService
	logger       *common.Logger
	defaultRankN int
	runners      map[models.Task]taskRunner
}

// Option configures the executor
type Option func(*Executor)

// WithDefaultRankN sets N for rank queries that do not specify one
func WithDefaultRankN(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.defaultRankN = n
		}
	}
}

// NewExecutor creates an executor with a runner for every analytics task.
func NewExecutor(holdings interfaces.HoldingStore, market interfaces.MarketService, logger *common.Logger, opts ...Option) *Executor {
	e := &Executor{
		holdings:     holdings,
		market:       market,
		logger:       logger,
		defaultRankN: DefaultRankN,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.runners = make(map[models.Task]taskRunner)
	for _, r := range []taskRunner{
		trendTask{market: market},
		changeTask{market: market},
		rankTask{market: market},
		pnlTask{market: market},
		comparisonTask{market: market},
		volatilityTask{market: market},
		drawdownTask{market: market},
		allocationTask{market: market},
	} {
		e.runners[r.task()] = r
	}
	return e
}

// listHoldings treats a store failure as an empty portfolio.
func (e *Executor) listHoldings(ctx context.Context, userID string) []models.Holding {
	if e.holdings == nil {
		return nil
	}
	holdings, err := e.holdings.ListHoldings(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to list holdings")
		return nil
	}
	return holdings
}

// Execute runs the query's task. It never returns nil and never panics.
func (e *Executor) Execute(ctx context.Context, userID string, q *models.ClassifiedQuery) (result *models.AnalyticsResult) {
	if q == nil {
		return models.FailedResult("", "Analytics error: no query")
	}
	task := q.Intent.Task
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("task", string(task)).Str("panic", fmt.Sprint(r)).Msg("Analytics task panicked")
			result = models.FailedResult(task, fmt.Sprintf("Analytics error: %v", r))
		}
	}()

	holdings := e.listHoldings(ctx, userID)
	requested := q.Entities.Assets

	requiresPortfolio := task.RequiresPortfolio()
	symbols, external := ResolveAssets(requested, holdings, !requiresPortfolio)

	if requiresPortfolio && len(holdings) == 0 {
		return models.FailedResult(task, errNoPortfolio)
	}
	if len(symbols) == 0 && !external {
		return models.FailedResult(task, fmt.Sprintf("Requested assets %v not found. Try using ticker symbols like AAPL, BTC, GOLD.", requested))
	}

	runner, ok := e.runners[task]
	if !ok {
		return models.FailedResult(task, fmt.Sprintf("Unknown analytics task: %s", task))
	}

	in := &taskInput{
		holdings:    holdings,
		symbols:     symbols,
		external:    external,
		timeRange:   q.Entities.TimeRange,
		aggregation: q.Operations.Aggregation,
		direction:   q.Operations.Direction,
		rankN:       q.Operations.RankN,
	}
	if in.direction == "" {
		in.direction = models.DirectionTop
	}
	if in.rankN <= 0 {
		in.rankN = e.defaultRankN
	}

	e.logger.Debug().
		Str("task", string(task)).
		Strs("symbols", symbols).
		Bool("external", external).
		Msg("Running analytics task")

	result = runner.run(ctx, in)
	if !result.Success {
		e.logger.Info().Str("task", string(task)).Str("error", result.Error).Msg("Analytics task failed")
	}
	return result
}

// Compile-time check
var _ interfaces.AnalyticsExecutor = (*Executor)(nil)

package models

// Trend directions
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// Rank directions
const (
	DirectionTop    = "top"
	DirectionBottom = "bottom"
)

// DataPoint is a dated close used in trend summaries.
type DataPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// TrendResult summarises price movement over a window.
type TrendResult struct {
	Symbol         string      `json:"symbol"`
	StartPrice     float64     `json:"start_price"`
	EndPrice       float64     `json:"end_price"`
	ChangeAbsolute float64     `json:"change_absolute"`
	ChangePercent  float64     `json:"change_percent"`
	TrendDirection string      `json:"trend_direction"`
	DataPoints     []DataPoint `json:"data_points"`
}

// PercentChange is the relative move between the first and last close.
type PercentChange struct {
	ChangePercent float64 `json:"change_percent"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
}

// AbsoluteChange is the price move between the first and last close.
type AbsoluteChange struct {
	ChangeAbsolute float64 `json:"change_absolute"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
}

// ChangeResult pairs both change measures for one symbol.
type ChangeResult struct {
	Symbol   string         `json:"symbol"`
	Percent  PercentChange  `json:"percent"`
	Absolute AbsoluteChange `json:"absolute"`
}

// RankEntry is one ranked symbol.
type RankEntry struct {
	Rank          int     `json:"rank"`
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"`
	StartPrice    float64 `json:"start_price"`
	EndPrice      float64 `json:"end_price"`
}

// RankResult is the ordered ranking produced by RankByPerformance.
type RankResult struct {
	Rankings  []RankEntry `json:"rankings"`
	Direction string      `json:"direction"`
	Metric    string      `json:"metric"`
}

// PnLResult is the unrealized profit or loss of one position.
type PnLResult struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgBuyPrice   float64 `json:"avg_buy_price"`
	CurrentPrice  float64 `json:"current_price"`
	CostBasis     float64 `json:"cost_basis"`
	CurrentValue  float64 `json:"current_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
}

// PnLTotal aggregates a set of positions.
type PnLTotal struct {
	TotalCostBasis     float64 `json:"total_cost_basis"`
	TotalCurrentValue  float64 `json:"total_current_value"`
	TotalUnrealizedPnL float64 `json:"total_unrealized_pnl"`
	TotalPnLPercent    float64 `json:"total_pnl_percent"`
	Positions          int     `json:"positions"`
}

// VolatilityResult is the annualised volatility of one symbol, in percent.
type VolatilityResult struct {
	Symbol     string  `json:"symbol"`
	Volatility float64 `json:"volatility"`
}

// DrawdownResult is the worst peak-to-trough decline of one series.
type DrawdownResult struct {
	Symbol             string  `json:"symbol,omitempty"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	Peak               float64 `json:"peak"`
	Trough             float64 `json:"trough"`
}

// AllocationEntry is one holding's share of portfolio value.
type AllocationEntry struct {
	Symbol     string  `json:"symbol"`
	Value      float64 `json:"value"`
	Quantity   float64 `json:"quantity"`
	Percentage float64 `json:"percentage"`
}

// AllocationResult is the portfolio split by current value.
type AllocationResult struct {
	Allocations []AllocationEntry `json:"allocations"`
	TotalValue  float64           `json:"total_value"`
}

// ComparisonEntry lines up key metrics for one symbol.
type ComparisonEntry struct {
	Symbol         string  `json:"symbol"`
	StartPrice     float64 `json:"start_price"`
	EndPrice       float64 `json:"end_price"`
	ChangePercent  float64 `json:"change_percent"`
	TrendDirection string  `json:"trend_direction"`
	Volatility     float64 `json:"volatility"`
	MaxDrawdown    float64 `json:"max_drawdown"`
}

// ComparisonResult is the side-by-side view of several symbols.
type ComparisonResult struct {
	Assets []ComparisonEntry `json:"assets"`
	Count  int               `json:"count"`
}

// ChartPoint is an x/y pair in a line series.
type ChartPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeries is one named line.
type ChartSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// ChartData is the chart-ready form of an analytics result.
type ChartData struct {
	Type   string        `json:"type"`
	Series []ChartSeries `json:"series,omitempty"`
	Labels []string      `json:"labels,omitempty"`
	Values []float64     `json:"values,omitempty"`
	Rows   []PnLResult   `json:"data,omitempty"`
}

// Payload is the task-specific body of an AnalyticsResult. The set of
// implementations is closed; each JSON-encodes under its task's key.
type Payload interface {
	// Symbols lists the symbols the payload reports on, in order.
	Symbols() []string
	isPayload()
}

// EmptyPayload is carried by failed results and encodes as {}.
type EmptyPayload struct{}

func (EmptyPayload) Symbols() []string { return nil }
func (EmptyPayload) isPayload()        {}

// TrendPayload is the body of a trend result.
type TrendPayload struct {
	Trends []TrendResult `json:"trends"`
}

func (p TrendPayload) Symbols() []string {
	out := make([]string, 0, len(p.Trends))
	for _, t := range p.Trends {
		out = append(out, t.Symbol)
	}
	return out
}
func (TrendPayload) isPayload() {}

// ChangePayload is the body of a change result.
type ChangePayload struct {
	Changes []ChangeResult `json:"changes"`
}

func (p ChangePayload) Symbols() []string {
	out := make([]string, 0, len(p.Changes))
	for _, c := range p.Changes {
		out = append(out, c.Symbol)
	}
	return out
}
func (ChangePayload) isPayload() {}

// RankPayload is the body of a rank result.
type RankPayload struct {
	Rankings RankResult `json:"rankings"`
}

func (p RankPayload) Symbols() []string {
	out := make([]string, 0, len(p.Rankings.Rankings))
	for _, r := range p.Rankings.Rankings {
		out = append(out, r.Symbol)
	}
	return out
}
func (RankPayload) isPayload() {}

// PnLPayload is the body of a pnl result.
type PnLPayload struct {
	Positions []PnLResult `json:"positions"`
	Total     PnLTotal    `json:"total"`
}

func (p PnLPayload) Symbols() []string {
	out := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		out = append(out, pos.Symbol)
	}
	return out
}
func (PnLPayload) isPayload() {}

// ComparisonPayload is the body of a comparison result.
type ComparisonPayload struct {
	Comparison ComparisonResult `json:"comparison"`
}

func (p ComparisonPayload) Symbols() []string {
	out := make([]string, 0, len(p.Comparison.Assets))
	for _, a := range p.Comparison.Assets {
		out = append(out, a.Symbol)
	}
	return out
}
func (ComparisonPayload) isPayload() {}

// VolatilityPayload is the body of a volatility result.
type VolatilityPayload struct {
	Volatilities []VolatilityResult `json:"volatilities"`
}

func (p VolatilityPayload) Symbols() []string {
	out := make([]string, 0, len(p.Volatilities))
	for _, v := range p.Volatilities {
		out = append(out, v.Symbol)
	}
	return out
}
func (VolatilityPayload) isPayload() {}

// DrawdownPayload is the body of a drawdown result.
type DrawdownPayload struct {
	Drawdowns []DrawdownResult `json:"drawdowns"`
}

func (p DrawdownPayload) Symbols() []string {
	out := make([]string, 0, len(p.Drawdowns))
	for _, d := range p.Drawdowns {
		out = append(out, d.Symbol)
	}
	return out
}
func (DrawdownPayload) isPayload() {}

// AllocationPayload is the body of an allocation result.
type AllocationPayload struct {
	Allocation AllocationResult `json:"allocation"`
}

func (p AllocationPayload) Symbols() []string {
	out := make([]string, 0, len(p.Allocation.Allocations))
	for _, a := range p.Allocation.Allocations {
		out = append(out, a.Symbol)
	}
	return out
}
func (AllocationPayload) isPayload() {}

// AnalyticsResult is the envelope every analytics task returns.
type AnalyticsResult struct {
	Task      Task       `json:"task"`
	Success   bool       `json:"success"`
	Data      Payload    `json:"data"`
	ChartData *ChartData `json:"chart_data,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// FailedResult builds a failure envelope with an empty payload.
func FailedResult(task Task, message string) *AnalyticsResult {
	return &AnalyticsResult{
		Task:    task,
		Success: false,
		Data:    EmptyPayload{},
		Error:   message,
	}
}

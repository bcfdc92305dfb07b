package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/models"
)

type mockLLM struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return m.response, m.err
}
func (m *mockLLM) GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return m.response, m.err
}
func (m *mockLLM) GenerateWithSystem(ctx context.Context, systemPrompt, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.response, m.err
}

func firstPick(int) int { return 0 }

func TestSplitFollowUp(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		text     string
		followUp string
	}{
		{"marker", "AAPL rose **5%**.\n\n" + FollowUpMarker + " Should I compare it with MSFT?", "AAPL rose **5%**.", "Should I compare it with MSFT?"},
		{"question line", "AAPL rose 5%.\nWould you like a forecast?", "AAPL rose 5%.", "Would you like a forecast?"},
		{"last line not a question", "AAPL rose 5%.\nWould you believe it.", "AAPL rose 5%.\nWould you believe it.", ""},
		{"single line question", "Would you like a forecast?", "Would you like a forecast?", ""},
		{"no follow-up", "Plain answer.", "Plain answer.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, followUp := SplitFollowUp(tt.in)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.followUp, followUp)
		})
	}
}

func TestFallbackExplanation(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"trend", models.TrendPayload{Trends: []models.TrendResult{{Symbol: "AAPL", TrendDirection: "down", ChangePercent: -3.456}}},
			"AAPL has shown a down trend with a -3.46% change."},
		{"change", models.ChangePayload{Changes: []models.ChangeResult{{Symbol: "MSFT", Percent: models.PercentChange{ChangePercent: 2.5}, Absolute: models.AbsoluteChange{ChangeAbsolute: 10}}}},
			"MSFT moved 2.50% (+10.00) over the period."},
		{"pnl loss", models.PnLPayload{Total: models.PnLTotal{TotalUnrealizedPnL: -120.5, TotalPnLPercent: -4.2}},
			"Your portfolio is down $120.50 (-4.20%)."},
		{"rank bottom", models.RankPayload{Rankings: models.RankResult{Direction: models.DirectionBottom, Rankings: []models.RankEntry{{Symbol: "TSLA", ChangePercent: -12}}}},
			"TSLA is your bottom performer with -12.00% change."},
		{"allocation", models.AllocationPayload{Allocation: models.AllocationResult{TotalValue: 2000, Allocations: []models.AllocationEntry{{Symbol: "AAPL"}, {Symbol: "MSFT"}}}},
			"Your portfolio has 2 positions worth $2000.00 total."},
		{"comparison", models.ComparisonPayload{Comparison: models.ComparisonResult{Assets: []models.ComparisonEntry{{Symbol: "AAPL", ChangePercent: 1}, {Symbol: "MSFT", ChangePercent: 4}}}},
			"Among your compared stocks, MSFT performed best with 4.00% change."},
		{"volatility", models.VolatilityPayload{Volatilities: []models.VolatilityResult{{Symbol: "BTC-USD", Volatility: 55.1}}},
			"BTC-USD has an annualized volatility of 55.10%."},
		{"drawdown", models.DrawdownPayload{Drawdowns: []models.DrawdownResult{{Symbol: "AAPL", MaxDrawdownPercent: -10, Peak: 110, Trough: 99}}},
			"AAPL had a maximum drawdown of -10.00%, falling from 110.00 to 99.00."},
		{"empty trend", models.TrendPayload{}, genericExplanation},
		{"unknown data", map[string]any{}, genericExplanation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackExplanation(&models.DispatchResponse{Success: true, Data: tt.data}))
		})
	}
}

func TestFallbackForecastSummary(t *testing.T) {
	f := &models.ForecastResult{
		Success:   true,
		Metadata:  models.ForecastMetadata{Entity: "AAPL", HorizonDays: 30},
		Technical: models.TechnicalSummary{RSI14: 61.2, RSIState: "neutral"},
		Forecast: []models.ForecastPoint{
			{Date: "2025-06-02", Value: 100},
			{Date: "2025-07-01", Value: 110},
		},
	}
	out := FallbackExplanation(&models.DispatchResponse{Success: true, Data: f})
	assert.True(t, strings.HasPrefix(out, "## **AAPL 30-Day Forecast**"))
	assert.Contains(t, out, "**Trend Direction:** UP")
	assert.Contains(t, out, "- **End (2025-07-01):** $110.00")
	assert.Contains(t, out, "$10.00 (+10.00%)")
}

func TestExplainUsesLLM(t *testing.T) {
	llm := &mockLLM{response: "Your **AAPL** position is up.\n" + FollowUpMarker + " Want a forecast?"}
	e := NewExplainer(llm, common.NewSilentLogger(), nil, WithPicker(firstPick))

	resp := &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics,
		Task:     models.TaskTrend,
		Success:  true,
		Data:     models.TrendPayload{Trends: []models.TrendResult{{Symbol: "AAPL"}}},
	}
	exp := e.Explain(context.Background(), "how is apple", resp)
	assert.Equal(t, "Your **AAPL** position is up.", exp.Text)
	assert.Equal(t, "Want a forecast?", exp.FollowUp)
	assert.Contains(t, llm.lastPrompt, "Task: trend")
	assert.Contains(t, llm.lastPrompt, `"symbol": "AAPL"`)
}

func TestExplainLLMErrorFallsBack(t *testing.T) {
	llm := &mockLLM{err: fmt.Errorf("rate limited")}
	e := NewExplainer(llm, common.NewSilentLogger(), nil, WithPicker(firstPick))

	resp := &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics,
		Task:     models.TaskAllocation,
		Success:  true,
		Data:     models.AllocationPayload{Allocation: models.AllocationResult{TotalValue: 100, Allocations: []models.AllocationEntry{{Symbol: "AAPL"}}}},
	}
	exp := e.Explain(context.Background(), "allocation", resp)
	assert.Equal(t, "Your portfolio has 1 positions worth $100.00 total.", exp.Text)
	assert.Equal(t, followUps[models.TaskAllocation][0], exp.FollowUp)
}

func TestExplainSkipsLLM(t *testing.T) {
	llm := &mockLLM{response: "should not be used"}
	e := NewExplainer(llm, common.NewSilentLogger(), nil, WithPicker(firstPick))

	failed := e.Explain(context.Background(), "q", &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics, Task: models.TaskPnL, Text: "No portfolio found.",
	})
	assert.Equal(t, "No portfolio found.", failed.Text)
	assert.Equal(t, followUps[models.TaskPnL][0], failed.FollowUp)

	blank := e.Explain(context.Background(), "q", &models.DispatchResponse{Pipeline: models.PipelineAnalytics})
	assert.Equal(t, failedExplanation, blank.Text)
	assert.Equal(t, followUps[models.TaskGeneralQuestion][0], blank.FollowUp)

	retrieval := e.Explain(context.Background(), "q", &models.DispatchResponse{
		Pipeline: models.PipelineRetrieval, Task: models.TaskGeneralQuestion, Success: true, Text: "From your notes: hold.",
	})
	assert.Equal(t, "From your notes: hold.", retrieval.Text)
	assert.Zero(t, llm.calls)
}

func TestFollowUpForUnknownTask(t *testing.T) {
	e := NewExplainer(nil, common.NewSilentLogger(), nil, WithPicker(func(n int) int { return n + 5 }))
	q := e.FollowUpFor(models.Task("weather"))
	require.NotEmpty(t, q)
	assert.Equal(t, followUps[models.TaskGeneralQuestion][0], q)
}

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
)

// FollowUpMarker prefixes a follow-up question in generated explanations.
const FollowUpMarker = "📊"

const (
	failedExplanation  = "I wasn't able to complete your request."
	genericExplanation = "Here are your analytics results."
)

const explanationSystemPrompt = `You are a helpful financial assistant explaining stock analytics results.

Your job:
1. Take computed analytics data
2. Explain it in clear, conversational language using markdown formatting
3. Highlight key insights
4. Reference the visualization if one is provided
5. Always end with a contextual follow-up question

Formatting:
- Use **bold** for important numbers, percentages and key terms
- Use bullet points for multiple items
- Keep responses concise (3-5 sentences)
- If there is chart data, say "See the chart below for visual details."

Follow-up question:
- End with ONE follow-up question related to the data, on its own line, starting with "` + FollowUpMarker + ` "

Rules:
- Do NOT perform any calculations
- Do NOT make up numbers; use ONLY the provided data
- Do NOT give financial advice
- Speak from the user's perspective ("Your AAPL position...")
- Format numbers nicely (e.g. "$1,234.56", "12.5%")`

var followUps = map[models.Task][]string{
	models.TaskTrend: {
		"Would you like to see a longer time range?",
		"Should I compare this with another stock?",
		"Want to see the volatility for this period?",
	},
	models.TaskChange: {
		"Would you like to see the trend behind this move?",
		"Should I rank your holdings by performance?",
		"Want to compare this with another stock?",
	},
	models.TaskAllocation: {
		"Would you like to see your P&L breakdown?",
		"Should I show you the top performers?",
		"Want to see how volatile your largest positions are?",
	},
	models.TaskPnL: {
		"Would you like a trend analysis for any position?",
		"Should I show the allocation breakdown?",
		"Want to see the volatility of your positions?",
	},
	models.TaskRank: {
		"Would you like more details on any of these?",
		"Should I show a comparison chart?",
		"Want to see a trend for the top performer?",
	},
	models.TaskForecast: {
		"Would you like to forecast for a different period?",
		"Should I forecast another stock?",
		"Want to see the historical trend as well?",
	},
	models.TaskComparison: {
		"Would you like to see the forecast for any of these?",
		"Should I add more stocks to compare?",
		"Want to see the volatility comparison?",
	},
	models.TaskVolatility: {
		"Would you like to see the price trend?",
		"Should I compare volatility with other stocks?",
		"Want a forecast for this stock?",
	},
	models.TaskDrawdown: {
		"Would you like to see the volatility as well?",
		"Should I show the price trend over this period?",
		"Want to compare drawdowns across your holdings?",
	},
	models.TaskGeneralQuestion: {
		"Is there anything else you'd like to know?",
		"Would you like me to analyze any specific stock?",
		"Should I show you your portfolio overview?",
	},
}

var questionStarters = []string{"Would you", "Should I", "Want to", "Do you", "Can I", "Shall I"}

// Explainer implements interfaces.Explainer. Without an LLM, or when the LLM
// fails, a deterministic summary is produced per task.
type Explainer struct {
	llm     interfaces.LLMClient
	logger  *common.Logger
	metrics *metrics.Recorder
	pick    func(n int) int
}

// ExplainerOption configures the explainer
type ExplainerOption func(*Explainer)

// WithPicker overrides how a follow-up question is chosen from a task's list
func WithPicker(pick func(n int) int) ExplainerOption {
	return func(e *Explainer) {
		e.pick = pick
	}
}

// NewExplainer creates an explainer. llm may be nil.
func NewExplainer(llm interfaces.LLMClient, logger *common.Logger, m *metrics.Recorder, opts ...ExplainerOption) *Explainer {
	e := &Explainer{llm: llm, logger: logger, metrics: m, pick: rand.IntN}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain produces the reply text for resp. Retrieval answers are used as-is.
func (e *Explainer) Explain(ctx context.Context, query string, resp *models.DispatchResponse) models.Explanation {
	var raw string
	switch {
	case resp == nil:
		raw = failedExplanation
	case resp.Pipeline == models.PipelineRetrieval:
		raw = resp.Text
	case !resp.Success:
		raw = resp.Text
		if raw == "" {
			raw = failedExplanation
		}
	default:
		raw = e.generate(ctx, query, resp)
	}

	text, followUp := SplitFollowUp(raw)
	if followUp == "" {
		task := models.TaskGeneralQuestion
		if resp != nil && resp.Task != "" {
			task = resp.Task
		}
		followUp = e.FollowUpFor(task)
	}
	return models.Explanation{Text: text, FollowUp: followUp}
}

func (e *Explainer) generate(ctx context.Context, query string, resp *models.DispatchResponse) string {
	if e.llm == nil {
		return FallbackExplanation(resp)
	}

	data, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		e.logger.Warn().Err(err).Str("task", string(resp.Task)).Msg("Failed to encode result for explanation")
		return FallbackExplanation(resp)
	}
	prompt := fmt.Sprintf("Task: %s\nUser Question: %q\n\nAnalytics Results:\n%s\n\nProvide a clear, conversational explanation of these results.",
		resp.Task, query, data)

	out, err := e.llm.GenerateWithSystem(ctx, explanationSystemPrompt, prompt)
	e.metrics.RecordLLM("explain", err)
	if err != nil || strings.TrimSpace(out) == "" {
		e.logger.Warn().Err(err).Str("task", string(resp.Task)).Msg("Explanation generation failed, using fallback")
		return FallbackExplanation(resp)
	}
	return strings.TrimSpace(out)
}

// FollowUpFor returns one of the task's canned follow-up questions.
func (e *Explainer) FollowUpFor(task models.Task) string {
	questions, ok := followUps[task]
	if !ok {
		questions = followUps[models.TaskGeneralQuestion]
	}
	i := e.pick(len(questions))
	if i < 0 || i >= len(questions) {
		i = 0
	}
	return questions[i]
}

// SplitFollowUp separates a trailing follow-up question from text. The
// question is either marked with FollowUpMarker or is a last line that
// starts like a question and ends with "?".
func SplitFollowUp(text string) (string, string) {
	if i := strings.LastIndex(text, FollowUpMarker); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+len(FollowUpMarker):])
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 1 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if strings.HasSuffix(last, "?") {
			for _, starter := range questionStarters {
				if strings.HasPrefix(last, starter) {
					return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n")), last
				}
			}
		}
	}
	return text, ""
}

// FallbackExplanation summarises a successful result without an LLM.
func FallbackExplanation(resp *models.DispatchResponse) string {
	switch data := resp.Data.(type) {
	case models.TrendPayload:
		if len(data.Trends) > 0 {
			t := data.Trends[0]
			return fmt.Sprintf("%s has shown a %s trend with a %.2f%% change.", t.Symbol, t.TrendDirection, t.ChangePercent)
		}
	case models.ChangePayload:
		if len(data.Changes) > 0 {
			c := data.Changes[0]
			return fmt.Sprintf("%s moved %.2f%% (%+.2f) over the period.", c.Symbol, c.Percent.ChangePercent, c.Absolute.ChangeAbsolute)
		}
	case models.PnLPayload:
		direction := "down"
		if data.Total.TotalUnrealizedPnL > 0 {
			direction = "up"
		}
		return fmt.Sprintf("Your portfolio is %s $%.2f (%.2f%%).", direction, math.Abs(data.Total.TotalUnrealizedPnL), data.Total.TotalPnLPercent)
	case models.RankPayload:
		if len(data.Rankings.Rankings) > 0 {
			top := data.Rankings.Rankings[0]
			label := "top"
			if data.Rankings.Direction != models.DirectionTop {
				label = "bottom"
			}
			return fmt.Sprintf("%s is your %s performer with %.2f%% change.", top.Symbol, label, top.ChangePercent)
		}
	case models.AllocationPayload:
		return fmt.Sprintf("Your portfolio has %d positions worth $%.2f total.", len(data.Allocation.Allocations), data.Allocation.TotalValue)
	case models.ComparisonPayload:
		if assets := data.Comparison.Assets; len(assets) >= 2 {
			best := assets[0]
			for _, a := range assets[1:] {
				if a.ChangePercent > best.ChangePercent {
					best = a
				}
			}
			return fmt.Sprintf("Among your compared stocks, %s performed best with %.2f%% change.", best.Symbol, best.ChangePercent)
		}
	case models.VolatilityPayload:
		if len(data.Volatilities) > 0 {
			v := data.Volatilities[0]
			return fmt.Sprintf("%s has an annualized volatility of %.2f%%.", v.Symbol, v.Volatility)
		}
	case models.DrawdownPayload:
		if len(data.Drawdowns) > 0 {
			d := data.Drawdowns[0]
			return fmt.Sprintf("%s had a maximum drawdown of %.2f%%, falling from %.2f to %.2f.", d.Symbol, d.MaxDrawdownPercent, d.Peak, d.Trough)
		}
	case *models.ForecastResult:
		return forecastSummary(data)
	}
	return genericExplanation
}

func forecastSummary(f *models.ForecastResult) string {
	if len(f.Forecast) == 0 {
		if f.Text != "" {
			return f.Text
		}
		return genericExplanation
	}
	first, last := f.Forecast[0], f.Forecast[len(f.Forecast)-1]
	change := last.Value - first.Value
	changePct := 0.0
	if first.Value != 0 {
		changePct = change / first.Value * 100
	}
	trend := models.TrendFlat
	switch {
	case changePct > 1:
		trend = models.TrendUp
	case changePct < -1:
		trend = models.TrendDown
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## **%s %d-Day Forecast**\n\n", f.Metadata.Entity, f.Metadata.HorizonDays)
	fmt.Fprintf(&sb, "**Trend Direction:** %s\n", strings.ToUpper(trend))
	fmt.Fprintf(&sb, "**RSI (14):** %.2f (%s)\n\n", f.Technical.RSI14, f.Technical.RSIState)
	sb.WriteString("### Price Prediction\n")
	fmt.Fprintf(&sb, "- **Start (%s):** $%.2f\n", first.Date, first.Value)
	fmt.Fprintf(&sb, "- **End (%s):** $%.2f\n", last.Date, last.Value)
	fmt.Fprintf(&sb, "- **Predicted Change:** $%.2f (%+.2f%%)\n\n", change, changePct)
	sb.WriteString("> See the chart below for the full forecast with confidence bands.")
	return sb.String()
}

// Compile-time check
var _ interfaces.Explainer = (*Explainer)(nil)

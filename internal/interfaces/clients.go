// Package interfaces defines service contracts for the copilot
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/copilot/internal/models"
)

// MarketDataClient provides access to end-of-day and real-time prices
type MarketDataClient interface {
	// GetEOD retrieves end-of-day bars for a ticker, ascending by date
	GetEOD(ctx context.Context, code string, opts ...EODOption) ([]models.PriceBar, error)

	// GetRealTimeQuote retrieves the latest quote for a ticker
	GetRealTimeQuote(ctx context.Context, code string) (*models.Quote, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the period for EOD query
func WithPeriod(period string) EODOption {
	return func(p *EODParams) {
		p.Period = period
	}
}

// LLMClient generates text from a language model
type LLMClient interface {
	// GenerateContent generates free text from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// GenerateJSON generates a JSON document guided by a system instruction
	GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error)

	// GenerateWithSystem generates free text guided by a system instruction
	GenerateWithSystem(ctx context.Context, systemPrompt, prompt string) (string, error)
}

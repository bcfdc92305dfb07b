package models

import (
	"strings"
	"time"
)

// Holding is a position in a user's portfolio.
type Holding struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Symbol         string     `json:"symbol"`
	Quantity       float64    `json:"quantity"`
	AvgBuyPrice    float64    `json:"avg_buy_price"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	PortfolioName  string     `json:"portfolio_name,omitempty"`
	Currency       string     `json:"currency"`
	Broker         string     `json:"broker,omitempty"`
	InvestmentType string     `json:"investment_type"`
	Exchange       string     `json:"exchange,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ApplyDefaults fills currency and investment type when absent.
func (h *Holding) ApplyDefaults() {
	if h.Currency == "" {
		h.Currency = "USD"
	}
	if h.InvestmentType == "" {
		h.InvestmentType = "Stock"
	}
}

// CostBasis is quantity times average buy price.
func (h Holding) CostBasis() float64 {
	return h.Quantity * h.AvgBuyPrice
}

// HoldingSymbols returns the ticker of each holding, in order.
func HoldingSymbols(holdings []Holding) []string {
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}

// HoldingInput is the client-supplied form of a holding.
type HoldingInput struct {
	UserID         string  `json:"user_id,omitempty"`
	Symbol         string  `json:"symbol" validate:"required,max=20"`
	Quantity       float64 `json:"quantity" validate:"gt=0"`
	AvgBuyPrice    float64 `json:"avg_buy_price" validate:"gte=0"`
	PurchaseDate   string  `json:"purchase_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PortfolioName  string  `json:"portfolio_name,omitempty" validate:"max=100"`
	Currency       string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	Broker         string  `json:"broker,omitempty" validate:"max=100"`
	InvestmentType string  `json:"investment_type,omitempty" validate:"max=50"`
	Exchange       string  `json:"exchange,omitempty" validate:"max=20"`
}

// Holding builds the stored holding for userID. PurchaseDate must already be
// a valid YYYY-MM-DD date or empty.
func (in HoldingInput) Holding(userID string) Holding {
	h := Holding{
		UserID:         userID,
		Symbol:         strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Quantity:       in.Quantity,
		AvgBuyPrice:    in.AvgBuyPrice,
		PortfolioName:  in.PortfolioName,
		Currency:       strings.ToUpper(in.Currency),
		Broker:         in.Broker,
		InvestmentType: in.InvestmentType,
		Exchange:       in.Exchange,
	}
	if d, err := time.Parse("2006-01-02", in.PurchaseDate); err == nil {
		h.PurchaseDate = &d
	}
	h.ApplyDefaults()
	return h
}

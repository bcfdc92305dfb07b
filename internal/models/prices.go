package models

import "time"

// PriceBar is one OHLC observation.
type PriceBar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PriceFrame is a price series for one symbol, ascending by date.
type PriceFrame struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (f PriceFrame) Len() int {
	return len(f.Bars)
}

// Closes returns the close column.
func (f PriceFrame) Closes() []float64 {
	closes := make([]float64, len(f.Bars))
	for i, b := range f.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Series request periods
const (
	PeriodDaily   = "d"
	PeriodWeekly  = "w"
	PeriodMonthly = "m"
)

// SeriesRequest identifies a price series fetch.
type SeriesRequest struct {
	Symbol string
	From   time.Time
	To     time.Time
	Period string
}

// Quote is a real-time price snapshot.
type Quote struct {
	Code          string    `json:"code"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	PreviousClose float64   `json:"previous_close"`
	ChangePct     float64   `json:"change_p"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

package signals

import (
	"math"

	"github.com/bobmcallan/copilot/internal/models"
)

// TradingDaysPerYear annualises daily volatility.
const TradingDaysPerYear = 252

// Volatility is the sample standard deviation of bar-over-bar percent
// returns, annualised and expressed in percent. Fewer than two usable
// returns yield 0.
func Volatility(frame models.PriceFrame) float64 {
	if frame.Len() < 2 {
		return 0
	}

	returns := make([]float64, 0, frame.Len()-1)
	for i := 1; i < frame.Len(); i++ {
		prev := frame.Bars[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (frame.Bars[i].Close-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(returns)-1))

	return Round2(std * math.Sqrt(TradingDaysPerYear) * 100)
}

// Drawdown finds the deepest decline from a running peak. Peak is the
// highest close at or before the trough.
func Drawdown(frame models.PriceFrame) models.DrawdownResult {
	result := models.DrawdownResult{Symbol: frame.Symbol}
	if frame.Len() < 2 {
		return result
	}

	runningMax := frame.Bars[0].Close
	minDD := 0.0
	troughIdx := 0
	for i, b := range frame.Bars {
		if b.Close > runningMax {
			runningMax = b.Close
		}
		dd := 0.0
		if runningMax != 0 {
			dd = (b.Close - runningMax) / runningMax * 100
		}
		if dd < minDD {
			minDD = dd
			troughIdx = i
		}
	}

	peak := frame.Bars[0].Close
	for _, b := range frame.Bars[:troughIdx+1] {
		if b.Close > peak {
			peak = b.Close
		}
	}

	result.MaxDrawdownPercent = Round2(minDD)
	result.Peak = Round2(peak)
	result.Trough = Round2(frame.Bars[troughIdx].Close)
	return result
}

package signals

import (
	"math"

	"github.com/bobmcallan/copilot/internal/models"
)

// Crossover states
const (
	CrossGolden = "golden_cross"
	CrossDeath  = "death_cross"
	CrossNone   = "none"
)

// RSI states
const (
	RSIOverbought = "overbought"
	RSIOversold   = "oversold"
	RSINeutral    = "neutral"
)

// SMA is the mean of the last period closes, or 0 without enough data.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// EMA seeds with the SMA of the first period closes and smooths forward.
func EMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := SMA(closes[:period], period)
	for _, c := range closes[period:] {
		ema = (c-ema)*multiplier + ema
	}
	return ema
}

// RSI over the last period changes. Returns 50 without enough data.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	window := closes[len(closes)-period-1:]
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ClassifyRSI labels an RSI value
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return RSIOverbought
	}
	if rsi <= 30 {
		return RSIOversold
	}
	return RSINeutral
}

// DetectCrossover reports whether the short SMA crossed the long SMA on the last bar.
func DetectCrossover(closes []float64, shortPeriod, longPeriod int) string {
	if len(closes) < longPeriod+1 {
		return CrossNone
	}

	shortSMA := SMA(closes, shortPeriod)
	longSMA := SMA(closes, longPeriod)
	prev := closes[:len(closes)-1]
	prevShort := SMA(prev, shortPeriod)
	prevLong := SMA(prev, longPeriod)

	if prevShort <= prevLong && shortSMA > longSMA {
		return CrossGolden
	}
	if prevShort >= prevLong && shortSMA < longSMA {
		return CrossDeath
	}
	return CrossNone
}

// DistanceToSMA is the percent distance of price above or below the SMA.
func DistanceToSMA(price, sma float64) float64 {
	return safePercent(price-sma, sma)
}

// LinearFit is an ordinary least squares line over evenly spaced points.
type LinearFit struct {
	Intercept float64
	Slope     float64
	// Residual standard deviation
	StdErr float64
	N      int
}

// At evaluates the line at x.
func (f LinearFit) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// FitLine regresses ys against their index. Fewer than two points yield a
// flat line through the only value, if any.
func FitLine(ys []float64) LinearFit {
	n := len(ys)
	switch n {
	case 0:
		return LinearFit{}
	case 1:
		return LinearFit{Intercept: ys[0], N: 1}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	den := nf*sumXX - sumX*sumX
	slope := (nf*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / nf

	fit := LinearFit{Intercept: intercept, Slope: slope, N: n}
	if n > 2 {
		var ss float64
		for i, y := range ys {
			r := y - fit.At(float64(i))
			ss += r * r
		}
		fit.StdErr = math.Sqrt(ss / float64(n-2))
	}
	return fit
}

// Technicals summarises momentum indicators for a frame.
func Technicals(frame models.PriceFrame) models.TechnicalSummary {
	closes := frame.Closes()
	summary := models.TechnicalSummary{Crossover: CrossNone, RSIState: RSINeutral, RSI14: 50}
	if len(closes) == 0 {
		return summary
	}
	last := closes[len(closes)-1]

	summary.SMA20 = Round2(SMA(closes, 20))
	summary.SMA50 = Round2(SMA(closes, 50))
	rsi := RSI(closes, 14)
	summary.RSI14 = Round2(rsi)
	summary.RSIState = ClassifyRSI(rsi)
	summary.Crossover = DetectCrossover(closes, 20, 50)
	if sma := SMA(closes, 20); sma > 0 {
		summary.DistanceToSMA20 = Round2(DistanceToSMA(last, sma))
	}
	return summary
}

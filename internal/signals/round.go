package signals

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two decimal places. NaN and
// infinities collapse to 0 so degenerate inputs never leak into output.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// safePercent returns num/den*100, or 0 when den is 0.
func safePercent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

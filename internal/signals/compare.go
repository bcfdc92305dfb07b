package signals

import (
	"github.com/bobmcallan/copilot/internal/models"
)

// CompareAssets lines up trend, volatility and drawdown per frame. Empty
// frames are skipped.
func CompareAssets(frames []models.PriceFrame) models.ComparisonResult {
	entries := make([]models.ComparisonEntry, 0, len(frames))
	for _, f := range frames {
		if f.Len() == 0 {
			continue
		}
		trend := CalculateTrend(f)
		entries = append(entries, models.ComparisonEntry{
			Symbol:         f.Symbol,
			StartPrice:     trend.StartPrice,
			EndPrice:       trend.EndPrice,
			ChangePercent:  trend.ChangePercent,
			TrendDirection: trend.TrendDirection,
			Volatility:     Volatility(f),
			MaxDrawdown:    Drawdown(f).MaxDrawdownPercent,
		})
	}
	return models.ComparisonResult{Assets: entries, Count: len(entries)}
}

// LineChart builds one close-price series per non-empty frame.
func LineChart(frames []models.PriceFrame) *models.ChartData {
	series := make([]models.ChartSeries, 0, len(frames))
	for _, f := range frames {
		if f.Len() == 0 {
			continue
		}
		points := make([]models.ChartPoint, 0, f.Len())
		for _, b := range f.Bars {
			points = append(points, models.ChartPoint{X: b.Date.Format("2006-01-02"), Y: Round2(b.Close)})
		}
		series = append(series, models.ChartSeries{Name: f.Symbol, Data: points})
	}
	return &models.ChartData{Type: models.ChartLine, Series: series}
}

// BarChart builds a percent-change bar per non-empty frame.
func BarChart(frames []models.PriceFrame) *models.ChartData {
	chart := &models.ChartData{Type: models.ChartBar, Labels: []string{}, Values: []float64{}}
	for _, f := range frames {
		if f.Len() == 0 {
			continue
		}
		chart.Labels = append(chart.Labels, f.Symbol)
		chart.Values = append(chart.Values, PercentageChange(f).ChangePercent)
	}
	return chart
}
